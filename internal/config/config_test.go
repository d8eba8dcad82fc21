package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallbiznis/tirta/internal/tariff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BULK_CONCURRENCY", "")
	t.Setenv("BULK_ESTIMATION_POLICY", "")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()
	assert.Equal(t, 4, cfg.Bulk.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Bulk.CustomerTimeout)
	assert.Equal(t, EstimationPreviousUsage, cfg.Bulk.EstimationPolicy)
	assert.False(t, cfg.Redis.Enabled())
	assert.Empty(t, cfg.Jobs.ReconcileCron)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BULK_CONCURRENCY", "8")
	t.Setenv("BULK_CUSTOMER_TIMEOUT", "3s")
	t.Setenv("BULK_ESTIMATION_POLICY", "SUPPLIED_ONLY")
	t.Setenv("PAYMENT_LOCK_TTL", "not-a-duration")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "HTTP")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")

	cfg := Load()
	assert.Equal(t, 8, cfg.Bulk.Concurrency)
	assert.Equal(t, 3*time.Second, cfg.Bulk.CustomerTimeout)
	assert.Equal(t, EstimationSuppliedOnly, cfg.Bulk.EstimationPolicy)
	assert.Equal(t, 15*time.Second, cfg.PaymentLockTTL)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http", cfg.Otel.Protocol)
	assert.Equal(t, 0.5, cfg.Otel.SamplingRatio)
}

func TestTariffHolderDefaultsWithoutFile(t *testing.T) {
	holder, err := NewTariffConfigHolder(Config{})
	require.NoError(t, err)
	assert.Equal(t, tariff.DefaultConfig(), holder.Get())
}

func TestTariffHolderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariff.yml")
	content := []byte("tariff:\n  tier1Limit: 30\n  tier1Rate: 2000\n  tier2Rate: 3500\n  adminFee: 4000\n  penaltyPerMonth: 1000\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewTariffConfigHolder(Config{TariffFile: path})
	require.NoError(t, err)
	assert.Equal(t, tariff.Config{
		Tier1Limit:      30,
		Tier1Rate:       2000,
		Tier2Rate:       3500,
		AdminFee:        4000,
		PenaltyPerMonth: 1000,
	}, holder.Get())
}

func TestTariffHolderRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariff.yml")
	require.NoError(t, os.WriteFile(path, []byte("tariff:\n  tier1Rate: -5\n"), 0o600))

	_, err := NewTariffConfigHolder(Config{TariffFile: path})
	assert.ErrorIs(t, err, tariff.ErrInvalidConfig)
}

func TestTariffHolderMissingExplicitFile(t *testing.T) {
	_, err := NewTariffConfigHolder(Config{TariffFile: filepath.Join(t.TempDir(), "absent.yml")})
	assert.Error(t, err)
}
