package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/tirta/internal/tariff"
	"github.com/spf13/viper"
)

// TariffConfigHolder serves the base tariff read from tariff.yml and swaps it
// atomically when the file changes. Database overrides are applied on top by
// the settings service.
type TariffConfigHolder struct {
	current atomic.Value // holds tariff.Config
}

func NewTariffConfigHolder(cfg Config) (*TariffConfigHolder, error) {
	v := viper.New()

	if cfg.TariffFile != "" {
		v.SetConfigFile(cfg.TariffFile)
	} else {
		v.SetConfigName("tariff")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/tirta")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TIRTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := tariff.DefaultConfig()
	v.SetDefault("tariff.tier1Limit", defaults.Tier1Limit)
	v.SetDefault("tariff.tier1Rate", defaults.Tier1Rate)
	v.SetDefault("tariff.tier2Rate", defaults.Tier2Rate)
	v.SetDefault("tariff.adminFee", defaults.AdminFee)
	v.SetDefault("tariff.penaltyPerMonth", defaults.PenaltyPerMonth)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfg.TariffFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var base tariff.Config
	if err := v.UnmarshalKey("tariff", &base); err != nil {
		return nil, err
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}

	holder := NewStaticTariffConfigHolder(base)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated tariff.Config
		if err := v.UnmarshalKey("tariff", &updated); err != nil {
			log.Printf("[tariff-config] reload failed: %v", err)
			return
		}
		if err := updated.Validate(); err != nil {
			log.Printf("[tariff-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[tariff-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticTariffConfigHolder is used by tests and by binaries that do not
// watch a file.
func NewStaticTariffConfigHolder(base tariff.Config) *TariffConfigHolder {
	holder := &TariffConfigHolder{}
	holder.current.Store(base)
	return holder
}

func (h *TariffConfigHolder) Get() tariff.Config {
	if h == nil {
		return tariff.DefaultConfig()
	}
	return h.current.Load().(tariff.Config)
}
