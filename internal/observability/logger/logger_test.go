package logger

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/tirta/internal/auditcontext"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsRequestAndActor(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := auditcontext.WithRequestID(context.Background(), "req-1")
	ctx = auditcontext.WithActor(ctx, auditcontext.Actor{Type: "user", ID: "42", Role: "admin"})
	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "42", fields["actor_id"])
	assert.Equal(t, "admin", fields["actor_role"])
}

func TestWithContextWithoutValuesKeepsBase(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, WithContext(context.Background(), base))
}

func TestGormLoggerLogsSlowQueries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	l := NewGormLogger(GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: time.Millisecond})
	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT * FROM bills WHERE id = ?", 1
	}, nil)
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, gormlogger.ErrRecordNotFound)

	entries := logs.FilterMessage("gorm.query").All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "SELECT", entries[0].ContextMap()["operation"])
	assert.Equal(t, true, entries[0].ContextMap()["slow"])
}

func TestSQLOperation(t *testing.T) {
	assert.Equal(t, "UPDATE", sqlOperation("  update customers set total_bill = ?"))
	assert.Equal(t, "SELECT", sqlOperation("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "UNKNOWN", sqlOperation(""))
}
