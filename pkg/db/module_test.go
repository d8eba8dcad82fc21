package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestCloseOnStopClosesPool(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())

	lc := fxtest.NewLifecycle(t)
	closeOnStop(lc, sqlDB, zap.NewNop())
	lc.RequireStart()
	require.NoError(t, sqlDB.Ping())
	lc.RequireStop()

	assert.Error(t, sqlDB.Ping())
}
