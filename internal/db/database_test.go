package db

import (
	"testing"
	"time"

	"github.com/batgear/batstore-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestOpen_AppliesPoolSettings(t *testing.T) {
	cfg := &config.DatabaseConfig{
		MaxIdleConns:    2,
		MaxOpenConns:    3,
		ConnMaxLifetime: time.Minute,
		PingTimeout:     time.Second,
	}

	conn, err := Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	assert.Equal(t, 3, sqlDB.Stats().MaxOpenConnections)
	assert.NoError(t, sqlDB.Ping())
}

func TestOpen_ZeroLimitsKeepDriverDefaults(t *testing.T) {
	conn, err := Open(sqlite.Open(":memory:"), &config.DatabaseConfig{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	assert.Equal(t, 0, sqlDB.Stats().MaxOpenConnections)
}

func TestClose_WithoutInitialize(t *testing.T) {
	prev := DB
	DB = nil
	t.Cleanup(func() { DB = prev })

	assert.NoError(t, Close())
}
