package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex/pkg/config"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "postgres", cfg.App.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.Ledger.LockTimeout)
	assert.Equal(t, 3, cfg.Ledger.RetryMaxAttempts)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "postgres://postgres:@localhost:5432/kardex?sslmode=disable", cfg.DB.ConnectionString())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "memory")
	v.Set("LEDGER_LOCK_TIMEOUT_MS", "250")
	v.Set("LEDGER_RETRY_MAX_ATTEMPTS", 0)
	v.Set("REDIS_HOST", "cache")
	v.Set("DATABASE_URL", "postgres://u:p@db:5432/x")
	v.Set("MEMORY_SEED_FILE", "seed.json")
	v.Set("DB_AUTO_MIGRATE", "true")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.App.StoreDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.Ledger.LockTimeout)
	assert.Equal(t, 1, cfg.Ledger.RetryMaxAttempts, "mínimo un intento")
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "seed.json", cfg.App.SeedFile)
	assert.True(t, cfg.App.AutoMigrate)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DB.ConnectionString())
}

func TestFromViper_DriverInvalido(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "sqlite")
	_, err := config.FromViper(v)
	assert.Error(t, err)
}

func TestDSN_EscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "h", Port: 5432, User: "u", Password: "p@ss/w", DBName: "d", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p%40ss%2Fw@h:5432/d?sslmode=require", c.DSN())
}
