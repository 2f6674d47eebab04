package config_test

import (
	"testing"
	"time"

	"github.com/jhoicas/massa-api/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "massa-api", cfg.App.Name)
	assert.Equal(t, config.StoreDriverPostgres, cfg.App.StoreDriver)
	assert.Equal(t, "0.01", cfg.Mass.Tolerance.String(), "ε por defecto debe ser 0,01 t")
	assert.Equal(t, 3, cfg.Mass.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Mass.RetryBackoff)
	assert.Zero(t, cfg.Sweep.Interval, "el barrido periódico arranca deshabilitado")
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.EqualValues(t, 25, cfg.DB.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.DB.LockTimeout)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("MASS_TOLERANCE", "0.001")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("SWEEP_INTERVAL_MINUTES", "15")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RECORD_MAX_ATTEMPTS", "5")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.001", cfg.Mass.Tolerance.String())
	assert.Equal(t, config.StoreDriverMemory, cfg.App.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.Sweep.Interval)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 5, cfg.Mass.MaxAttempts)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("tolerancia no numérica", func(t *testing.T) {
		t.Setenv("MASS_TOLERANCE", "abc")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("tolerancia negativa", func(t *testing.T) {
		t.Setenv("MASS_TOLERANCE", "-0.5")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("driver desconocido", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "sqlite")
		_, err := config.Load()
		assert.Error(t, err)
	})
}

func TestDBConfig_DSN(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "massa", Password: "p@ss word", DBName: "massa", SSLMode: "disable"}
	assert.Equal(t, "postgres://massa:p%40ss%20word@db:5432/massa?sslmode=disable", c.DSN())
	assert.Equal(t, c.DSN(), c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
