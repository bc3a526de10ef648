package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "0.08", cfg.TaxRate.String())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.Remote.BaseURL)
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("TAX_RATE", "0.2")
	t.Setenv("REMOTE_ORDERS_URL", "http://orders.internal/")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ADMIN_EMAIL", " Admin@Example.com ")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, "0.2", cfg.TaxRate.String())
	assert.Equal(t, "http://orders.internal", cfg.Remote.BaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
}

func TestFromViper_Invalid(t *testing.T) {
	t.Run("tax rate", func(t *testing.T) {
		t.Setenv("TAX_RATE", "ten percent")
		_, err := FromViper(newViper())
		assert.Error(t, err)
	})
	t.Run("negative tax rate", func(t *testing.T) {
		t.Setenv("TAX_RATE", "-0.1")
		_, err := FromViper(newViper())
		assert.Error(t, err)
	})
	t.Run("backend", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "sqlite")
		_, err := FromViper(newViper())
		assert.Error(t, err)
	})
}
