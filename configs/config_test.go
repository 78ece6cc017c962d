package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 450*time.Millisecond, cfg.Checkout.DebounceDelay())
	assert.Equal(t, 60*time.Second, cfg.Checkout.PickupCacheTTL)
	assert.Equal(t, "cart_id", cfg.Session.CartIDCookie)
	assert.Equal(t, cfg.Backend.CartURL, cfg.Backend.CheckoutURL)
	assert.Equal(t, "storefront-events", cfg.Kafka.Topic)
	assert.False(t, cfg.SecureCookies())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("STOREFRONT_CHECKOUT_DEBOUNCE_MS", "200")
	t.Setenv("STOREFRONT_BACKEND_CART_URL", "https://shop.example.com/api")
	t.Setenv("STOREFRONT_SERVER_MODE", "release")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, cfg.Checkout.DebounceDelay())
	assert.Equal(t, "https://shop.example.com/api", cfg.Backend.CartURL)
	assert.True(t, cfg.SecureCookies())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	content := `
backend:
  cart_url: http://carts.internal/api
  checkout_url: http://checkouts.internal/api
checkout:
  debounce_ms: 300
  idle_ttl: 5m
session:
  access_cookie: sf_token
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://checkouts.internal/api", cfg.Backend.CheckoutURL)
	assert.Equal(t, 300*time.Millisecond, cfg.Checkout.DebounceDelay())
	assert.Equal(t, 5*time.Minute, cfg.Checkout.IdleTTL)
	assert.Equal(t, "sf_token", cfg.Session.AccessCookie)
	assert.Equal(t, "cart_refresh_token", cfg.Session.RefreshCookie)
	assert.Equal(t, "cart_client", cfg.Session.ClientCookie)
	assert.Equal(t, 3600, cfg.Session.ClientMaxAge)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Backend:  BackendConfig{CartURL: "http://backend"},
			Session:  SessionConfig{CartIDCookie: "a", AccessCookie: "b", RefreshCookie: "c"},
			Checkout: CheckoutConfig{DebounceMS: 450},
			JWT:      JWTConfig{SecretKey: "your-secret-key"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no cart url", mutate: func(c *Config) { c.Backend.CartURL = "" }},
		{name: "zero debounce", mutate: func(c *Config) { c.Checkout.DebounceMS = 0 }},
		{name: "blank cookie name", mutate: func(c *Config) { c.Session.AccessCookie = "" }},
		{name: "default secret in production", mutate: func(c *Config) { c.Server.Production = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
