package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.True(t, cfg.Floor().Equal(decimal.RequireFromString("0.50")))
	assert.Equal(t, "usd", cfg.Currency())
	assert.Equal(t, 10*time.Minute, cfg.IdempotencyWindow)
	assert.Equal(t, 15*time.Second, cfg.PaymentTimeout)
	assert.False(t, cfg.MailEnabled())
	assert.False(t, cfg.SMSEnabled())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PRICING_FLOOR", "1.00")
	t.Setenv("PRICING_CURRENCY", "USD")
	t.Setenv("IDEMPOTENCY_WINDOW", "2m")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Floor().Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "usd", cfg.Currency())
	assert.Equal(t, 2*time.Minute, cfg.IdempotencyWindow)
	assert.True(t, cfg.MailEnabled())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT: \":9090\"\nBUSINESS_EMAIL: owner@example.com\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, "owner@example.com", cfg.BusinessEmail)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }},
		{"zero floor", func(c *Config) { c.PricingFloor = "0" }},
		{"bad floor", func(c *Config) { c.PricingFloor = "fifty cents" }},
		{"stripe without webhook secret", func(c *Config) { c.StripeSecretKey = "sk_test_x" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
