package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the storefront runtime configuration. Keys match the environment
// variables that override them.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseDSN    string `mapstructure:"DATABASE_DSN"`

	// Empty means in-process stores.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// Empty means notifications are delivered inline.
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	// Empty means the sandbox processor.
	StripeSecretKey     string        `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string        `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	PaymentTimeout      time.Duration `mapstructure:"PAYMENT_TIMEOUT"`
	BreakerFailures     uint32        `mapstructure:"PAYMENT_BREAKER_FAILURES"`
	BreakerOpenTimeout  time.Duration `mapstructure:"PAYMENT_BREAKER_TIMEOUT"`

	CheckoutTokenSecret string        `mapstructure:"CHECKOUT_TOKEN_SECRET"`
	CheckoutTokenTTL    time.Duration `mapstructure:"CHECKOUT_TOKEN_TTL"`
	PricingFloor        string        `mapstructure:"PRICING_FLOOR"`
	PricingCurrency     string        `mapstructure:"PRICING_CURRENCY"`
	IdempotencyWindow   time.Duration `mapstructure:"IDEMPOTENCY_WINDOW"`
	CartTTL             time.Duration `mapstructure:"CART_TTL"`

	SMTPHost      string `mapstructure:"SMTP_HOST"`
	SMTPPort      int    `mapstructure:"SMTP_PORT"`
	SMTPUser      string `mapstructure:"SMTP_USER"`
	SMTPPassword  string `mapstructure:"SMTP_PASSWORD"`
	MailFrom      string `mapstructure:"MAIL_FROM"`
	BusinessEmail string `mapstructure:"BUSINESS_EMAIL"`
	BusinessPhone string `mapstructure:"BUSINESS_PHONE"`

	TwilioAccountSID string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `mapstructure:"TWILIO_FROM_NUMBER"`

	NotifyTimeout time.Duration `mapstructure:"NOTIFY_TIMEOUT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"APP_PORT":                 ":8080",
	"DATABASE_DRIVER":          "sqlite",
	"DATABASE_DSN":             "file:storefront.db?cache=shared",
	"REDIS_ADDR":               "",
	"RABBITMQ_URL":             "",
	"STRIPE_SECRET_KEY":        "",
	"STRIPE_WEBHOOK_SECRET":    "",
	"PAYMENT_TIMEOUT":          "15s",
	"PAYMENT_BREAKER_FAILURES": 5,
	"PAYMENT_BREAKER_TIMEOUT":  "30s",
	"CHECKOUT_TOKEN_SECRET":    "",
	"CHECKOUT_TOKEN_TTL":       "1h",
	"PRICING_FLOOR":            "0.50",
	"PRICING_CURRENCY":         "usd",
	"IDEMPOTENCY_WINDOW":       "10m",
	"CART_TTL":                 "24h",
	"SMTP_HOST":                "",
	"SMTP_PORT":                465,
	"SMTP_USER":                "",
	"SMTP_PASSWORD":            "",
	"MAIL_FROM":                "",
	"BUSINESS_EMAIL":           "",
	"BUSINESS_PHONE":           "",
	"TWILIO_ACCOUNT_SID":       "",
	"TWILIO_AUTH_TOKEN":        "",
	"TWILIO_FROM_NUMBER":       "",
	"NOTIFY_TIMEOUT":           "10s",
	"LOG_LEVEL":                "info",
	"LOG_FORMAT":               "json",
}

// Load reads configuration from defaults, an optional file, and the
// environment, in increasing order of precedence.
func Load(file string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if floor, err := decimal.NewFromString(c.PricingFloor); err != nil || !floor.IsPositive() {
		errs = append(errs, fmt.Errorf("PRICING_FLOOR must be a positive amount, got %q", c.PricingFloor))
	}
	if c.PricingCurrency == "" {
		errs = append(errs, errors.New("PRICING_CURRENCY is required"))
	}
	if c.StripeSecretKey != "" && c.StripeWebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required with STRIPE_SECRET_KEY"))
	}
	if c.StripeSecretKey != "" && c.CheckoutTokenSecret == "" {
		errs = append(errs, errors.New("CHECKOUT_TOKEN_SECRET is required with STRIPE_SECRET_KEY"))
	}
	if c.PaymentTimeout <= 0 || c.IdempotencyWindow <= 0 || c.CheckoutTokenTTL <= 0 {
		errs = append(errs, errors.New("PAYMENT_TIMEOUT, IDEMPOTENCY_WINDOW and CHECKOUT_TOKEN_TTL must be positive"))
	}

	return errors.Join(errs...)
}

// Floor is the minimum per-unit charge in major units.
func (c *Config) Floor() decimal.Decimal {
	return decimal.RequireFromString(c.PricingFloor)
}

// Currency is the lower-cased processor currency code.
func (c *Config) Currency() string {
	return strings.ToLower(c.PricingCurrency)
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// SMSEnabled reports whether Twilio credentials are configured.
func (c *Config) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}
