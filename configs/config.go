package config

import (
	"errors"
	"log"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogDev      bool   `mapstructure:"LOG_DEV"`

	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`

	CommissionPercent float64 `mapstructure:"COMMISSION_PERCENT"`
	MinPayout         float64 `mapstructure:"MIN_PAYOUT"`
	ReferralTTLHours  int     `mapstructure:"REFERRAL_TTL_HOURS"`

	PaymentProvider           string `mapstructure:"PAYMENT_PROVIDER"`
	Currency                  string `mapstructure:"CURRENCY"`
	PaymentPollAttempts       int    `mapstructure:"PAYMENT_POLL_ATTEMPTS"`
	PaymentPollBackoffSeconds int    `mapstructure:"PAYMENT_POLL_BACKOFF_SECONDS"`
	StaleSessionMinutes       int    `mapstructure:"STALE_SESSION_MINUTES"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	PayPalAPIBaseURL    string `mapstructure:"PAYPAL_API_BASE_URL"`
	PayPalClientID      string `mapstructure:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret  string `mapstructure:"PAYPAL_CLIENT_SECRET"`
	PayPalWebhookID     string `mapstructure:"PAYPAL_WEBHOOK_ID"`

	BrevoAPIKey     string `mapstructure:"BREVO_API_KEY"`
	EmailSender     string `mapstructure:"EMAIL_SENDER"`
	EmailSenderName string `mapstructure:"EMAIL_SENDER_NAME"`

	CloudinaryURL   string `mapstructure:"CLOUDINARY_URL"`
	TurnstileSecret string `mapstructure:"TURNSTILE_SECRET"`

	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
	AdminFullName string `mapstructure:"ADMIN_FULL_NAME"`
}

var keys = []string{
	"SERVER_PORT", "DATABASE_URL", "FRONTEND_URL", "LOG_LEVEL", "LOG_DEV",
	"JWT_SECRET", "JWT_EXPIRATION_HOURS",
	"COMMISSION_PERCENT", "MIN_PAYOUT", "REFERRAL_TTL_HOURS",
	"PAYMENT_PROVIDER", "CURRENCY", "PAYMENT_POLL_ATTEMPTS", "PAYMENT_POLL_BACKOFF_SECONDS", "STALE_SESSION_MINUTES",
	"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET",
	"PAYPAL_API_BASE_URL", "PAYPAL_CLIENT_ID", "PAYPAL_CLIENT_SECRET", "PAYPAL_WEBHOOK_ID",
	"BREVO_API_KEY", "EMAIL_SENDER", "EMAIL_SENDER_NAME",
	"CLOUDINARY_URL", "TURNSTILE_SECRET",
	"ADMIN_EMAIL", "ADMIN_PASSWORD", "ADMIN_FULL_NAME",
}

// LoadConfig reads an optional .env file from path and then the environment.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("FRONTEND_URL", "http://localhost:3000")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_EXPIRATION_HOURS", 24)
	viper.SetDefault("COMMISSION_PERCENT", 10)
	viper.SetDefault("MIN_PAYOUT", 50)
	viper.SetDefault("REFERRAL_TTL_HOURS", 24)
	viper.SetDefault("PAYMENT_PROVIDER", "stripe")
	viper.SetDefault("CURRENCY", "eur")
	viper.SetDefault("PAYMENT_POLL_ATTEMPTS", 5)
	viper.SetDefault("PAYMENT_POLL_BACKOFF_SECONDS", 2)
	viper.SetDefault("STALE_SESSION_MINUTES", 60)
	viper.SetDefault("PAYPAL_API_BASE_URL", "https://api-m.sandbox.paypal.com")
	viper.SetDefault("ADMIN_FULL_NAME", "Administrator")
	viper.AutomaticEnv()

	for _, key := range keys {
		_ = viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch cfg.PaymentProvider {
	case "stripe", "paypal":
	default:
		return nil, errors.New("PAYMENT_PROVIDER must be stripe or paypal")
	}

	return &cfg, nil
}

func (c *Config) JWTExpiration() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

func (c *Config) ReferralTTL() time.Duration {
	return time.Duration(c.ReferralTTLHours) * time.Hour
}

func (c *Config) PaymentPollBackoff() time.Duration {
	return time.Duration(c.PaymentPollBackoffSeconds) * time.Second
}

func (c *Config) StaleSessionAge() time.Duration {
	return time.Duration(c.StaleSessionMinutes) * time.Minute
}
