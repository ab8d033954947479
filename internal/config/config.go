// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :5000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// MaxUsers is the verified-user slot limit (first N verified users win).
	MaxUsers int `mapstructure:"MAX_USERS"`
	// OTPTTL is the OTP validity window (e.g. "10m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// BrevoAPIKey is the API key for the Brevo transactional email API. OTP emails are skipped (logged) when empty.
	BrevoAPIKey string `mapstructure:"BREVO_API_KEY"`
	// BrevoBaseURL is the Brevo API base URL (default https://api.brevo.com).
	BrevoBaseURL string `mapstructure:"BREVO_BASE_URL"`
	// EmailSenderName is the display name OTP emails are sent as.
	EmailSenderName string `mapstructure:"EMAIL_SENDER_NAME"`
	// EmailSenderAddress is the from address for OTP emails.
	EmailSenderAddress string `mapstructure:"EMAIL_SENDER_ADDRESS"`
	// CORSAllowOrigins is a comma-separated list of allowed origins; "*" allows any.
	CORSAllowOrigins string `mapstructure:"CORS_ALLOW_ORIGINS"`
	// OTPReturnToClient when true echoes the OTP in register/resend responses so the
	// flow can be exercised without a mail provider. Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// Env is the application environment (e.g. "development", "production"). Gates the OTP echo
	// and whether unexpected error detail is included in 500 responses.
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MAX_USERS", 50)
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("BREVO_API_KEY", "")
	v.SetDefault("BREVO_BASE_URL", "https://api.brevo.com")
	v.SetDefault("EMAIL_SENDER_NAME", "Lapra-Tech")
	v.SetDefault("EMAIL_SENDER_ADDRESS", "no-reply@lapratech.com")
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.MaxUsers <= 0 {
		return nil, errors.New("config: MAX_USERS must be positive")
	}

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// OTPValidity parses OTPTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) OTPValidity() time.Duration {
	d, err := time.ParseDuration(c.OTPTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// AllowedOrigins returns origins from the comma-separated CORS config.
// An empty config or a lone "*" means any origin.
func (c *Config) AllowedOrigins() []string {
	if c == nil || c.CORSAllowOrigins == "" || c.CORSAllowOrigins == "*" {
		return []string{"*"}
	}
	parts := strings.Split(c.CORSAllowOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
