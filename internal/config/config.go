// Package config loads and validates all environment variables at startup.
// Every other package receives typed values — nothing reads os.Getenv
// directly.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port string // default "8080"
	Env  string // "development" | "staging" | "production"

	// ── Receipt creation ──────────────────────────────────────────────────────
	APIPass string // shared secret required in every create-receipt request
	AppName string // display name used as the declared income position

	// ── Tax service (lknpd.nalog.ru) ──────────────────────────────────────────
	NalogINN          string // taxpayer INN, part of the printable-receipt URL
	NalogRefreshToken string
	NalogDeviceID     string // optional; generated when empty
	NalogBaseURL      string // default production API root

	// ── SMTP ──────────────────────────────────────────────────────────────────
	SMTPHost     string
	SMTPPort     string // default "465" (implicit TLS)
	SMTPUser     string // also the From address
	SMTPPassword string
	MailFromName string // default AppName

	// ── Failure handling ──────────────────────────────────────────────────────
	AdminEmail string // recipient of registration-failure alerts
	ErrorFile  string // default "errors.json"
}

// Load reads all environment variables and returns a validated Config.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // file absent — that's fine

	c := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		APIPass:           os.Getenv("API_PASS"),
		AppName:           getEnv("APP_NAME", "npd-receipt-backend"),
		NalogINN:          os.Getenv("NALOG_INN"),
		NalogRefreshToken: os.Getenv("NALOG_REFRESH_TOKEN"),
		NalogDeviceID:     os.Getenv("NALOG_DEVICE_ID"),
		NalogBaseURL:      getEnv("NALOG_BASE_URL", "https://lknpd.nalog.ru/api/v1"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getEnv("SMTP_PORT", "465"),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		MailFromName:      os.Getenv("MAIL_FROM_NAME"),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		ErrorFile:         getEnv("ERROR_FILE", "errors.json"),
	}

	if c.MailFromName == "" {
		c.MailFromName = c.AppName
	}

	return c, c.validate()
}

func (c *Config) validate() error {
	var errs []error

	required := map[string]string{
		"API_PASS":            c.APIPass,
		"NALOG_INN":           c.NalogINN,
		"NALOG_REFRESH_TOKEN": c.NalogRefreshToken,
		"SMTP_HOST":           c.SMTPHost,
		"SMTP_USER":           c.SMTPUser,
		"SMTP_PASSWORD":       c.SMTPPassword,
		"ADMIN_EMAIL":         c.AdminEmail,
	}

	for name, val := range required {
		if val == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", name))
		}
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
