// Package config loads the process configuration once at startup. The
// resulting struct is never mutated afterwards.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// VAPIDConfig is the process-wide key pair used to sign push requests. The
// zero value is the explicit "unconfigured" variant; callers check
// Configured() instead of scattering nil checks.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	// Subscriber is the contact address the push gateway may use to reach
	// the operator, required by the VAPID scheme.
	Subscriber string
}

func (v VAPIDConfig) Configured() bool {
	return v.PublicKey != "" && v.PrivateKey != ""
}

// Config carries everything the server needs at startup.
type Config struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string

	// InternalSecret guards the send endpoint. Calls carrying it are
	// trusted internal callers, independent of user authentication.
	InternalSecret string

	JWTPublicKey  string
	JWTPrivateKey string

	VAPID VAPIDConfig

	ReminderInterval time.Duration
	ReminderBatch    int
}

// Load reads configuration from the environment, with .env files as a
// development convenience.
func Load() (*Config, error) {
	_ = godotenv.Load(".env", "../.env")

	cfg := &Config{
		Port:           envOr("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		InternalSecret: os.Getenv("INTERNAL_SECRET"),
		JWTPublicKey:   os.Getenv("JWT_PUBLIC_KEY"),
		JWTPrivateKey:  os.Getenv("JWT_PRIVATE_KEY"),
		VAPID: VAPIDConfig{
			PublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
			PrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
			Subscriber: envOr("VAPID_SUBSCRIBER", "ops@visitaflow.app"),
		},
		ReminderInterval: 30 * time.Second,
		ReminderBatch:    50,
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	if raw := os.Getenv("REMINDER_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REMINDER_INTERVAL %q: %w", raw, err)
		}
		cfg.ReminderInterval = interval
	}

	if cfg.JWTPublicKey == "" {
		return nil, fmt.Errorf("JWT_PUBLIC_KEY is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
