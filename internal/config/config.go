// Package config reads the web application settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// DevSessionSecret signs session cookies when SESSION_SECRET is unset.
// Never rely on it outside local development.
const DevSessionSecret = "insecure-development-secret"

type Config struct {
	Addr            string
	PerPage         int
	PaginationRange int
	SessionSecret   string
	SessionCookie   string
	SessionTTL      time.Duration
	SecureCookie    bool
	LoginRateLimit  int
}

// ConfigFromEnv reads app config from env vars, falling back to defaults
// for missing or malformed values.
func ConfigFromEnv() Config {
	cfg := Config{
		Addr:            os.Getenv("HTTP_ADDR"),
		PerPage:         intFromEnv("PER_PAGE", 6),
		PaginationRange: intFromEnv("PAGINATION_RANGE", 4),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		SessionCookie:   os.Getenv("SESSION_COOKIE"),
		SessionTTL:      time.Duration(intFromEnv("SESSION_TTL_HOURS", 24*14)) * time.Hour,
		SecureCookie:    os.Getenv("SESSION_SECURE_COOKIE") == "1",
		LoginRateLimit:  intFromEnv("LOGIN_RATE_LIMIT", 20),
	}
	if cfg.Addr == "" {
		cfg.Addr = "0.0.0.0:8431"
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "recipes_session"
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = DevSessionSecret
	}
	return cfg
}

func intFromEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
