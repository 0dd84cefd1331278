// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/astroremedis/astrochat/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	BackendURL      string
	AllowedOrigin   string
	DBPath          string
	SessionTTL      time.Duration
	EventRetention  time.Duration
	DefaultTimezone string
	Widget          WidgetConfig
}

// WidgetConfig is the embed contract handed to the injection script.
type WidgetConfig struct {
	IframeURL string `json:"iframeUrl"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Position  string `json:"position"`
	IconURL   string `json:"iconUrl,omitempty"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		BackendURL:      getEnv("BACKEND_URL", ""),
		AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "*"),
		DBPath:          getEnv("DB_PATH", "./data/astrochat.db"),
		SessionTTL:      time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		EventRetention:  time.Duration(getEnvInt("EVENT_RETENTION_DAYS", 30)) * 24 * time.Hour,
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", domain.DefaultTimezone),
		Widget: WidgetConfig{
			IframeURL: getEnv("WIDGET_IFRAME_URL", ""),
			Width:     getEnvInt("WIDGET_WIDTH", 400),
			Height:    getEnvInt("WIDGET_HEIGHT", 600),
			Position:  getEnv("WIDGET_POSITION", "right"),
			IconURL:   getEnv("WIDGET_ICON_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set. A missing
// widget iframe URL is fatal here so the embed endpoint never serves an
// unusable configuration.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Widget.IframeURL == "" {
		return fmt.Errorf("WIDGET_IFRAME_URL cannot be empty")
	}
	if c.Widget.Position != "left" && c.Widget.Position != "right" {
		return fmt.Errorf("WIDGET_POSITION must be \"left\" or \"right\"")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.AllowedOrigin == "*" ||
		strings.Contains(c.AllowedOrigin, "localhost") ||
		strings.Contains(c.AllowedOrigin, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
