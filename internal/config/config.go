package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/time/rate"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port string `envconfig:"PORT" default:"8080"`

	// Security
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080,http://localhost:3000"`

	// Rate Limiting
	RateLimitAPI         rate.Limit `envconfig:"RATE_LIMIT_API" default:"10"`
	RateLimitWS          rate.Limit `envconfig:"RATE_LIMIT_WS" default:"5"`
	RateLimitEvents      rate.Limit `envconfig:"RATE_LIMIT_EVENTS" default:"20"`
	RateLimitEventsBurst int        `envconfig:"RATE_LIMIT_EVENTS_BURST" default:"40"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug, info, warn, error, silent

	// Storage
	DatabasePath     string `envconfig:"DATABASE_PATH" default:"./data/realtime.db"`
	PersistQueueSize int    `envconfig:"PERSIST_QUEUE_SIZE" default:"1024"`
	PersistAttempts  int    `envconfig:"PERSIST_MAX_ATTEMPTS" default:"5"`

	// WebSocket
	MaxMessageSize int `envconfig:"MAX_MESSAGE_SIZE" default:"16384"`
	SendBufferSize int `envconfig:"SEND_BUFFER_SIZE" default:"256"`

	// Signaling
	CallInviteTimeout time.Duration `envconfig:"CALL_INVITE_TIMEOUT" default:"30s"`
	CallRetention     time.Duration `envconfig:"CALL_RETENTION" default:"5m"`
	ResumeGrace       time.Duration `envconfig:"RESUME_GRACE" default:"5s"`
	DedupeWindow      int           `envconfig:"DEDUPE_WINDOW" default:"256"`
}

// Load reads the configuration from the environment, applying defaults
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.AllowedOrigins = cleanOrigins(cfg.AllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the hub cannot run with
func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return fmt.Errorf("config: PORT must not be empty")
	case c.MaxMessageSize <= 0:
		return fmt.Errorf("config: MAX_MESSAGE_SIZE must be positive")
	case c.SendBufferSize <= 0:
		return fmt.Errorf("config: SEND_BUFFER_SIZE must be positive")
	case c.CallInviteTimeout <= 0:
		return fmt.Errorf("config: CALL_INVITE_TIMEOUT must be positive")
	case c.CallRetention <= 0:
		return fmt.Errorf("config: CALL_RETENTION must be positive")
	case c.ResumeGrace < 0:
		return fmt.Errorf("config: RESUME_GRACE must not be negative")
	case c.DedupeWindow <= 0:
		return fmt.Errorf("config: DEDUPE_WINDOW must be positive")
	case c.PersistQueueSize <= 0:
		return fmt.Errorf("config: PERSIST_QUEUE_SIZE must be positive")
	case c.PersistAttempts <= 0:
		return fmt.Errorf("config: PERSIST_MAX_ATTEMPTS must be positive")
	case c.RateLimitEvents <= 0 || c.RateLimitEventsBurst <= 0:
		return fmt.Errorf("config: RATE_LIMIT_EVENTS and RATE_LIMIT_EVENTS_BURST must be positive")
	}
	return nil
}

// NewLogger builds the process logger from LogLevel
func (c *Config) NewLogger() *slog.Logger {
	var w io.Writer = os.Stderr
	level := slog.LevelInfo
	switch strings.ToLower(c.LogLevel) {
	case "silent", "off":
		w = io.Discard
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// IsOriginAllowed checks if the origin is in the allowed list
func (c *Config) IsOriginAllowed(origin string) bool {
	// Empty origin is allowed (same-origin requests)
	if origin == "" {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

// cleanOrigins trims entries and drops empty ones
func cleanOrigins(origins []string) []string {
	result := make([]string, 0, len(origins))
	for _, p := range origins {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
