package limiter

import (
	"fmt"
	"strings"
	"time"
)

// LimiterConfig holds configuration for creating a rate limiter
type LimiterConfig struct {
	Type   string        // "window" or "redis"
	Limit  int           // Calls allowed per window
	Window time.Duration // Window length

	// Redis-specific config
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// OnPause is called before every suspension (optional)
	OnPause PauseFunc
}

// Factory creates a fresh limiter for one run
type Factory func() (Limiter, error)

// NewLimiter creates a rate limiter based on the configuration (factory pattern)
func NewLimiter(cfg LimiterConfig) (Limiter, error) {
	limiterType := strings.ToLower(strings.TrimSpace(cfg.Type))

	var opts []WindowOption
	if cfg.OnPause != nil {
		opts = append(opts, WithPauseHook(cfg.OnPause))
	}

	switch limiterType {
	case "window", "":
		// Per-run counter, the default
		return NewWindowLimiter(cfg.Limit, cfg.Window, opts...), nil

	case "redis":
		// Shared budget across processes
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = "geo-quota"
		}
		limiter, err := DialRedisLimiter(
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			prefix,
			cfg.Limit,
			cfg.Window,
			opts...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis limiter: %w", err)
		}
		return limiter, nil

	default:
		return nil, fmt.Errorf("unknown rate limiter type: %s (supported: 'window', 'redis')", cfg.Type)
	}
}

// NewFactory returns a Factory producing limiters from cfg
func NewFactory(cfg LimiterConfig) Factory {
	return func() (Limiter, error) {
		return NewLimiter(cfg)
	}
}
