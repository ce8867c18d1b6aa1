// Package config provides environment-driven configuration for the relay.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvXAIKey          = "XAI_API_KEY"
	EnvGeminiKey       = "GEMINI_API_KEY"
	EnvPort            = "PORT"
	EnvMaxSessions     = "MAX_SESSIONS"
	EnvSessionTimeout  = "SESSION_TIMEOUT_MS"
	EnvSweepInterval   = "SWEEP_INTERVAL_MS"
	EnvRateLimitWindow = "RATE_LIMIT_WINDOW_MS"
	EnvRateLimitMax    = "RATE_LIMIT_MAX"
	EnvAllowedOrigins  = "ALLOWED_ORIGINS"
)

// Defaults for the relay front door.
const (
	DefaultPort            = 3007
	DefaultMaxSessions     = 100
	DefaultSessionTimeout  = 30 * time.Minute
	DefaultSweepInterval   = 5 * time.Minute
	DefaultRateLimitWindow = time.Minute
	DefaultRateLimitMax    = 20
)

// DefaultAllowedOrigins is the CORS allow-list used when ALLOWED_ORIGINS is unset.
var DefaultAllowedOrigins = []string{
	"https://vocalia.ai",
	"https://dashboard.vocalia.ai",
	"http://localhost:3000",
	"http://localhost:3007",
}

// XAIKey returns the xAI API key, or "" when unset.
func XAIKey() string {
	return os.Getenv(EnvXAIKey)
}

// GeminiKey returns the Gemini API key, or "" when unset.
func GeminiKey() string {
	return os.Getenv(EnvGeminiKey)
}

// Port returns the listening port from PORT or the default.
func Port() int {
	return intEnv(EnvPort, DefaultPort)
}

// MaxSessions returns the session pool cap from MAX_SESSIONS or the default.
func MaxSessions() int {
	return intEnv(EnvMaxSessions, DefaultMaxSessions)
}

// SessionTimeout returns the idle-session threshold.
func SessionTimeout() time.Duration {
	return msEnv(EnvSessionTimeout, DefaultSessionTimeout)
}

// SweepInterval returns the idle-sweep interval.
func SweepInterval() time.Duration {
	return msEnv(EnvSweepInterval, DefaultSweepInterval)
}

// RateLimitWindow returns the rate-limit rolling window.
func RateLimitWindow() time.Duration {
	return msEnv(EnvRateLimitWindow, DefaultRateLimitWindow)
}

// RateLimitMax returns the request budget per window per client address.
func RateLimitMax() int {
	return intEnv(EnvRateLimitMax, DefaultRateLimitMax)
}

// AllowedOrigins returns the CORS allow-list from ALLOWED_ORIGINS
// (comma-separated) or the default list.
func AllowedOrigins() []string {
	raw := os.Getenv(EnvAllowedOrigins)
	if raw == "" {
		return DefaultAllowedOrigins
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	if len(origins) == 0 {
		return DefaultAllowedOrigins
	}
	return origins
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func msEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
