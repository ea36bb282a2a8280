/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string // empty disables the metrics listener

	// Rain band used when a session does not supply its own.
	MinRainPercent float64
	MaxRainPercent float64

	// Reveal timing
	RevealProfile string // name of a built-in or file-defined profile
	ProfilesFile  string // optional YAML file with extra profiles

	// Session registry
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration

	LogBufferSize int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("WEATHERSLOTS_ENV", "development"),
		HTTPBind:    getEnv("WEATHERSLOTS_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("WEATHERSLOTS_HTTP_PORT", 8080),
		MetricsBind: getEnv("WEATHERSLOTS_METRICS_BIND", "127.0.0.1:9000"),

		MinRainPercent: getEnvFloat("WEATHERSLOTS_MIN_RAIN_PERCENT", 0),
		MaxRainPercent: getEnvFloat("WEATHERSLOTS_MAX_RAIN_PERCENT", 100),

		RevealProfile: getEnv("WEATHERSLOTS_REVEAL_PROFILE", "slow"),
		ProfilesFile:  getEnv("WEATHERSLOTS_PROFILES_FILE", ""),

		SessionIdleTTL:       time.Duration(getEnvInt("WEATHERSLOTS_SESSION_IDLE_MINUTES", 30)) * time.Minute,
		SessionSweepInterval: time.Duration(getEnvInt("WEATHERSLOTS_SESSION_SWEEP_SECONDS", 60)) * time.Second,

		LogBufferSize: getEnvInt("WEATHERSLOTS_LOG_BUFFER_SIZE", 2000),

		TracingEnabled:    getEnvBool("WEATHERSLOTS_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("WEATHERSLOTS_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("WEATHERSLOTS_TRACING_SAMPLE_RATE", 1.0),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("WEATHERSLOTS_HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort)
	}
	// The generator clamps any band, but a misconfigured default is worth failing loudly on.
	for _, v := range []float64{c.MinRainPercent, c.MaxRainPercent} {
		if v < 0 || v > 100 {
			return fmt.Errorf("rain percent bounds must be within 0..100, got %v..%v", c.MinRainPercent, c.MaxRainPercent)
		}
	}
	if strings.TrimSpace(c.RevealProfile) == "" {
		return fmt.Errorf("WEATHERSLOTS_REVEAL_PROFILE must not be empty")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("WEATHERSLOTS_SESSION_IDLE_MINUTES must be positive")
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("WEATHERSLOTS_SESSION_SWEEP_SECONDS must be positive")
	}
	return nil
}

// HTTPAddr returns the listen address for the API server.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
