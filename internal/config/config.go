package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	FeedsCSVPath string
	DBPath       string

	// Server settings
	ServerHost string
	ServerPort int

	// APIKey protects every /api/* route via the X-API-Key header.
	// CronSecret is the bearer token expected on the cron ingestion
	// route, which is exempt from the API key check.
	APIKey     string
	CronSecret string

	// Ingestion settings
	WorkerCount   int
	Interval      time.Duration
	RetentionDays int
	FetchTimeout  time.Duration

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		FeedsCSVPath:  DefaultFeedsCSVPath,
		DBPath:        DefaultDBPath,
		ServerHost:    DefaultServerHost,
		ServerPort:    DefaultServerPort,
		APIKey:        GetEnvString("NEWSDECK_API_KEY", ""),
		CronSecret:    GetEnvString("NEWSDECK_CRON_SECRET", ""),
		WorkerCount:   DefaultWorkerCount,
		Interval:      time.Duration(DefaultInterval) * time.Minute,
		RetentionDays: DefaultRetentionDays,
		FetchTimeout:  time.Duration(DefaultFetchTimeoutSec) * time.Second,
		LogLevel:      logLevel,
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
