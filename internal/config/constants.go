package config

import (
	"time"

	"ibpconv/pkg/contracts"
)

// Application constants
const (
	AppName    = "IBP Time-Series Converter"
	AppVersion = contracts.Version

	// EnvPrefix namespaces every environment variable, e.g. IBP_SERVER_PORT.
	EnvPrefix = "IBP"
	// ConfigFileEnv points at a YAML config file.
	ConfigFileEnv = "IBP_CONFIG_FILE"

	// Server defaults
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxUploadBytes  = 32 << 20 // 32MB

	// Rate limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Conversion defaults
	DefaultGranularity   = "MONTH"
	DefaultKeyFigure     = "FCST"
	DefaultOutputFormat  = "csv"
	DefaultPreviewRows   = 10
	DefaultSampleHeaders = 50

	// Log settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// API endpoints
	APIBasePath     = "/api/v1"
	HealthEndpoint  = "/api/health"
	MetricsEndpoint = "/metrics"
)
