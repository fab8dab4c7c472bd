package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"ibpconv/internal/exporter"
	"ibpconv/internal/period"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Conversion ConversionConfig `yaml:"conversion" envconfig:"CONVERSION"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"` // json or text
	Output   string `yaml:"output" envconfig:"OUTPUT"` // stdout, stderr, file or both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// ConversionConfig holds the defaults applied to conversion requests.
type ConversionConfig struct {
	DefaultGranularity    string `yaml:"default_granularity" envconfig:"DEFAULT_GRANULARITY"`
	DefaultKeyFigure      string `yaml:"default_keyfigure" envconfig:"DEFAULT_KEYFIGURE"`
	DefaultFormat         string `yaml:"default_format" envconfig:"DEFAULT_FORMAT"`
	SkipEmptyValues       bool   `yaml:"skip_empty_values" envconfig:"SKIP_EMPTY_VALUES"`
	AllowDuplicatePeriods bool   `yaml:"allow_duplicate_periods" envconfig:"ALLOW_DUPLICATE_PERIODS"`
	BOMPrefix             bool   `yaml:"bom_prefix" envconfig:"BOM_PREFIX"`
	PreviewRows           int    `yaml:"preview_rows" envconfig:"PREVIEW_ROWS"`
	SampleHeaders         int    `yaml:"sample_headers" envconfig:"SAMPLE_HEADERS"`
	// Workers bounds concurrent header parsing; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers" envconfig:"WORKERS"`
}

// Granularity returns the parsed default granularity.
func (c ConversionConfig) Granularity() period.Granularity {
	g, err := period.ParseGranularity(c.DefaultGranularity)
	if err != nil {
		return period.Month
	}
	return g
}

// TelemetryConfig controls tracing and metrics.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	// TraceExporter is "stdout" or "none".
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
}

// Load loads configuration from defaults, the config file if one exists and
// environment variables, in that order of precedence.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file; an empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks ranges and normalises enumerated values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload bytes must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	c.Logging.Format = strings.ToLower(c.Logging.Format)
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	c.Logging.Output = strings.ToLower(c.Logging.Output)
	switch c.Logging.Output {
	case "stdout", "stderr":
	case "file", "both":
		if c.Logging.FilePath == "" {
			return fmt.Errorf("log file path is required for output %q", c.Logging.Output)
		}
	default:
		return fmt.Errorf("invalid log output: %q", c.Logging.Output)
	}

	g, err := period.ParseGranularity(c.Conversion.DefaultGranularity)
	if err != nil {
		return err
	}
	c.Conversion.DefaultGranularity = string(g)

	if strings.TrimSpace(c.Conversion.DefaultKeyFigure) == "" {
		return fmt.Errorf("default key figure must not be empty")
	}

	f, err := exporter.ParseFormat(c.Conversion.DefaultFormat)
	if err != nil {
		return err
	}
	c.Conversion.DefaultFormat = string(f)

	if c.Conversion.PreviewRows <= 0 || c.Conversion.SampleHeaders <= 0 {
		return fmt.Errorf("preview rows and sample headers must be positive")
	}

	if c.Conversion.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}

	if c.Telemetry.TraceExporter != "stdout" && c.Telemetry.TraceExporter != "none" {
		return fmt.Errorf("invalid trace exporter: %q", c.Telemetry.TraceExporter)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxUploadBytes:  DefaultMaxUploadBytes,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "stdout",
			FilePath: "logs/ibpconv.log",
		},
		Conversion: ConversionConfig{
			DefaultGranularity: DefaultGranularity,
			DefaultKeyFigure:   DefaultKeyFigure,
			DefaultFormat:      DefaultOutputFormat,
			BOMPrefix:          false,
			PreviewRows:        DefaultPreviewRows,
			SampleHeaders:      DefaultSampleHeaders,
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			ServiceName:   "ibpconv",
			TraceExporter: "none",
		},
	}
}
