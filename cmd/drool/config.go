package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	OutputDir       string        `mapstructure:"OUTPUT_DIR"`
	LibraryName     string        `mapstructure:"LIBRARY_NAME"`
	LibraryVersion  string        `mapstructure:"LIBRARY_VERSION"`
	FHIRVersion     string        `mapstructure:"FHIR_VERSION"`
	MappingFile     string        `mapstructure:"MAPPING_FILE"`
	MaxDepth        int           `mapstructure:"MAX_DEPTH"`
	ValueSetBaseURL string        `mapstructure:"VALUESET_BASE_URL"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	HTTPTimeout     time.Duration `mapstructure:"HTTP_TIMEOUT"`
	HTTPRetryMax    int           `mapstructure:"HTTP_RETRY_MAX"`
	CacheTTL        time.Duration `mapstructure:"CACHE_TTL"`
	CacheMaxSize    int           `mapstructure:"CACHE_MAX_SIZE"`
}

// flagKeys binds command line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":       "LOG_LEVEL",
	"out":             "OUTPUT_DIR",
	"library":         "LIBRARY_NAME",
	"library-version": "LIBRARY_VERSION",
	"mapping":         "MAPPING_FILE",
	"max-depth":       "MAX_DEPTH",
	"valueset-base":   "VALUESET_BASE_URL",
	"db":              "DATABASE_URL",
	"addr":            "HTTP_ADDR",
}

var defaults = map[string]interface{}{
	"LOG_LEVEL":         "info",
	"OUTPUT_DIR":        "output",
	"LIBRARY_NAME":      "RCKMS",
	"LIBRARY_VERSION":   "1.0.0",
	"FHIR_VERSION":      "4.0.1",
	"MAPPING_FILE":      "",
	"MAX_DEPTH":         128,
	"VALUESET_BASE_URL": "http://cqframework.org/fhir",
	"DATABASE_URL":      "",
	"HTTP_ADDR":         ":8080",
	"HTTP_TIMEOUT":      "60s",
	"HTTP_RETRY_MAX":    3,
	"CACHE_TTL":         "15m",
	"CACHE_MAX_SIZE":    1000,
}

// loadConfig resolves configuration from flags, the environment, an optional
// .env file and the defaults, in that order of precedence.
func loadConfig(cmd *cobra.Command, envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	if cfg.MaxDepth <= 0 {
		return nil, fmt.Errorf("MAX_DEPTH must be positive, got %d", cfg.MaxDepth)
	}
	return cfg, nil
}

// Level returns the parsed log level.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
