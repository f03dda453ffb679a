// Package config loads ipcwire settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all ipcwire configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Validation ValidationConfig `yaml:"validation"`
}

// LogConfig controls the framework logger.
type LogConfig struct {
	// ProdOnly keeps only error logs (set by APP_LOGGER=true). Otherwise
	// debug logs about providers and routes are written too.
	ProdOnly bool `yaml:"prod_only"`

	// Level overrides the level implied by ProdOnly: debug, info, warn, error.
	Level string `yaml:"level"`

	// Encoding is "console" or "json".
	Encoding string `yaml:"encoding"`
}

// DispatchConfig tunes the dispatch pipeline.
type DispatchConfig struct {
	// MaxUnwrapDepth bounds nested futures and streams in results.
	MaxUnwrapDepth int `yaml:"max_unwrap_depth"`
}

// ValidationConfig tunes payload validation.
type ValidationConfig struct {
	// TagName is the struct tag holding validation rules.
	TagName string `yaml:"tag_name"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Encoding: "console",
		},
		Dispatch: DispatchConfig{
			MaxUnwrapDepth: 32,
		},
		Validation: ValidationConfig{
			TagName: "validate",
		},
	}
}

// FromEnv returns the default configuration with environment overrides.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Encoding) {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: unknown log encoding %q", ErrInvalidConfig, c.Log.Encoding)
	}
	if c.Dispatch.MaxUnwrapDepth < 1 {
		return fmt.Errorf("%w: max_unwrap_depth must be positive, got %d", ErrInvalidConfig, c.Dispatch.MaxUnwrapDepth)
	}
	return nil
}

func (c *Config) applyEnv() error {
	prodOnly, err := getEnvBool("APP_LOGGER", c.Log.ProdOnly)
	if err != nil {
		return err
	}
	c.Log.ProdOnly = prodOnly
	c.Log.Level = getEnv("IPCWIRE_LOG_LEVEL", c.Log.Level)
	c.Log.Encoding = getEnv("IPCWIRE_LOG_ENCODING", c.Log.Encoding)
	c.Validation.TagName = getEnv("IPCWIRE_VALIDATION_TAG", c.Validation.TagName)

	depth, err := getEnvInt("IPCWIRE_MAX_UNWRAP_DEPTH", c.Dispatch.MaxUnwrapDepth)
	if err != nil {
		return err
	}
	c.Dispatch.MaxUnwrapDepth = depth
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, value)
	}
	return b, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, value)
	}
	return n, nil
}
