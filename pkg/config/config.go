// Package config provides configuration loading for xbrlverify.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config represents the complete xbrlverify configuration
type Config struct {
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Validation ValidationConfig `yaml:"validation"`
	Log        LogConfig        `yaml:"log"`
}

// DiscoveryConfig configures how DTS documents are found and fetched
type DiscoveryConfig struct {
	// Concurrency is the number of documents fetched at once (default: 4)
	Concurrency int `yaml:"concurrency"`
	// Timeout bounds each remote fetch (default: 30s)
	Timeout time.Duration `yaml:"timeout"`
	// Offline disables http(s) fetches
	Offline bool `yaml:"offline"`
	// Remappings rewrite URI prefixes before fetching, e.g. to a local mirror
	Remappings []Remapping `yaml:"remappings"`
	// Skip lists glob patterns of URIs left out of discovery
	Skip []string `yaml:"skip"`
	// Packages lists taxonomy package archives to resolve URIs from
	Packages []string `yaml:"packages"`
}

// Remapping rewrites URIs starting with Prefix to start with Replacement
type Remapping struct {
	Prefix      string `yaml:"prefix"`
	Replacement string `yaml:"replacement"`
}

// ValidationConfig configures the checks run on a DTS
type ValidationConfig struct {
	// Strict keeps warnings that are otherwise downgraded to info
	Strict bool `yaml:"strict"`
	// SkipSemantics disables schema QName reference checks
	SkipSemantics bool `yaml:"skip_semantics"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: warn)
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			Concurrency: 4,
			Timeout:     30 * time.Second,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Discovery.Concurrency < 1 {
		return fmt.Errorf("discovery.concurrency must be at least 1")
	}
	if c.Discovery.Timeout < 0 {
		return fmt.Errorf("discovery.timeout must not be negative")
	}
	for i, r := range c.Discovery.Remappings {
		if r.Prefix == "" {
			return fmt.Errorf("discovery.remappings[%d].prefix is required", i)
		}
	}
	for _, pattern := range c.Discovery.Skip {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("discovery.skip: invalid pattern %q", pattern)
		}
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured log level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Discovery
	if other.Discovery.Concurrency != 0 {
		c.Discovery.Concurrency = other.Discovery.Concurrency
	}
	if other.Discovery.Timeout != 0 {
		c.Discovery.Timeout = other.Discovery.Timeout
	}
	if other.Discovery.Offline {
		c.Discovery.Offline = true
	}
	if len(other.Discovery.Remappings) > 0 {
		c.Discovery.Remappings = other.Discovery.Remappings
	}
	if len(other.Discovery.Skip) > 0 {
		c.Discovery.Skip = other.Discovery.Skip
	}
	if len(other.Discovery.Packages) > 0 {
		c.Discovery.Packages = other.Discovery.Packages
	}

	// Validation
	if other.Validation.Strict {
		c.Validation.Strict = true
	}
	if other.Validation.SkipSemantics {
		c.Validation.SkipSemantics = true
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
