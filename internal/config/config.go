package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"designkit/internal/breaker"
	"designkit/internal/data"
	"designkit/internal/logging"
)

const APP_NAME = "designkit" // application name used for config and data directories

// BreakerSettings holds the circuit breaker parameters shared by all
// service breakers. Durations are milliseconds in the file.
type BreakerSettings struct {
	FailureThreshold   int `yaml:"failure_threshold"`
	RecoveryTimeoutMS  int `yaml:"recovery_timeout_ms"`
	RequestTimeoutMS   int `yaml:"request_timeout_ms"`
	MonitoringPeriodMS int `yaml:"monitoring_period_ms"`
	HalfOpenMaxCalls   int `yaml:"half_open_max_calls"`
}

// Config holds the user configuration for designkit.
type Config struct {
	// DataDir is the directory holding tokens.json, components.json and
	// guidelines.json.
	DataDir string `yaml:"data_dir"`

	// WatchFiles enables hot reload of the dataset files.
	WatchFiles bool `yaml:"watch_files"`

	// CacheTTLSeconds bounds the advisory cache validity check.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// Breaker configures the service circuit breakers.
	Breaker BreakerSettings `yaml:"breaker"`

	Version  string `yaml:"version"`   // Track config version
	InitTime int64  `yaml:"init_time"` // Unix timestamp of first setup
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, APP_NAME)
	configPath := filepath.Join(configDir, "config.yaml")

	logging.Debug("Determined config path", "path", configPath)
	return configPath, nil
}

// DefaultDataDir returns the standard dataset directory.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, APP_NAME, "data")
}

// Load loads the config from the standard location. When no config exists
// the defaults are returned, so the server runs without a first-time setup.
func Load() (*Config, error) {
	configPath, exists := FindConfigFile()
	logging.Debug("Loading config from", "path", configPath)
	if !exists {
		cfg := DefaultConfig()
		return &cfg, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads config from a specific path
func LoadFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// Start from defaults so a sparse file only overrides what it names.
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfigFile returns the path to an existing config file, and whether it exists.
func FindConfigFile() (string, bool) {
	primary, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	if _, err := os.Stat(primary); err == nil {
		logging.Debug("Config found at primary path", "path", primary)
		return primary, true
	}

	// Return primary path for new config
	return primary, false
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:         DefaultDataDir(),
		WatchFiles:      true,
		CacheTTLSeconds: 300,
		Breaker: BreakerSettings{
			FailureThreshold:   5,
			RecoveryTimeoutMS:  30000,
			RequestTimeoutMS:   5000,
			MonitoringPeriodMS: 60000,
			HalfOpenMaxCalls:   3,
		},
		Version:  "1.0",
		InitTime: 0, // Will be set during first save
	}
}

// Validate checks the loaded configuration for values the core would reject
// at construction time.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("cache_ttl_seconds must be positive")
	}
	b := c.Breaker
	if b.FailureThreshold <= 0 || b.HalfOpenMaxCalls <= 0 {
		return fmt.Errorf("breaker thresholds must be positive")
	}
	if b.RecoveryTimeoutMS <= 0 || b.RequestTimeoutMS <= 0 || b.MonitoringPeriodMS <= 0 {
		return fmt.Errorf("breaker timeouts must be positive")
	}
	return nil
}

// DataConfig converts to the data manager configuration.
func (c *Config) DataConfig() data.Config {
	return data.Config{
		DataDir:    c.DataDir,
		WatchFiles: c.WatchFiles,
		CacheTTL:   time.Duration(c.CacheTTLSeconds) * time.Second,
	}
}

// BreakerConfig converts to a breaker configuration template. The facades
// fill in their own name.
func (c *Config) BreakerConfig() breaker.Config {
	return breaker.Config{
		FailureThreshold: c.Breaker.FailureThreshold,
		RecoveryTimeout:  time.Duration(c.Breaker.RecoveryTimeoutMS) * time.Millisecond,
		RequestTimeout:   time.Duration(c.Breaker.RequestTimeoutMS) * time.Millisecond,
		MonitoringPeriod: time.Duration(c.Breaker.MonitoringPeriodMS) * time.Millisecond,
		HalfOpenMaxCalls: c.Breaker.HalfOpenMaxCalls,
	}
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	configPath, _ := FindConfigFile()
	return c.SaveTo(configPath)
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	// Set init time if this is the first save
	if c.InitTime == 0 {
		c.InitTime = time.Now().Unix()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
