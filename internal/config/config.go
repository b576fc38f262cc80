// Package config loads and validates LogiBot configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srmops/logibot/internal/logging"
)

// Duration wraps time.Duration so yaml configs can use values like "72h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the main configuration.
type Config struct {
	Version  string          `yaml:"version"`
	Paths    *PathsConfig    `yaml:"paths"`
	Store    *StoreConfig    `yaml:"store"`
	Ollama   *OllamaConfig   `yaml:"ollama"`
	Learner  *LearnerConfig  `yaml:"learner"`
	HaulRate *HaulRateConfig `yaml:"haul_rate"`
	Logging  *logging.Config `yaml:"logging"`
}

// PathsConfig holds durable storage locations.
type PathsConfig struct {
	DatasetDir string `yaml:"dataset_dir"`
	ModelDir   string `yaml:"model_dir"`
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	// Path is the SQLite database location for the local document store.
	// ":memory:" is accepted for tests.
	Path  string `yaml:"path"`
	AppID string `yaml:"app_id"`
}

// OllamaConfig holds model-serving runtime settings.
type OllamaConfig struct {
	BaseURL         string        `yaml:"base_url"`
	BaseModel       string        `yaml:"base_model"`
	ModelPrefix     string        `yaml:"model_prefix"`
	PullTimeout     Duration `yaml:"pull_timeout"`
	CreateTimeout   Duration `yaml:"create_timeout"`
	GenerateTimeout Duration `yaml:"generate_timeout"`
}

// LearnerConfig holds continuous-learning policy knobs.
type LearnerConfig struct {
	RetrainInterval Duration `yaml:"retrain_interval"`
	MinNewExamples  int      `yaml:"min_new_examples"`
	AutoDeploy      bool     `yaml:"auto_deploy"`
	CheckInterval   Duration `yaml:"check_interval"`
	ErrorBackoff    Duration `yaml:"error_backoff"`
	// Schedule is an optional cron expression. When set, continuous mode
	// fires on the schedule instead of the fixed check interval.
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`
}

// HaulRateConfig holds the dispatch rate formula constants.
type HaulRateConfig struct {
	Base           float64 `yaml:"base"`
	TimeBase       float64 `yaml:"time_base"`
	TonBase        float64 `yaml:"ton_base"`
	Minimum        float64 `yaml:"minimum"`
	RoundIncrement float64 `yaml:"round_increment"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Version: "1.0",
		Paths: &PathsConfig{
			DatasetDir: filepath.Join(homeDir, ".logibot", "datasets"),
			ModelDir:   filepath.Join(homeDir, ".logibot", "models"),
		},
		Store: &StoreConfig{
			Path:  filepath.Join(homeDir, ".logibot", "data", "logibot.db"),
			AppID: "logibot",
		},
		Ollama: &OllamaConfig{
			BaseURL:         "http://localhost:11434",
			BaseModel:       "llama3.2",
			ModelPrefix:     "legacy-ai-srm",
			PullTimeout:     Duration(time.Hour),
			CreateTimeout:   Duration(2 * time.Hour),
			GenerateTimeout: Duration(60 * time.Second),
		},
		Learner: &LearnerConfig{
			RetrainInterval: Duration(7 * 24 * time.Hour),
			MinNewExamples:  50,
			AutoDeploy:      false,
			CheckInterval:   Duration(24 * time.Hour),
			ErrorBackoff:    Duration(time.Hour),
			Timezone:        "UTC",
		},
		HaulRate: &HaulRateConfig{
			Base:           130.0,
			TimeBase:       60.0,
			TonBase:        25.0,
			Minimum:        6.00,
			RoundIncrement: 0.50,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Return defaults if no config file
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Expand paths
	if config.Paths != nil {
		config.Paths.DatasetDir = expandPath(config.Paths.DatasetDir)
		config.Paths.ModelDir = expandPath(config.Paths.ModelDir)
	}
	if config.Store != nil && config.Store.Path != ":memory:" {
		config.Store.Path = expandPath(config.Store.Path)
	}

	return config, nil
}

// Save saves configuration to a file.
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".logibot", "config.yaml")
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// PublicCollection returns the public data collection path for a name.
func (c *Config) PublicCollection(name string) string {
	return fmt.Sprintf("artifacts/%s/public/data/%s", c.Store.AppID, name)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Paths == nil || c.Paths.DatasetDir == "" || c.Paths.ModelDir == "" {
		return fmt.Errorf("dataset and model directories are required")
	}
	if c.Ollama == nil || c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama base_url is required")
	}
	if c.Ollama.BaseModel == "" {
		return fmt.Errorf("ollama base_model is required")
	}
	if c.Learner != nil {
		if c.Learner.RetrainInterval <= 0 {
			return fmt.Errorf("retrain_interval must be positive")
		}
		if c.Learner.MinNewExamples < 0 {
			return fmt.Errorf("min_new_examples must not be negative")
		}
	}
	if c.HaulRate != nil {
		if c.HaulRate.TimeBase <= 0 || c.HaulRate.TonBase <= 0 {
			return fmt.Errorf("haul_rate time_base and ton_base must be positive")
		}
		if c.HaulRate.RoundIncrement <= 0 {
			return fmt.Errorf("haul_rate round_increment must be positive")
		}
	}
	return nil
}
