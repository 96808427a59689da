// Package config provides configuration management for the signal pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Pipeline    PipelineConfig  `mapstructure:"pipeline"`
	Execution   ExecutionConfig `mapstructure:"execution"`
	Audit       AuditConfig     `mapstructure:"audit"`
	Credentials Credentials     `mapstructure:"-"` // Loaded separately
	Models      ModelConfig     `mapstructure:"-"` // Loaded separately
}

// PipelineConfig holds signal pipeline configuration.
type PipelineConfig struct {
	ModelTimeout      time.Duration `mapstructure:"model_timeout"`
	MaxModelRetries   int           `mapstructure:"max_model_retries"`
	RetryInitialDelay time.Duration `mapstructure:"retry_initial_delay"`
	SignalTTL         time.Duration `mapstructure:"signal_ttl"`
	DatabasePath      string        `mapstructure:"database_path"`
}

// ExecutionConfig holds order execution configuration.
type ExecutionConfig struct {
	Mode             string  `mapstructure:"mode"` // "live", "paper"
	RequireStopLoss  bool    `mapstructure:"require_stop_loss"`
	DefaultQuantity  float64 `mapstructure:"default_quantity"`
	SubmitMaxRetries int     `mapstructure:"submit_max_retries"`
}

// AuditConfig holds audit trail configuration.
type AuditConfig struct {
	LogDir     string `mapstructure:"log_dir"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// Credentials holds API credentials for the model providers.
type Credentials struct {
	Generation ModelCredentials `mapstructure:"generation"`
	Validation ModelCredentials `mapstructure:"validation"`
}

// ModelCredentials holds a single model provider's credentials.
type ModelCredentials struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ModelConfig holds model selection configuration. The validation model is
// deliberately configured separately so the cross-check stays independent
// of the generator.
type ModelConfig struct {
	GenerationModel string  `mapstructure:"generation_model"`
	ValidationModel string  `mapstructure:"validation_model"`
	Temperature     float32 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradegate"
	}
	return filepath.Join(home, ".config", "tradegate")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	if err := loadModelConfig(configDir, &cfg.Models); err != nil {
		return nil, fmt.Errorf("loading models.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("pipeline.model_timeout", "45s")
	v.SetDefault("pipeline.max_model_retries", 3)
	v.SetDefault("pipeline.retry_initial_delay", "500ms")
	v.SetDefault("pipeline.signal_ttl", "15m")
	v.SetDefault("pipeline.database_path", filepath.Join(configDir, "tradegate.db"))
	v.SetDefault("execution.mode", "paper")
	v.SetDefault("execution.require_stop_loss", true)
	v.SetDefault("execution.default_quantity", 1.0)
	v.SetDefault("execution.submit_max_retries", 3)
	v.SetDefault("audit.log_dir", filepath.Join(configDir, "audit"))
	v.SetDefault("audit.max_size", 50)
	v.SetDefault("audit.max_backups", 30)
	v.SetDefault("audit.max_age", 365)
	v.SetDefault("audit.compress", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Missing config file is fine, defaults apply.
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func loadModelConfig(configDir string, models *ModelConfig) error {
	v := viper.New()
	v.SetConfigName("models")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("generation_model", "gpt-4o")
	v.SetDefault("validation_model", "gpt-4o-mini")
	v.SetDefault("temperature", 0.2)
	v.SetDefault("max_tokens", 2048)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return v.Unmarshal(models)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADEGATE_GENERATION_API_KEY"); v != "" {
		cfg.Credentials.Generation.APIKey = v
	}
	if v := os.Getenv("TRADEGATE_VALIDATION_API_KEY"); v != "" {
		cfg.Credentials.Validation.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.Credentials.Generation.APIKey == "" {
			cfg.Credentials.Generation.APIKey = v
		}
		if cfg.Credentials.Validation.APIKey == "" {
			cfg.Credentials.Validation.APIKey = v
		}
	}
	if v := os.Getenv("TRADEGATE_MODE"); v != "" {
		cfg.Execution.Mode = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Execution.Mode != "" && c.Execution.Mode != "live" && c.Execution.Mode != "paper" {
		return fmt.Errorf("invalid execution mode: %s (must be 'live' or 'paper')", c.Execution.Mode)
	}
	if c.Pipeline.MaxModelRetries < 1 {
		return fmt.Errorf("max_model_retries must be at least 1")
	}
	if c.Pipeline.ModelTimeout <= 0 {
		return fmt.Errorf("model_timeout must be positive")
	}
	if c.Pipeline.SignalTTL <= 0 {
		return fmt.Errorf("signal_ttl must be positive")
	}
	if c.Execution.DefaultQuantity <= 0 {
		return fmt.Errorf("default_quantity must be positive")
	}
	return nil
}

// IsPaperMode returns true if paper execution mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Execution.Mode == "paper"
}
