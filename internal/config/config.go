// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultStreams = 20
	DefaultRetries = 3
	DefaultSSHPort = 22
)

// Config holds the transfer defaults an operator can persist instead of
// repeating flags. Explicit CLI flags always win over these values.
type Config struct {
	// Streams is the number of parallel streams per transfer.
	Streams int `mapstructure:"streams"`

	// Retries is the per-stream retry budget.
	Retries int `mapstructure:"retries"`

	// Port is the SSH port.
	Port int `mapstructure:"port"`

	// KeyFile is the private key used for authentication. Empty means
	// default key locations and the agent are tried.
	KeyFile string `mapstructure:"keyFile"`

	// Verify enables the post-transfer hash comparison.
	Verify bool `mapstructure:"verify"`
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// ConfigFile is an explicit config file path. If empty, default
	// locations are searched.
	ConfigFile string
}

// Load reads configuration from file and environment variables.
// If opts.ConfigFile is set, that file is used directly. Otherwise
// $HOME and the current directory are searched for .zap.yaml or
// zap.yaml. Environment variables with prefix ZAP_ override file values.
func Load(opts LoadOptions) (Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".zap")
	}

	v.SetEnvPrefix("ZAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("streams", DefaultStreams)
	v.SetDefault("retries", DefaultRetries)
	v.SetDefault("port", DefaultSSHPort)

	if opts.ConfigFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		// A missing config file is fine; the defaults stand. Viper holds a
		// single config name, so zap.yaml is looked up only when no
		// .zap.yaml was read.
		if err := v.ReadInConfig(); err != nil {
			v.SetConfigName("zap")
			_ = v.ReadInConfig()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Streams <= 0 {
		return fmt.Errorf("streams must be a positive integer, got %d", cfg.Streams)
	}
	if cfg.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", cfg.Retries)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.KeyFile != "" {
		if _, err := os.Stat(cfg.KeyFile); err != nil {
			return fmt.Errorf("ssh key file %q does not exist", cfg.KeyFile)
		}
	}
	return nil
}
