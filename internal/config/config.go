// Package config provides configuration management for the prepflow CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all CLI configuration options.
type Config struct {
	DataDir       string `koanf:"data_dir"`
	StatePath     string `koanf:"state_path"`
	BlobDir       string `koanf:"blob_dir"`
	Environment   string `koanf:"environment"`
	PreviewRows   int    `koanf:"preview_rows"`
	RetentionDays int    `koanf:"retention_days"`
	KeepCount     int    `koanf:"keep_count"`
	Verbose       bool   `koanf:"verbose"`
}

// Default configuration values.
const (
	DefaultDataDir       = "data"
	DefaultStateFile     = ".prepflow/state.db"
	DefaultBlobDir       = ".prepflow/blobs"
	DefaultEnv           = "dev"
	DefaultPreviewRows   = 100
	DefaultRetentionDays = 30
	DefaultKeepCount     = 5
)

// configFileUsed tracks the config file loaded by the last LoadConfig call.
var configFileUsed string

// findConfigFile finds the config file to use.
// Priority: explicit path > prepflow.yaml > prepflow.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("prepflow.yaml"); err == nil {
		return "prepflow.yaml"
	}
	if _, err := os.Stat("prepflow.yml"); err == nil {
		return "prepflow.yml"
	}
	return ""
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_dir":       DefaultDataDir,
		"state_path":     DefaultStateFile,
		"blob_dir":       DefaultBlobDir,
		"environment":    DefaultEnv,
		"preview_rows":   DefaultPreviewRows,
		"retention_days": DefaultRetentionDays,
		"keep_count":     DefaultKeepCount,
		"verbose":        false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	} else if cfgFile != "" {
		return nil, fmt.Errorf("config file not found: %s", cfgFile)
	}

	// 3. Environment variables (PREPFLOW_ prefix)
	// Transform: PREPFLOW_STATE_PATH -> state_path
	if err := k.Load(env.Provider("PREPFLOW_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PREPFLOW_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// The CLI uses --state for brevity; the config key is state_path.
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.StatePath == "" {
		return fmt.Errorf("state_path is required")
	}
	if c.BlobDir == "" {
		return fmt.Errorf("blob_dir is required")
	}
	if c.PreviewRows <= 0 {
		return fmt.Errorf("preview_rows must be positive")
	}
	if c.KeepCount < 0 {
		return fmt.Errorf("keep_count must not be negative")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative")
	}
	return nil
}

// EnsureDirectories creates the state and blob directories if missing.
func (c *Config) EnsureDirectories() error {
	stateDir := filepath.Dir(c.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	if err := os.MkdirAll(c.BlobDir, 0750); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}
	return nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}
