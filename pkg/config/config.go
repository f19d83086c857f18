// Package config provides configuration loading and management for
// segrunner. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Tool parameters for the external segmentation executable
	Tool struct {
		// Executable is the command name or path of the external
		// segmentation tool
		Executable string `yaml:"executable"`

		// Device selects the compute device: "auto", "gpu" or "cpu"
		Device string `yaml:"device"`

		// LicenseKey is the tool license, required by some tasks
		LicenseKey string `yaml:"licenseKey"`
	} `yaml:"tool"`

	// Defaults applied to runs that do not override them
	Defaults struct {
		// Task is the segmentation task run when none is selected
		Task string `yaml:"task"`

		// Fast enables the low-resolution fast model by default
		Fast bool `yaml:"fast"`

		// UseStandardSegmentNames names segments after standard
		// terminology meanings instead of canonical structure names
		UseStandardSegmentNames bool `yaml:"useStandardSegmentNames"`
	} `yaml:"defaults"`

	// Output parameters
	Output struct {
		// ClearOutputFolder removes the temporary run directory after
		// a successful run
		ClearOutputFolder bool `yaml:"clearOutputFolder"`

		// KeepTempOnError leaves temporary files in place when a run
		// fails, for diagnosis
		KeepTempOnError bool `yaml:"keepTempOnError"`

		// Statistics computes per-segment statistics after import
		Statistics bool `yaml:"statistics"`

		// PreviewDir, when set, receives rendered preview slices
		PreviewDir string `yaml:"previewDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Tool.Executable = "TotalSegmentator"
	cfg.Tool.Device = "auto"

	cfg.Defaults.Task = "total"
	cfg.Defaults.Fast = false
	cfg.Defaults.UseStandardSegmentNames = true

	cfg.Output.ClearOutputFolder = true
	cfg.Output.KeepTempOnError = true
	cfg.Output.Statistics = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
