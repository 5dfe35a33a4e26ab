package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// InspectConfig represents the configuration file structure
type InspectConfig struct {
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	EventsTable     string `json:"events_table"`
	ParametersTable string `json:"parameters_table"`
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (*InspectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg InspectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(path string, cfg *InspectConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetDefaultConfigPath returns the default config path
func GetDefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nft-monitor-inspect.json"
	}
	return filepath.Join(home, ".nft-monitor-inspect.json")
}
