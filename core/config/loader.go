package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the credentials.
const (
	EnvSSID     = "WIFI_SSID"
	EnvPassword = "WIFI_PASS"
)

// LoadFileConfig loads configuration from a YAML file, or a TOML file when
// the extension is .toml. Keys absent from the file keep their defaults.
func LoadFileConfig(filePath string) (*Config, error) {
	cfg := Default()

	if strings.EqualFold(filepath.Ext(filePath), ".toml") {
		if _, err := toml.DecodeFile(filePath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config '%s': %w", filePath, err)
		}
		return cfg, nil
	}

	buf, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filePath, err)
	}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, then the file at path
// if one is given, then the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFileConfig(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides the credentials from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvSSID); ok && v != "" {
		c.WiFi.SSID = v
	}
	if v, ok := lookup(EnvPassword); ok {
		c.WiFi.Password = v
	}
}
