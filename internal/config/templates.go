package config

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Dump renders the effective configuration as YAML with secrets masked.
func (c *Config) Dump() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c.Redacted()); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateConfigTemplate renders the defaults for the given environment as
// a commented config.yaml.
func GenerateConfigTemplate(environment string) (string, error) {
	cfg := GetDefaultConfig()
	cfg.Environment = environment
	if environment == "production" {
		cfg.LogLevel = "warn"
		cfg.ConsoleFormat = "json"
		cfg.EventLog.MaxSizeMB = 100
		cfg.EventLog.Compress = true
	}

	body, err := cfg.Dump()
	if err != nil {
		return "", err
	}

	header := fmt.Sprintf("# VIGILANTE-CORE Configuration\n# Environment: %s\n# Generated: %s\n\n",
		environment, time.Now().UTC().Format(time.RFC3339))
	return header + string(body), nil
}
