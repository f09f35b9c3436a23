// Package config provides configuration management for the medallion CLI.
//
// Configuration is layered: built-in defaults, then medallion.yaml, then
// MEDALLION_* environment variables, then command-line flags.
package config

import (
	"fmt"

	"github.com/leapstack-labs/medallion/pkg/adapter"
)

// TargetConfig describes the warehouse backend a run executes against.
type TargetConfig struct {
	Type     string `koanf:"type"`
	Database string `koanf:"database"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
}

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot  string               `koanf:"-"`
	DataDir      string               `koanf:"data_dir"`
	ChecksPath   string               `koanf:"checks"`
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Target       *TargetConfig        `koanf:"target"`
	Environments map[string]EnvConfig `koanf:"environments"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	DataDir string        `koanf:"data_dir"`
	Target  *TargetConfig `koanf:"target"`
}

// Default configuration values.
const (
	DefaultDataDir   = "data"
	DefaultStateFile = ".medallion/state.db"
	DefaultEnv       = "dev"
	DefaultOutput    = "table"
)

// AdapterConfig converts the target into the adapter package's config.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	opts := map[string]string{}
	if t.SSLMode != "" {
		opts["sslmode"] = t.SSLMode
	}
	return adapter.Config{
		Type:     t.Type,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.Username,
		Password: t.Password,
		Options:  opts,
	}
}

// MergeTargetConfig overlays non-empty fields of override onto base.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}
	merged := *base
	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.Username != "" {
		merged.Username = override.Username
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.SSLMode != "" {
		merged.SSLMode = override.SSLMode
	}
	return &merged
}

// ValidateTarget checks that the target names a registered adapter type and
// carries the connection details that type needs.
func ValidateTarget(t *TargetConfig) error {
	if t == nil {
		return fmt.Errorf("target configuration is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return fmt.Errorf("unknown target type %q (available: %v)", t.Type, adapter.List())
	}
	if t.Type == "postgres" {
		if t.Host == "" {
			return fmt.Errorf("target.host is required for postgres")
		}
		if t.Database == "" {
			return fmt.Errorf("target.database is required for postgres")
		}
	}
	return nil
}

// ApplyTargetDefaults fills in type-specific defaults for unset fields.
func ApplyTargetDefaults(t *TargetConfig) {
	switch t.Type {
	case "duckdb":
		if t.Database == "" {
			t.Database = ":memory:"
		}
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.SSLMode == "" {
			t.SSLMode = "disable"
		}
	}
}
