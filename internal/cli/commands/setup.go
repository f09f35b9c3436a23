package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/medallion/internal/cli/config"
	"github.com/leapstack-labs/medallion/internal/engine"
	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/leapstack-labs/medallion/internal/quality"
	"github.com/spf13/cobra"

	// Register warehouse adapters.
	_ "github.com/leapstack-labs/medallion/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/medallion/pkg/adapters/postgres"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Engine *engine.Engine
}

// NewCommandContext creates a CommandContext with an engine.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Engine: eng,
	}, cleanup, nil
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to
// environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	tcfg := &config.TargetConfig{
		Type:     getEnvOrDefault("MEDALLION_TARGET_TYPE", "duckdb"),
		Database: os.Getenv("MEDALLION_TARGET_DATABASE"),
	}
	config.ApplyTargetDefaults(tcfg)

	return &config.Config{
		DataDir:     getEnvOrDefault("MEDALLION_DATA_DIR", config.DefaultDataDir),
		StatePath:   getEnvOrDefault("MEDALLION_STATE_PATH", config.DefaultStateFile),
		Environment: getEnvOrDefault("MEDALLION_ENVIRONMENT", config.DefaultEnv),
		Verbose:     os.Getenv("MEDALLION_VERBOSE") == "true",
		Target:      tcfg,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure state directory exists
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, err
		}
	}

	ruleSets, err := loadRuleSets(cfg)
	if err != nil {
		return nil, err
	}

	engineCfg := engine.Config{
		StatePath:   cfg.StatePath,
		Environment: cfg.Environment,
		RuleSets:    ruleSets,
		Logger:      logger,
	}
	if cfg.Target != nil {
		engineCfg.AdapterConfig = cfg.Target.AdapterConfig()
	}

	return engine.New(engineCfg)
}

// loadRuleSets merges custom quality checks from cfg.ChecksPath over the
// built-in defaults. Returns nil when no checks file is configured so the
// engine uses the defaults untouched.
func loadRuleSets(cfg *config.Config) (map[pipeline.Layer][]quality.RuleSet, error) {
	if cfg.ChecksPath == "" {
		return nil, nil
	}
	custom, err := quality.LoadRuleSets(cfg.ChecksPath)
	if err != nil {
		return nil, err
	}
	return quality.MergeRuleSets(quality.DefaultRuleSets(), custom), nil
}
