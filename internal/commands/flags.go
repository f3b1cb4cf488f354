// Package commands implements the CLI subcommands.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/internal/foreman/llm"
	"github.com/colonyops/foreman/internal/foreman/webhook"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "foreman", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "foreman")
}

// buildScheduler wires the LLM adapters and webhook executor into a
// scheduler. Called only by commands that run turns; this is where adapter
// credentials are checked.
func buildScheduler(app *foreman.App) (*foreman.Service, error) {
	cfg := app.Config
	if err := cfg.ValidateAdapters(); err != nil {
		return nil, fmt.Errorf("invalid adapter config: %w", err)
	}

	plannerClient, err := llm.NewClient(cfg.Planner)
	if err != nil {
		return nil, fmt.Errorf("planner client: %w", err)
	}
	responderClient, err := llm.NewClient(cfg.Responder)
	if err != nil {
		return nil, fmt.Errorf("responder client: %w", err)
	}
	executor, err := webhook.NewExecutor(cfg)
	if err != nil {
		return nil, fmt.Errorf("webhook executor: %w", err)
	}

	return app.BuildScheduler(
		llm.NewPlanner(plannerClient),
		llm.NewResponder(responderClient),
		executor,
	), nil
}
