// Package config handles configuration loading and validation for foreman.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts Go duration strings ("30s", "2m") in YAML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Planner   LLMConfig       `yaml:"planner"`
	Responder LLMConfig       `yaml:"responder"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Tools     []ToolConfig    `yaml:"tools"`
	Routes    []RouteConfig   `yaml:"routes"`
	DataDir   string          `yaml:"-"` // set by caller, not from config file
}

// ServerConfig holds the HTTP trigger settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig tunes the SQLite connection pool.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout_ms"`
}

// LLMConfig configures one chat-completion endpoint. APIKey supports
// ${VAR} expansion from the environment.
type LLMConfig struct {
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	Temperature float64  `yaml:"temperature"`
	Timeout     Duration `yaml:"timeout"`
}

// SchedulerConfig controls the turn loop.
type SchedulerConfig struct {
	// ReplanLimit is the number of replans allowed within one turn before
	// the turn fails.
	ReplanLimit int `yaml:"replan_limit"`
	// HistoryLimit caps how many conversation messages are sent to the
	// planner and responder.
	HistoryLimit int `yaml:"history_limit"`
	// Parallel dispatches all ready tasks of a step concurrently instead
	// of one at a time.
	Parallel bool `yaml:"parallel"`
	// AuditRetention is how long finished run records are kept. Zero
	// disables pruning.
	AuditRetention Duration `yaml:"audit_retention"`
}

// ToolConfig describes one tool offered to the planner. Description,
// UseWhen and Example feed the planner prompt; URL and PayloadKey drive the
// webhook dispatch unless a route overrides them.
type ToolConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	UseWhen     string   `yaml:"use_when"`
	Example     string   `yaml:"example"`
	URL         string   `yaml:"url"`
	PayloadKey  string   `yaml:"payload_key"`
	Timeout     Duration `yaml:"timeout"`
}

// RouteConfig maps tool name patterns to webhook endpoints. Patterns use
// glob syntax and are tried in order; the first match wins.
type RouteConfig struct {
	Pattern    string   `yaml:"pattern"`
	URL        string   `yaml:"url"`
	PayloadKey string   `yaml:"payload_key"`
	Timeout    Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8321",
		},
		Database: DatabaseConfig{
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			BusyTimeout:  5000,
		},
		Planner: LLMConfig{
			Temperature: 0.2,
			Timeout:     Duration(60 * time.Second),
		},
		Responder: LLMConfig{
			Temperature: 0.7,
			Timeout:     Duration(60 * time.Second),
		},
		Scheduler: SchedulerConfig{
			ReplanLimit:    3,
			HistoryLimit:   10,
			AuditRetention: Duration(30 * 24 * time.Hour),
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the
// provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()
	cfg.expandEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Planner.Timeout == 0 {
		c.Planner.Timeout = defaults.Planner.Timeout
	}
	if c.Responder.Timeout == 0 {
		c.Responder.Timeout = defaults.Responder.Timeout
	}
	if c.Responder.Temperature == 0 {
		c.Responder.Temperature = defaults.Responder.Temperature
	}
	if c.Scheduler.ReplanLimit == 0 {
		c.Scheduler.ReplanLimit = defaults.Scheduler.ReplanLimit
	}
	if c.Scheduler.HistoryLimit == 0 {
		c.Scheduler.HistoryLimit = defaults.Scheduler.HistoryLimit
	}
	for i := range c.Tools {
		if c.Tools[i].PayloadKey == "" {
			c.Tools[i].PayloadKey = "query"
		}
		if c.Tools[i].Timeout == 0 {
			c.Tools[i].Timeout = Duration(30 * time.Second)
		}
	}
	for i := range c.Routes {
		if c.Routes[i].PayloadKey == "" {
			c.Routes[i].PayloadKey = "query"
		}
		if c.Routes[i].Timeout == 0 {
			c.Routes[i].Timeout = Duration(30 * time.Second)
		}
	}
}

// expandEnv resolves ${VAR} placeholders in secret-bearing fields.
func (c *Config) expandEnv() {
	c.Planner.APIKey = os.ExpandEnv(c.Planner.APIKey)
	c.Responder.APIKey = os.ExpandEnv(c.Responder.APIKey)
}

// Tool returns the tool config with the given name, or nil.
func (c *Config) Tool(name string) *ToolConfig {
	for i := range c.Tools {
		if c.Tools[i].Name == name {
			return &c.Tools[i]
		}
	}
	return nil
}
