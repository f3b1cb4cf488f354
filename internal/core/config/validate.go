package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// Validate checks structural configuration: names unique, patterns and URLs
// parseable, limits sane. Adapter credentials are checked separately by
// ValidateAdapters so read-only commands work without API keys.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		c.validateBasics(),
		c.validateTools(),
		c.validateRoutes(),
	)
}

func (c *Config) validateBasics() error {
	var errs criterio.FieldErrorsBuilder
	if c.DataDir == "" {
		errs = errs.Append("data_dir", fmt.Errorf("cannot be empty"))
	}
	if c.Server.Addr == "" {
		errs = errs.Append("server.addr", fmt.Errorf("cannot be empty"))
	}
	if c.Scheduler.ReplanLimit < 0 {
		errs = errs.Append("scheduler.replan_limit", fmt.Errorf("cannot be negative"))
	}
	if c.Scheduler.HistoryLimit < 1 {
		errs = errs.Append("scheduler.history_limit", fmt.Errorf("must be at least 1"))
	}
	if c.Database.MaxOpenConns < 1 {
		errs = errs.Append("database.max_open_conns", fmt.Errorf("must be at least 1"))
	}
	return errs.ToError()
}

func (c *Config) validateTools() error {
	var errs criterio.FieldErrorsBuilder
	seen := make(map[string]bool, len(c.Tools))
	for i, tool := range c.Tools {
		field := fmt.Sprintf("tools[%d]", i)
		if tool.Name == "" {
			errs = errs.Append(field+".name", fmt.Errorf("cannot be empty"))
			continue
		}
		if seen[tool.Name] {
			errs = errs.Append(field+".name", fmt.Errorf("duplicate tool %q", tool.Name))
		}
		seen[tool.Name] = true
		if tool.Description == "" {
			errs = errs.Append(field+".description", fmt.Errorf("cannot be empty"))
		}
		if tool.URL == "" && c.routeFor(tool.Name) == nil {
			errs = errs.Append(field+".url", fmt.Errorf("tool %q has no url and matches no route", tool.Name))
		}
		if tool.URL != "" {
			if err := validateURL(tool.URL); err != nil {
				errs = errs.Append(field+".url", err)
			}
		}
	}
	return errs.ToError()
}

func (c *Config) validateRoutes() error {
	var errs criterio.FieldErrorsBuilder
	for i, route := range c.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		if route.Pattern == "" {
			errs = errs.Append(field+".pattern", fmt.Errorf("cannot be empty"))
		} else if !doublestar.ValidatePattern(route.Pattern) {
			errs = errs.Append(field+".pattern", fmt.Errorf("invalid glob pattern %q", route.Pattern))
		}
		if route.URL == "" {
			errs = errs.Append(field+".url", fmt.Errorf("cannot be empty"))
		} else if err := validateURL(route.URL); err != nil {
			errs = errs.Append(field+".url", err)
		}
	}
	return errs.ToError()
}

func (c *Config) routeFor(name string) *RouteConfig {
	for i := range c.Routes {
		if ok, err := doublestar.Match(c.Routes[i].Pattern, name); err == nil && ok {
			return &c.Routes[i]
		}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must be http or https, got %q", u.Scheme)
	}
	return nil
}

// ValidateAdapters checks the LLM endpoint settings. Called only by
// commands that actually talk to a model.
func (c *Config) ValidateAdapters() error {
	return criterio.ValidateStruct(
		validateLLM("planner", c.Planner),
		validateLLM("responder", c.Responder),
		c.validateDataDir(),
	)
}

func validateLLM(name string, llm LLMConfig) error {
	var errs criterio.FieldErrorsBuilder
	if llm.Model == "" {
		errs = errs.Append(name+".model", fmt.Errorf("cannot be empty"))
	}
	if llm.APIKey == "" {
		errs = errs.Append(name+".api_key", fmt.Errorf("cannot be empty (supports ${VAR} expansion)"))
	}
	if llm.Timeout <= 0 {
		errs = errs.Append(name+".timeout", fmt.Errorf("must be positive"))
	}
	return errs.ToError()
}

func (c *Config) validateDataDir() error {
	return criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist)
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
