package foreman

import (
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/run"
	"github.com/colonyops/foreman/internal/data/db"
	"github.com/colonyops/foreman/internal/data/stores"
)

// App bundles the wired application for the CLI commands. Sessions is the
// concrete store because commands need its listing helpers on top of the
// session.Store interface the scheduler uses.
type App struct {
	Config   *config.Config
	Sessions *stores.SessionStore
	Runs     run.Store
	DB       *db.DB
}

// NewApp creates the command context.
func NewApp(cfg *config.Config, sessions *stores.SessionStore, runs run.Store, database *db.DB) *App {
	return &App{
		Config:   cfg,
		Sessions: sessions,
		Runs:     runs,
		DB:       database,
	}
}

// ToolCatalog converts tool configuration to the planner's catalog form.
func (a *App) ToolCatalog() []ToolInfo {
	tools := make([]ToolInfo, 0, len(a.Config.Tools))
	for _, t := range a.Config.Tools {
		tools = append(tools, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			UseWhen:     t.UseWhen,
			Example:     t.Example,
		})
	}
	return tools
}

// BuildScheduler assembles a Service from the app's stores and the given
// adapters. Commands that never run turns skip this, so read-only usage
// works without LLM credentials.
func (a *App) BuildScheduler(planner Planner, responder Responder, executor Executor) *Service {
	return NewService(
		a.Sessions,
		a.Runs,
		planner,
		responder,
		executor,
		a.ToolCatalog(),
		Options{
			ReplanLimit:  a.Config.Scheduler.ReplanLimit,
			HistoryLimit: a.Config.Scheduler.HistoryLimit,
			Parallel:     a.Config.Scheduler.Parallel,
		},
	)
}
