// Command docgen generates CLI reference documentation from the foreman
// command definitions. Output is written to docs/cli-reference.md.
package main

import (
	"fmt"
	"os"

	docs "github.com/urfave/cli-docs/v3"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/foreman/internal/commands"
	"github.com/colonyops/foreman/internal/foreman"
)

func main() {
	flags := &commands.Flags{}
	app := &foreman.App{}

	root := &cli.Command{
		Name:      "foreman",
		Usage:     "Plan and run tool tasks for conversational requests",
		UsageText: "foreman [global options] command [command options]",
		Description: `Foreman turns a user message into a dependency-ordered plan of tool calls,
executes them against configured webhooks, and replies with the results.

Run 'foreman run "..."' for a one-off turn, or 'foreman serve' to expose
the turn API over HTTP.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error, fatal, panic)",
				Sources: cli.EnvVars("FOREMAN_LOG_LEVEL"),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "path to log file (defaults to <data-dir>/foreman.log)",
				Sources: cli.EnvVars("FOREMAN_LOG_FILE"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars("FOREMAN_CONFIG"),
				Value:   commands.DefaultConfigPath(),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "path to data directory",
				Sources: cli.EnvVars("FOREMAN_DATA_DIR"),
				Value:   commands.DefaultDataDir(),
			},
		},
	}

	root = commands.NewRunCmd(flags, app).Register(root)
	root = commands.NewServeCmd(flags, app).Register(root)
	root = commands.NewRunsCmd(flags, app).Register(root)
	root = commands.NewSessionsCmd(flags, app).Register(root)

	md, err := docs.ToMarkdown(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating docs: %v\n", err)
		os.Exit(1)
	}

	outPath := "docs/cli-reference.md"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.WriteFile(outPath, []byte(md), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outPath)
}
