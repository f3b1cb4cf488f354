package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/colonyops/foreman/internal/core/run"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type RunsCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	jsonOutput bool
	limit      int
	sessionID  string
}

// NewRunsCmd creates a new runs command
func NewRunsCmd(flags *Flags, app *foreman.App) *RunsCmd {
	return &RunsCmd{flags: flags, app: app}
}

// Register adds the runs command group to the application
func (cmd *RunsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "runs",
		Usage: "Inspect the turn audit trail",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List recent runs",
				UsageText: "foreman runs ls [--session ID] [--limit N] [--json]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "session",
						Aliases:     []string{"s"},
						Usage:       "only show runs for this session",
						Destination: &cmd.sessionID,
					},
					&cli.IntFlag{
						Name:        "limit",
						Usage:       "maximum number of runs to show",
						Value:       20,
						Destination: &cmd.limit,
					},
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.ls,
			},
			{
				Name:      "show",
				Usage:     "Show one run with its plans, executions, and logs",
				UsageText: "foreman runs show RUN_ID",
				Action:    cmd.show,
			},
		},
	})

	return app
}

func (cmd *RunsCmd) ls(ctx context.Context, c *cli.Command) error {
	var (
		runs []run.Run
		err  error
	)
	if cmd.sessionID != "" {
		runs, err = cmd.app.Runs.ListBySession(ctx, cmd.sessionID, cmd.limit)
	} else {
		runs, err = cmd.app.Runs.List(ctx, cmd.limit)
	}
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, r := range runs {
			if err := iojson.WriteLine(out, r); err != nil {
				return fmt.Errorf("encode run: %w", err)
			}
		}
		return nil
	}

	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSESSION\tSOURCE\tSTATUS\tTASKS\tREPLANS\tSTARTED\tDURATION")
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			r.ID, r.SessionID, r.Source, r.Status,
			r.TasksExecuted, r.TasksPlanned, r.Replans,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), duration)
	}
	_ = w.Flush()
	return nil
}

func (cmd *RunsCmd) show(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("run id is required")
	}

	detail, err := cmd.app.Runs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	return iojson.Write(detail)
}
