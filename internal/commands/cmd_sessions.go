package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type SessionsCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	jsonOutput bool
}

// NewSessionsCmd creates a new sessions command
func NewSessionsCmd(flags *Flags, app *foreman.App) *SessionsCmd {
	return &SessionsCmd{flags: flags, app: app}
}

// Register adds the sessions command group to the application
func (cmd *SessionsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "sessions",
		Usage: "Manage conversation sessions",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List sessions",
				UsageText: "foreman sessions ls [--json]",
				Flags: []cli.Flag{
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
				Usage:     "Dump one session's full state",
				UsageText: "foreman sessions show SESSION_ID",
				Action:    cmd.show,
			},
			{
				Name:      "rm",
				Usage:     "Delete a session",
				UsageText: "foreman sessions rm SESSION_ID",
				Action:    cmd.rm,
			},
		},
	})

	return app
}

func (cmd *SessionsCmd) ls(ctx context.Context, c *cli.Command) error {
	ids, err := cmd.app.Sessions.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	out := c.Root().Writer

	if len(ids) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintln(os.Stderr, "No sessions found")
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if !cmd.jsonOutput {
		_, _ = fmt.Fprintln(w, "ID\tMESSAGES\tGENERATION\tUPDATED\tLAST RESPONSE")
	}
	for _, id := range ids {
		sess, err := cmd.app.Sessions.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("load session %q: %w", id, err)
		}
		if cmd.jsonOutput {
			if err := iojson.WriteLine(out, sess); err != nil {
				return fmt.Errorf("encode session: %w", err)
			}
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			sess.ID, len(sess.Messages), sess.Generation,
			sess.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
			truncate(sess.LastResponse, 60))
	}
	if !cmd.jsonOutput {
		_ = w.Flush()
	}
	return nil
}

func (cmd *SessionsCmd) show(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("session id is required")
	}

	sess, err := cmd.app.Sessions.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	return iojson.Write(sess)
}

func (cmd *SessionsCmd) rm(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("session id is required")
	}

	if err := cmd.app.Sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	fmt.Fprintf(c.Root().Writer, "Deleted session %s\n", id)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
