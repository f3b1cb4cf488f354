package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/foreman/internal/core/run"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/pkg/iojson"
	"github.com/colonyops/foreman/pkg/randid"
	"github.com/urfave/cli/v3"
)

type RunCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	sessionID  string
	jsonOutput bool
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags, app *foreman.App) *RunCmd {
	return &RunCmd{flags: flags, app: app}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run one turn for a session",
		UsageText: "foreman run [--session ID] [--json] MESSAGE...",
		Description: `Sends a message through the scheduler: plans tool tasks, executes them in
dependency order, and prints the final reply. A new session is created when
--session is omitted.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "session",
				Aliases:     []string{"s"},
				Usage:       "session id to continue (new session if omitted)",
				Destination: &cmd.sessionID,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the turn result as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	message := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if message == "" {
		return fmt.Errorf("message is required")
	}

	scheduler, err := buildScheduler(cmd.app)
	if err != nil {
		return err
	}

	sessionID := cmd.sessionID
	if sessionID == "" {
		sessionID = randid.Generate(8)
	}

	turn, err := scheduler.RunTurn(ctx, sessionID, message, run.SourceCLI)
	if err != nil {
		return fmt.Errorf("run turn: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLine(out, turn)
	}

	fmt.Fprintln(out, turn.Response)
	if turn.Clarification {
		fmt.Fprintf(out, "\n(waiting for clarification, continue with: foreman run -s %s ...)\n", sessionID)
	} else if cmd.sessionID == "" {
		fmt.Fprintf(out, "\n(session %s)\n", sessionID)
	}
	return nil
}
