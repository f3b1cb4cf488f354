package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/internal/foreman/sweep"
	"github.com/colonyops/foreman/internal/server"
	"github.com/urfave/cli/v3"
)

type ServeCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	addr string
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags, app *foreman.App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve the HTTP turn API",
		UsageText: "foreman serve [--addr HOST:PORT]",
		Description: `Starts the HTTP server. POST /v1/turns runs a turn, GET /v1/runs/:id
returns a run's audit trail, GET /health reports liveness.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (overrides config)",
				Destination: &cmd.addr,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	scheduler, err := buildScheduler(cmd.app)
	if err != nil {
		return err
	}

	addr := cmd.addr
	if addr == "" {
		addr = cmd.app.Config.Server.Addr
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweep.Start(ctx, cmd.app.Runs, time.Hour, cmd.app.Config.Scheduler.AuditRetention.Std())

	srv := server.New(addr, scheduler, cmd.app.Runs)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if err := srv.Stop(context.Background()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
