package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/sopform/internal/core/logging"
	"github.com/colonyops/sopform/internal/server"
	"github.com/colonyops/sopform/internal/sopform"
)

type ServeCmd struct {
	flags *Flags
	app   *sopform.App

	addr string
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags, app *sopform.App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve the change API over HTTP",
		UsageText: "sopform serve [--addr :3001]",
		Description: `Starts a local JSON API for status, gates and the decision writer.

  GET  /api/config
  GET  /api/changes
  GET  /api/change/{id}/status
  GET  /api/change/{id}/gates
  GET  /api/change/{id}/gate-report
  POST /api/change/{id}/gate/{validate|verify|archive}[?force=true]
  POST /api/change/{id}/write

Gates already running finish before the server exits on SIGINT or SIGTERM.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (defaults to server.addr)",
				Sources:     cli.EnvVars("SOPFORM_ADDR"),
				Destination: &cmd.addr,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	addr := cmd.addr
	if addr == "" {
		addr = cmd.app.Config.Server.Addr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Serving %s on %s\n", cmd.app.Changes.Root(), addr)

	srv := server.New(cmd.app, logging.Component("server"))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
