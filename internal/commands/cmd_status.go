package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/sopform/internal/core/gate"
	"github.com/colonyops/sopform/internal/sopform"
	"github.com/colonyops/sopform/pkg/iojson"
)

type StatusCmd struct {
	flags *Flags
	app   *sopform.App

	jsonOutput bool
}

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *Flags, app *sopform.App) *StatusCmd {
	return &StatusCmd{flags: flags, app: app}
}

// Register adds the status command to the application
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:          "status",
		Usage:         "Show artifact status and gates of a change",
		UsageText:     "sopform status [--json] <change-id>",
		Description:   "Shows which artifacts exist, which gates can run and the last result of each gate.",
		ShellComplete: ChangeIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	id, err := changeIDArg(c)
	if err != nil {
		return err
	}

	ov, err := cmd.app.Gates.Overview(ctx, id)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLine(out, ov)
	}

	_, _ = fmt.Fprintf(out, "%s  %s\n\n", ov.Status.ID, renderState(out, ov.Status.Status))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ARTIFACT\tEXISTS\tFILES")
	for _, a := range ov.Status.Artifacts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.Name, renderCheck(out, a.Exists), strings.Join(a.Files, ", "))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "GATE\tENABLED\tLAST")
	for _, g := range gate.Names {
		last := muted(out, "never run")
		if e, ok := gate.Last(ov.Log, g); ok {
			last = renderOutcome(out, e.Result) + " " + muted(out, e.Time().Format(time.DateTime))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", g, renderCheck(out, ov.Enabled.Allows(g)), last)
	}
	return w.Flush()
}
