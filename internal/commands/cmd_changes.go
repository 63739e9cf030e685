package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/sopform/internal/sopform"
	"github.com/colonyops/sopform/pkg/iojson"
)

type ChangesCmd struct {
	flags *Flags
	app   *sopform.App

	// flags
	jsonOutput bool
}

// NewChangesCmd creates a new changes command
func NewChangesCmd(flags *Flags, app *sopform.App) *ChangesCmd {
	return &ChangesCmd{flags: flags, app: app}
}

// Register adds the changes command to the application
func (cmd *ChangesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "changes",
		Aliases:   []string{"ls"},
		Usage:     "List OpenSpec changes",
		UsageText: "sopform changes [--json]",
		Description: `Lists the change directories under <openspec-root>/changes with their
derived status. Archived changes are not listed.

READY means every artifact exists, NEXT means some do, BLOCKED means none do.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ChangesCmd) run(ctx context.Context, c *cli.Command) error {
	summaries := cmd.app.Changes.List(ctx)
	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, s := range summaries {
			if err := iojson.WriteLine(out, s); err != nil {
				return fmt.Errorf("encode change: %w", err)
			}
		}
		return nil
	}

	if len(summaries) == 0 {
		fmt.Fprintf(os.Stderr, "No changes found in %s\n", cmd.app.Changes.Root())
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHANGE\tSTATUS")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", s.ID, renderState(out, s.Status))
	}
	return w.Flush()
}
