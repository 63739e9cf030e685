package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sopform/internal/core/change"
	"github.com/colonyops/sopform/internal/core/styles"
	"github.com/colonyops/sopform/internal/core/validate"
	"github.com/colonyops/sopform/internal/sopform"
	"github.com/colonyops/sopform/pkg/iojson"
)

type ChangeCmd struct {
	flags *Flags
	app   *sopform.App

	input iojson.FileReader[change.Decision]
}

// NewChangeCmd creates a new change command
func NewChangeCmd(flags *Flags, app *sopform.App) *ChangeCmd {
	return &ChangeCmd{flags: flags, app: app}
}

// Register adds the change command to the application
func (cmd *ChangeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "change",
		Usage: "Write decision sections into change artifacts",
		Commands: []*cli.Command{
			{
				Name:      "write",
				Usage:     "Write the decision form into proposal.md and design.md",
				UsageText: "sopform change write [-f decision.json] <change-id>",
				Description: `Writes goal, non-goals and constraints into proposal.md and data model,
API boundary and risks into design.md. Only the sopform section of each file
is replaced; content outside the markers is kept.

Reads a JSON decision from -f or stdin when given, otherwise prompts:

  {"goal": "...", "nonGoals": "...", "constraints": "...",
   "dataModel": "...", "apiBoundary": "...", "risks": "..."}`,
				ShellComplete: ChangeIDCompleter(cmd.app),
				Flags:         []cli.Flag{cmd.input.Flag()},
				Action:        cmd.runWrite,
			},
		},
	})

	return app
}

func (cmd *ChangeCmd) runWrite(ctx context.Context, c *cli.Command) error {
	id, err := changeIDArg(c)
	if err != nil {
		return err
	}
	if err := validate.ChangeID(id); err != nil {
		return err
	}

	var d change.Decision
	if cmd.input.Provided() {
		d, err = cmd.input.Read()
		if err != nil {
			return err
		}
	} else {
		if err := cmd.runForm(id, &d); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
	}

	if err := cmd.app.Changes.WriteDecision(ctx, id, d); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Updated proposal.md and design.md of %s\n", id)
	return nil
}

func (cmd *ChangeCmd) runForm(id string, d *change.Decision) error {
	_, _ = fmt.Fprintln(os.Stderr, styles.TextPrimaryBoldStyle.Render("Decision for "+id))
	_, _ = fmt.Fprintln(os.Stderr)

	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Goal").
				Description("Written to proposal.md").
				Validate(validate.Required).
				Value(&d.Goal),
			huh.NewText().
				Title("Non-goals").
				Value(&d.NonGoals),
			huh.NewText().
				Title("Constraints").
				Value(&d.Constraints),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Data Model").
				Description("Written to design.md").
				Value(&d.DataModel),
			huh.NewText().
				Title("API Boundary").
				Value(&d.APIBoundary),
			huh.NewText().
				Title("Risks").
				Value(&d.Risks),
		),
	).WithTheme(styles.FormTheme()).Run()
}
