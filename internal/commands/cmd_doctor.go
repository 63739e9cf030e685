package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/sopform/internal/core/doctor"
	"github.com/colonyops/sopform/internal/core/styles"
	"github.com/colonyops/sopform/internal/sopform"
	"github.com/colonyops/sopform/pkg/iojson"
)

type DoctorCmd struct {
	flags   *Flags
	app     *sopform.App
	format  string
	autofix bool
}

func NewDoctorCmd(flags *Flags, app *sopform.App) *DoctorCmd {
	return &DoctorCmd{flags: flags, app: app}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your sopform setup",
		UsageText:   "sopform doctor [options]",
		Description: "Checks the configuration, the OpenSpec root, the gate commands and the project file location.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "autofix",
				Usage:       "automatically fix issues (e.g., create the projects directory)",
				Destination: &cmd.autofix,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	results := cmd.app.Doctor.RunChecks(ctx, cmd.flags.ConfigPath, cmd.autofix)
	counts := doctor.Tally(results)

	var err error
	if cmd.format == "json" {
		err = iojson.WriteWith(c.Root().Writer, os.Stderr, struct {
			Healthy bool            `json:"healthy"`
			Summary doctor.Counts   `json:"summary"`
			Checks  []doctor.Result `json:"checks"`
		}{
			Healthy: counts.Healthy(),
			Summary: counts,
			Checks:  results,
		})
	} else {
		cmd.printText(c.Root().Writer, results, counts)
	}
	if err != nil {
		return err
	}

	if !counts.Healthy() {
		return cli.Exit("", 1)
	}
	return nil
}

func statusIcon(w io.Writer, s doctor.Status) string {
	if !isTerminal(w) {
		return "[" + string(s) + "]"
	}
	switch s {
	case doctor.StatusPass:
		return styles.TextSuccessStyle.Render("✔")
	case doctor.StatusWarn:
		return styles.TextWarningStyle.Render("●")
	default:
		return styles.TextErrorStyle.Render("✘")
	}
}

func (cmd *DoctorCmd) printText(w io.Writer, results []doctor.Result, counts doctor.Counts) {
	_, _ = fmt.Fprintln(w, styles.TextPrimaryBoldStyle.Render("sopform doctor"))
	_, _ = fmt.Fprintln(w, muted(w, strings.Repeat("─", 40)))

	for _, result := range results {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, styles.TextForegroundBoldStyle.Render(result.Name))

		for _, item := range result.Items {
			line := "  " + statusIcon(w, item.Status) + " " + item.Label
			if item.Detail != "" {
				line += " " + muted(w, item.Detail)
			}
			_, _ = fmt.Fprintln(w, line)
		}
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "%d passed  %d warnings  %d failed\n", counts.Passed, counts.Warned, counts.Failed)

	if !cmd.autofix && counts.Fixable > 0 {
		_, _ = fmt.Fprintln(w, muted(w, fmt.Sprintf("Run 'sopform doctor --autofix' to fix %d issue(s)", counts.Fixable)))
	}
}
