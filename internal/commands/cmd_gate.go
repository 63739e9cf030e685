package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/sopform/internal/core/gate"
	"github.com/colonyops/sopform/internal/core/styles"
	"github.com/colonyops/sopform/internal/sopform"
	"github.com/colonyops/sopform/pkg/iojson"
)

type GateCmd struct {
	flags *Flags
	app   *sopform.App

	// run flags
	force      bool
	jsonOutput bool

	// log flags
	gateFilter string
}

// NewGateCmd creates a new gate command
func NewGateCmd(flags *Flags, app *sopform.App) *GateCmd {
	return &GateCmd{flags: flags, app: app}
}

// Register adds the gate command to the application
func (cmd *GateCmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:        "json",
			Usage:       "output as JSON",
			Destination: &cmd.jsonOutput,
		}
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "gate",
		Usage: "Run gates and inspect the gate report",
		Description: `Gates run in order: validate, verify, archive.

validate needs proposal.md and specs/. verify needs a configured verify command
and a passing validate. archive needs a passing verify. Only the latest result
of each gate counts.`,
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Run a gate and record the result",
				UsageText: "sopform gate run [--force] [--json] <validate|verify|archive> <change-id>",
				Description: `Runs the gate command in the OpenSpec root and appends the result to
changes/<id>/gate-report.jsonl. Exits non-zero when the gate fails.

Requests rejected by a prerequisite are not recorded. Use --force to skip the
prerequisite check.`,
				ShellComplete: ChangeIDCompleter(cmd.app),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "force",
						Usage:       "skip the prerequisite check",
						Destination: &cmd.force,
					},
					jsonFlag(),
				},
				Action: cmd.runGate,
			},
			{
				Name:          "enabled",
				Usage:         "Show which gates can run",
				UsageText:     "sopform gate enabled [--json] <change-id>",
				ShellComplete: ChangeIDCompleter(cmd.app),
				Flags:         []cli.Flag{jsonFlag()},
				Action:        cmd.runEnabled,
			},
			{
				Name:          "log",
				Usage:         "Show the gate report of a change",
				UsageText:     "sopform gate log [--gate name] [--json] <change-id>",
				ShellComplete: ChangeIDCompleter(cmd.app),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "gate",
						Usage:       "only show entries of this gate",
						Destination: &cmd.gateFilter,
					},
					jsonFlag(),
				},
				Action: cmd.runLog,
			},
		},
	})

	return app
}

func (cmd *GateCmd) runGate(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("gate and change id required\n\nUsage: %s", c.UsageText)
	}

	g, err := gate.Parse(c.Args().Get(0))
	if err != nil {
		return err
	}
	id := c.Args().Get(1)

	res, err := cmd.app.Gates.Run(ctx, id, g, sopform.RunOptions{Force: cmd.force})
	if err != nil && !errors.Is(err, sopform.ErrNotRecorded) {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		if werr := iojson.WriteLine(out, res); werr != nil {
			return werr
		}
	} else {
		cmd.printResult(out, g, id, res)
	}

	if err != nil {
		return err
	}
	if !res.Success {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *GateCmd) printResult(out io.Writer, g gate.Name, id string, res gate.Result) {
	_, _ = fmt.Fprintf(out, "%s %s %s\n", renderOutcome(out, res.Outcome()), g, id)

	output := strings.TrimRight(res.Output, "\n")
	if output == "" {
		return
	}
	_, _ = fmt.Fprintln(out)
	if isTerminal(out) {
		_, _ = fmt.Fprintln(out, styles.OutputBlockStyle.Render(output))
		return
	}
	_, _ = fmt.Fprintln(out, output)
}

func (cmd *GateCmd) runEnabled(ctx context.Context, c *cli.Command) error {
	id, err := changeIDArg(c)
	if err != nil {
		return err
	}

	enabled, err := cmd.app.Gates.Enabled(ctx, id)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLine(out, enabled)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "GATE\tENABLED\tREQUIRES")
	for _, g := range gate.Names {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", g, renderCheck(out, enabled.Allows(g)), muted(out, gate.Requirement(g)))
	}
	return w.Flush()
}

func (cmd *GateCmd) runLog(ctx context.Context, c *cli.Command) error {
	id, err := changeIDArg(c)
	if err != nil {
		return err
	}

	var filter gate.Name
	if cmd.gateFilter != "" {
		filter, err = gate.Parse(cmd.gateFilter)
		if err != nil {
			return err
		}
	}

	entries, err := cmd.app.Gates.Log(ctx, id)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, e := range entries {
			if filter != "" && e.Gate != filter {
				continue
			}
			if err := iojson.WriteLine(out, e); err != nil {
				return fmt.Errorf("encode entry: %w", err)
			}
		}
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "No gate runs recorded for %s\n", id)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tGATE\tRESULT\tDETAILS")
	for _, e := range entries {
		if filter != "" && e.Gate != filter {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Time().Format(time.DateTime), e.Gate, renderOutcome(out, e.Result), firstLine(e.Details))
	}
	return w.Flush()
}

// firstLine returns the first non-empty line of s, truncated for table output.
func firstLine(s string) string {
	for line := range strings.SplitSeq(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 72 {
			return line[:69] + "..."
		}
		return line
	}
	return ""
}
