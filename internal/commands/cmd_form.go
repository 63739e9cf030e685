package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/sopform/internal/core/forms"
	"github.com/colonyops/sopform/internal/core/styles"
	"github.com/colonyops/sopform/internal/sopform"
	"github.com/colonyops/sopform/pkg/iojson"
)

type FormCmd struct {
	flags *Flags
	app   *sopform.App

	project    string
	jsonOutput bool
	render     bool
	outFile    string
}

// NewFormCmd creates a new form command
func NewFormCmd(flags *Flags, app *sopform.App) *FormCmd {
	return &FormCmd{flags: flags, app: app}
}

func (cmd *FormCmd) projectFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "project",
		Aliases:     []string{"p"},
		Usage:       "project id or name (defaults to the active project)",
		Destination: &cmd.project,
	}
}

// Register adds the form command to the application
func (cmd *FormCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "form",
		Usage: "Fill, check and export stage forms",
		Description: `Stages: req, design, plan, impl, release, ops.

Forms belong to a project; see 'sopform project'. Values are saved as soon as
a form is submitted.`,
		Commands: []*cli.Command{
			{
				Name:      "fill",
				Usage:     "Fill a stage form interactively",
				UsageText: "sopform form fill [--project p] <stage>",
				Flags:     []cli.Flag{cmd.projectFlag()},
				Action:    cmd.runFill,
			},
			{
				Name:        "set",
				Usage:       "Set one field",
				UsageText:   "sopform form set [--project p] <stage> <field> [value]",
				Description: "Sets a single field. When value is omitted it is read from stdin.",
				Flags:       []cli.Flag{cmd.projectFlag()},
				Action:      cmd.runSet,
			},
			{
				Name:        "check",
				Usage:       "List required fields that are still empty",
				UsageText:   "sopform form check [--project p] [--json] [stage]",
				Description: "Checks one stage, or every stage when none is given. Exits non-zero when a required field is empty.",
				Flags: []cli.Flag{
					cmd.projectFlag(),
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runCheck,
			},
			{
				Name:      "export",
				Usage:     "Export forms as text",
				UsageText: "sopform form export [--project p] [--render] [-o file] [stage]",
				Description: `Exports one stage, or every stage when none is given, in the plain-text
format consumed by downstream tools. --render pretty-prints the export in the
terminal instead.`,
				Flags: []cli.Flag{
					cmd.projectFlag(),
					&cli.BoolFlag{
						Name:        "render",
						Usage:       "render for the terminal",
						Destination: &cmd.render,
					},
					&cli.StringFlag{
						Name:        "output",
						Aliases:     []string{"o"},
						Usage:       "write the export to a file",
						Destination: &cmd.outFile,
					},
				},
				Action: cmd.runExport,
			},
		},
	})

	return app
}

// optionalStage parses the first argument as a stage. No argument means all stages.
func optionalStage(c *cli.Command) (forms.StageID, error) {
	if c.Args().Len() == 0 {
		return "", nil
	}
	return forms.ParseStage(c.Args().First())
}

func (cmd *FormCmd) runFill(ctx context.Context, c *cli.Command) error {
	arg, err := argAt(c, 0, "stage")
	if err != nil {
		return err
	}
	stage, err := forms.ParseStage(arg)
	if err != nil {
		return err
	}

	p, err := cmd.app.Projects.Get(ctx, cmd.project)
	if err != nil {
		return err
	}

	values := make(map[string]*string, len(forms.Registry[stage]))
	fields := make([]huh.Field, 0, len(forms.Registry[stage]))
	for _, f := range forms.Registry[stage] {
		v := p.Stages[stage][f.ID]
		values[f.ID] = &v
		fields = append(fields, formField(f, &v))
	}

	_, _ = fmt.Fprintln(os.Stderr, styles.TextPrimaryBoldStyle.Render(p.Name+" / "+forms.StageTitles[stage]))
	_, _ = fmt.Fprintln(os.Stderr)

	err = huh.NewForm(huh.NewGroup(fields...)).WithTheme(styles.FormTheme()).Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	}

	out := make(map[string]string, len(values))
	for id, v := range values {
		out[id] = *v
	}
	p, err = cmd.app.Projects.SetFields(ctx, p.ID, stage, out)
	if err != nil {
		return err
	}

	if missing := forms.ValidateStage(stage, p.Stages[stage]); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "Saved. Still missing: %s\n", strings.Join(missing, ", "))
		return nil
	}
	fmt.Fprintf(os.Stderr, "Saved %s\n", forms.StageTitles[stage])
	return nil
}

func formField(f forms.Field, v *string) huh.Field {
	desc := ""
	if f.Required {
		desc = "required"
	}
	if f.Kind == forms.KindText {
		return huh.NewInput().Title(f.Label).Description(desc).Value(v)
	}
	return huh.NewText().Title(f.Label).Description(desc).Value(v)
}

func (cmd *FormCmd) runSet(ctx context.Context, c *cli.Command) error {
	arg, err := argAt(c, 0, "stage")
	if err != nil {
		return err
	}
	stage, err := forms.ParseStage(arg)
	if err != nil {
		return err
	}
	field, err := argAt(c, 1, "field")
	if err != nil {
		return err
	}

	var value string
	switch {
	case c.Args().Len() > 2:
		value = strings.Join(c.Args().Slice()[2:], " ")
	case !term.IsTerminal(int(os.Stdin.Fd())):
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		value = strings.TrimRight(string(b), "\n")
	default:
		return fmt.Errorf("value required (pass it as an argument or pipe it on stdin)")
	}

	p, err := cmd.app.Projects.SetField(ctx, cmd.project, stage, field, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Set %s.%s on %s\n", stage, field, p.Name)
	return nil
}

type stageCheck struct {
	Stage   forms.StageID `json:"stage"`
	Title   string        `json:"title"`
	Missing []string      `json:"missing"`
}

func (cmd *FormCmd) runCheck(ctx context.Context, c *cli.Command) error {
	only, err := optionalStage(c)
	if err != nil {
		return err
	}
	p, err := cmd.app.Projects.Get(ctx, cmd.project)
	if err != nil {
		return err
	}

	var (
		checks  []stageCheck
		missing int
	)
	for _, stage := range forms.StageOrder {
		if only != "" && stage != only {
			continue
		}
		m := forms.ValidateStage(stage, p.Stages[stage])
		if m == nil {
			m = []string{}
		}
		missing += len(m)
		checks = append(checks, stageCheck{Stage: stage, Title: forms.StageTitles[stage], Missing: m})
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		if err := iojson.WriteLine(out, checks); err != nil {
			return err
		}
	} else {
		for _, ch := range checks {
			if len(ch.Missing) == 0 {
				_, _ = fmt.Fprintf(out, "%s %s\n", renderCheck(out, true), ch.Title)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s %s %s\n", renderCheck(out, false), ch.Title,
				muted(out, "missing: "+strings.Join(ch.Missing, ", ")))
		}
	}

	if missing > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *FormCmd) runExport(ctx context.Context, c *cli.Command) error {
	stage, err := optionalStage(c)
	if err != nil {
		return err
	}

	text, err := cmd.app.Projects.ExportText(ctx, cmd.project, stage)
	if err != nil {
		return err
	}

	if cmd.outFile != "" {
		if err := os.WriteFile(cmd.outFile, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Exported to %s\n", cmd.outFile)
		return nil
	}

	out := c.Root().Writer
	if cmd.render {
		rendered, err := renderMarkdown(text, terminalWidth(out))
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, rendered)
		return err
	}

	_, err = io.WriteString(out, text)
	return err
}

// renderMarkdown renders text with the active theme's glamour style.
func renderMarkdown(text string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("render export: %w", err)
	}
	return out, nil
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return min(width, 120)
		}
	}
	return 80
}
