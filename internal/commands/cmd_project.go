package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/sopform/internal/sopform"
	"github.com/colonyops/sopform/pkg/iojson"
)

type ProjectCmd struct {
	flags *Flags
	app   *sopform.App

	jsonOutput bool
	project    string
	note       string
}

// NewProjectCmd creates a new project command
func NewProjectCmd(flags *Flags, app *sopform.App) *ProjectCmd {
	return &ProjectCmd{flags: flags, app: app}
}

func (cmd *ProjectCmd) projectFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "project",
		Aliases:     []string{"p"},
		Usage:       "project id or name (defaults to the active project)",
		Destination: &cmd.project,
	}
}

// Register adds the project command to the application
func (cmd *ProjectCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "project",
		Usage: "Manage form projects",
		Description: `A project is one set of stage forms with its snapshot history. All
projects live in a single JSON file (projects_file, default
<data-dir>/projects.json). Commands that take a project accept its id or name
and default to the active project.`,
		Commands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "Create a project and make it active",
				UsageText: "sopform project new <name>",
				Action:    cmd.runNew,
			},
			{
				Name:      "ls",
				Usage:     "List projects",
				UsageText: "sopform project ls [--json]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "use",
				Usage:     "Set the active project",
				UsageText: "sopform project use <project>",
				Action:    cmd.runUse,
			},
			{
				Name:      "rm",
				Usage:     "Delete a project",
				UsageText: "sopform project rm <project>",
				Action:    cmd.runDelete,
			},
			{
				Name:      "rename",
				Usage:     "Rename a project",
				UsageText: "sopform project rename <project> <new-name>",
				Action:    cmd.runRename,
			},
			{
				Name:      "snapshot",
				Usage:     "Save a snapshot of the current forms",
				UsageText: "sopform project snapshot [--project p] [--note text]",
				Flags: []cli.Flag{
					cmd.projectFlag(),
					&cli.StringFlag{
						Name:        "note",
						Aliases:     []string{"m"},
						Usage:       "short note stored with the snapshot",
						Destination: &cmd.note,
					},
				},
				Action: cmd.runSnapshot,
			},
			{
				Name:      "history",
				Usage:     "List snapshots",
				UsageText: "sopform project history [--project p]",
				Flags:     []cli.Flag{cmd.projectFlag()},
				Action:    cmd.runHistory,
			},
			{
				Name:        "restore",
				Usage:       "Restore the forms from a snapshot",
				UsageText:   "sopform project restore [--project p] <n>",
				Description: "Replaces the current forms with snapshot n as numbered by `sopform project history`.",
				Flags:       []cli.Flag{cmd.projectFlag()},
				Action:      cmd.runRestore,
			},
			{
				Name:        "export",
				Usage:       "Export all projects as JSON",
				UsageText:   "sopform project export [file]",
				Description: "Writes the complete project file to file, or to stdout when no file is given.",
				Action:      cmd.runExport,
			},
			{
				Name:      "import",
				Usage:     "Replace all projects from a JSON export",
				UsageText: "sopform project import <file|->",
				Description: `Replaces the project file with the given export. Any JSON document with a
"projects" array is accepted; missing stages and fields are filled in.`,
				Action: cmd.runImport,
			},
		},
	})

	return app
}

func argAt(c *cli.Command, i int, what string) (string, error) {
	if c.Args().Len() <= i {
		return "", fmt.Errorf("%s required\n\nUsage: %s", what, c.UsageText)
	}
	return c.Args().Get(i), nil
}

func (cmd *ProjectCmd) runNew(ctx context.Context, c *cli.Command) error {
	name, err := argAt(c, 0, "project name")
	if err != nil {
		return err
	}

	p, err := cmd.app.Projects.Create(ctx, name)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, p.ID)
	fmt.Fprintf(os.Stderr, "Created project %q (now active)\n", p.Name)
	return nil
}

type projectInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	UpdatedAt int64  `json:"updatedAt"`
	Snapshots int    `json:"snapshots"`
}

func (cmd *ProjectCmd) runList(ctx context.Context, c *cli.Command) error {
	data, err := cmd.app.Projects.Data(ctx)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, p := range data.Projects {
			info := projectInfo{
				ID:        p.ID,
				Name:      p.Name,
				Active:    p.ID == data.ActiveProjectID,
				UpdatedAt: p.UpdatedAt,
				Snapshots: len(p.History),
			}
			if err := iojson.WriteLine(out, info); err != nil {
				return fmt.Errorf("encode project: %w", err)
			}
		}
		return nil
	}

	if len(data.Projects) == 0 {
		fmt.Fprintf(os.Stderr, "No projects found. Run 'sopform project new <name>' to create one\n")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\tID\tNAME\tUPDATED\tSNAPSHOTS")
	for _, p := range data.Projects {
		marker := ""
		if p.ID == data.ActiveProjectID {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			marker, p.ID, p.Name, time.UnixMilli(p.UpdatedAt).Format(time.DateTime), len(p.History))
	}
	return w.Flush()
}

func (cmd *ProjectCmd) runUse(ctx context.Context, c *cli.Command) error {
	ref, err := argAt(c, 0, "project")
	if err != nil {
		return err
	}
	p, err := cmd.app.Projects.Use(ctx, ref)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Active project: %s (%s)\n", p.Name, p.ID)
	return nil
}

func (cmd *ProjectCmd) runDelete(ctx context.Context, c *cli.Command) error {
	ref, err := argAt(c, 0, "project")
	if err != nil {
		return err
	}
	p, err := cmd.app.Projects.Delete(ctx, ref)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Deleted project %s (%s)\n", p.Name, p.ID)
	return nil
}

func (cmd *ProjectCmd) runRename(ctx context.Context, c *cli.Command) error {
	ref, err := argAt(c, 0, "project")
	if err != nil {
		return err
	}
	name, err := argAt(c, 1, "new name")
	if err != nil {
		return err
	}
	p, err := cmd.app.Projects.Rename(ctx, ref, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Renamed project %s to %q\n", p.ID, p.Name)
	return nil
}

func (cmd *ProjectCmd) runSnapshot(ctx context.Context, c *cli.Command) error {
	p, err := cmd.app.Projects.Snapshot(ctx, cmd.project, cmd.note)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved snapshot #%d of %s\n", len(p.History), p.Name)
	return nil
}

func (cmd *ProjectCmd) runHistory(ctx context.Context, c *cli.Command) error {
	p, err := cmd.app.Projects.Get(ctx, cmd.project)
	if err != nil {
		return err
	}

	if len(p.History) == 0 {
		fmt.Fprintf(os.Stderr, "No snapshots for %s\n", p.Name)
		return nil
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tSAVED\tNOTE")
	for i, s := range p.History {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, time.UnixMilli(s.Ts).Format(time.DateTime), s.Note)
	}
	return w.Flush()
}

func (cmd *ProjectCmd) runRestore(ctx context.Context, c *cli.Command) error {
	arg, err := argAt(c, 0, "snapshot number")
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid snapshot number %q", arg)
	}

	p, err := cmd.app.Projects.Restore(ctx, cmd.project, n)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Restored %s from snapshot #%d\n", p.Name, n)
	return nil
}

func (cmd *ProjectCmd) runExport(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() == 0 {
		return cmd.app.Projects.Export(ctx, c.Root().Writer)
	}

	path := c.Args().First()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := cmd.app.Projects.Export(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Exported projects to %s\n", path)
	return nil
}

func (cmd *ProjectCmd) runImport(ctx context.Context, c *cli.Command) error {
	path, err := argAt(c, 0, "file")
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	data, err := cmd.app.Projects.Import(ctx, r)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Imported %d project(s)\n", len(data.Projects))
	return nil
}
