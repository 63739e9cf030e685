package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sopform/internal/commands"
	"github.com/colonyops/sopform/internal/core/config"
	"github.com/colonyops/sopform/internal/core/styles"
	"github.com/colonyops/sopform/internal/sopform"
	"github.com/colonyops/sopform/pkg/executil"
	"github.com/colonyops/sopform/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser  func()
		sopformApp = &sopform.App{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "sopform",
		Usage:     "Structured change management for OpenSpec",
		UsageText: "sopform [global options] command [command options]",
		Description: `sopform reads OpenSpec change directories, runs the validate, verify and
archive gates, and keeps an append-only gate report for every change.

It also keeps multi-stage authoring forms (requirements through operations)
per project, with snapshots and plain-text export.

Run 'sopform changes' to list changes in the OpenSpec root.
Run 'sopform serve' to expose the same operations over a local HTTP API.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("SOPFORM_LOG_LEVEL"),
				Value:       "warn",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Sources:     cli.EnvVars("SOPFORM_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("SOPFORM_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("SOPFORM_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "openspec-root",
				Usage:       "directory containing changes/ (overrides openspec_root)",
				Sources:     cli.EnvVars("OPENSPEC_ROOT"),
				Destination: &flags.OpenSpecRoot,
			},
			&cli.StringFlag{
				Name:        "verify-cmd",
				Usage:       "shell command for the verify gate (overrides gates.verify_cmd)",
				Sources:     cli.EnvVars("VERIFY_CMD"),
				Destination: &flags.VerifyCmd,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			cfg.ApplyOverrides(flags.OpenSpecRoot, flags.VerifyCmd)
			flags.Config = cfg

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.Theme)
			styles.SetTheme(palette)

			executor := &executil.RealExecutor{}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*sopformApp = *sopform.NewApp(cfg, executor)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewChangesCmd(flags, sopformApp).Register(app)
	app = commands.NewStatusCmd(flags, sopformApp).Register(app)
	app = commands.NewGateCmd(flags, sopformApp).Register(app)
	app = commands.NewChangeCmd(flags, sopformApp).Register(app)
	app = commands.NewProjectCmd(flags, sopformApp).Register(app)
	app = commands.NewFormCmd(flags, sopformApp).Register(app)
	app = commands.NewServeCmd(flags, sopformApp).Register(app)
	app = commands.NewDoctorCmd(flags, sopformApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
