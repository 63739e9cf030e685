package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/sopform/internal/core/styles"
	"github.com/colonyops/sopform/pkg/iojson"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "sopform config validate [options]",
				Description: "Validates the configuration file, checking the verify command template, vars files, the OpenSpec root and the openspec executable.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type fieldErrorJSON struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	err := cmd.flags.Config.ValidateDeep(cmd.flags.ConfigPath)

	var fieldErrs criterio.FieldErrors
	if err != nil && !errors.As(err, &fieldErrs) {
		return err
	}

	if cmd.format == "json" {
		out := struct {
			Valid  bool             `json:"valid"`
			Errors []fieldErrorJSON `json:"errors,omitempty"`
		}{Valid: err == nil}
		for _, fe := range fieldErrs {
			out.Errors = append(out.Errors, fieldErrorJSON{Field: fe.Field, Message: fe.Err.Error()})
		}
		if werr := iojson.WriteWith(c.Root().Writer, os.Stderr, out); werr != nil {
			return werr
		}
	} else {
		w := c.Root().Writer
		for _, fe := range fieldErrs {
			_, _ = fmt.Fprintf(w, "%s %s: %v\n", styles.TextErrorStyle.Render("✘"), fe.Field, fe.Err)
		}
		if err == nil {
			_, _ = fmt.Fprintf(w, "%s Configuration is valid\n", styles.TextSuccessStyle.Render("✔"))
		} else {
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintf(w, "%d error(s) found\n", len(fieldErrs))
		}
	}

	if err != nil {
		return cli.Exit("", 1)
	}
	return nil
}
