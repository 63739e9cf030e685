package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/sopform/internal/sopform"
)

// ChangeIDCompleter returns a ShellCompleteFunc that suggests live change ids
// as positional completions. Set this as the ShellComplete field on any
// cli.Command that accepts a change id argument.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func ChangeIDCompleter(app *sopform.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		if app.Changes == nil {
			return
		}

		w := cmd.Root().Writer
		for _, id := range app.Changes.IDs(ctx) {
			_, _ = fmt.Fprintln(w, id)
		}
	}
}
