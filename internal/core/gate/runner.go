package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/sopform/pkg/executil"
	"github.com/colonyops/sopform/pkg/tmpl"
)

// Target is what a runner executes against.
type Target struct {
	ChangeID string
	Root     string // working directory
	Vars     map[string]any
}

// Runner executes one gate command for a change. Any failure, including a
// failure to start the process, is folded into a failed Result.
type Runner interface {
	Run(ctx context.Context, t Target) Result
}

// Command runs a fixed executable with arguments built from the change id.
// No shell is involved.
type Command struct {
	Exec executil.Executor
	Path string
	Args func(changeID string) []string
}

// Run implements Runner.
func (c *Command) Run(ctx context.Context, t Target) Result {
	out, err := c.Exec.RunDir(ctx, t.Root, c.Path, c.Args(t.ChangeID)...)
	return toResult(out, err)
}

// OpenSpecValidate returns the runner for `openspec validate <id> --strict --no-interactive`.
func OpenSpecValidate(exec executil.Executor, path string) *Command {
	return &Command{
		Exec: exec,
		Path: path,
		Args: func(id string) []string { return []string{"validate", id, "--strict", "--no-interactive"} },
	}
}

// OpenSpecArchive returns the runner for `openspec archive <id> --yes`.
func OpenSpecArchive(exec executil.Executor, path string) *Command {
	return &Command{
		Exec: exec,
		Path: path,
		Args: func(id string) []string { return []string{"archive", id, "--yes"} },
	}
}

// Shell runs an operator-supplied command string through `sh -c`. The string is
// a template rendered with the Target (`{{ .ChangeID }}`, `{{ .Root }}`,
// `{{ .Vars.name }}`, `shq`).
type Shell struct {
	Exec    executil.Executor
	Command string
}

// Run implements Runner.
func (s *Shell) Run(ctx context.Context, t Target) Result {
	script, err := tmpl.Render(s.Command, t)
	if err != nil {
		return Result{Success: false, Output: fmt.Sprintf("render command: %v", err)}
	}
	out, err := s.Exec.RunDir(ctx, t.Root, "sh", "-c", script)
	return toResult(out, err)
}

func toResult(out []byte, err error) Result {
	text := string(out)
	if err == nil {
		return Result{Success: true, Output: text}
	}

	text = strings.TrimRight(text, "\n")
	if text == "" {
		return Result{Success: false, Output: err.Error()}
	}
	return Result{Success: false, Output: text + "\n" + err.Error()}
}
