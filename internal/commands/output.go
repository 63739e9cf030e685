package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/sopform/internal/core/change"
	"github.com/colonyops/sopform/internal/core/gate"
	"github.com/colonyops/sopform/internal/core/styles"
)

// isTerminal reports whether w is an interactive terminal. Styled output is
// only rendered for terminals so piped output stays plain.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func renderState(w io.Writer, s change.State) string {
	if !isTerminal(w) {
		return string(s)
	}
	switch s {
	case change.StateReady:
		return styles.StateReadyStyle.Render(string(s))
	case change.StateNext:
		return styles.StateNextStyle.Render(string(s))
	default:
		return styles.StateBlockedStyle.Render(string(s))
	}
}

func renderOutcome(w io.Writer, o gate.Outcome) string {
	label := "PASS"
	if o == gate.Fail {
		label = "FAIL"
	}
	if !isTerminal(w) {
		return label
	}
	if o == gate.Fail {
		return styles.FailBadgeStyle.Render(label)
	}
	return styles.PassBadgeStyle.Render(label)
}

func renderCheck(w io.Writer, ok bool) string {
	if !isTerminal(w) {
		if ok {
			return "yes"
		}
		return "no"
	}
	if ok {
		return styles.TextSuccessStyle.Render("✔")
	}
	return styles.TextMutedStyle.Render("✘")
}

func muted(w io.Writer, s string) string {
	if !isTerminal(w) {
		return s
	}
	return styles.TextMutedStyle.Render(s)
}

// changeIDArg returns the first positional argument or a usage error.
func changeIDArg(c *cli.Command) (string, error) {
	if c.Args().Len() < 1 {
		return "", fmt.Errorf("change id required\n\nUsage: %s", c.UsageText)
	}
	return c.Args().First(), nil
}
