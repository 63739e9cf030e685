package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/colonyops/sopform/pkg/executil"
)

// lookPathFunc is the function used to find executables on PATH.
// Package-level variable to allow test overrides.
var lookPathFunc = exec.LookPath

const versionTimeout = 5 * time.Second

// ToolsCheck verifies the executables the gates depend on.
type ToolsCheck struct {
	exec         executil.Executor
	openspecPath string
	verifyCmd    string
}

// NewToolsCheck creates a tools check for the openspec executable and the
// optional verify command. exec is used to query the openspec version.
func NewToolsCheck(exec executil.Executor, openspecPath, verifyCmd string) *ToolsCheck {
	return &ToolsCheck{exec: exec, openspecPath: openspecPath, verifyCmd: verifyCmd}
}

func (c *ToolsCheck) Name() string {
	return "Gates"
}

func (c *ToolsCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	// validate and archive cannot run without openspec
	if path, err := lookPathFunc(c.openspecPath); err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  c.openspecPath,
			Status: StatusFail,
			Detail: "not found on PATH (required for validate and archive)",
		})
	} else {
		result.Items = append(result.Items, c.openspecVersion(ctx, path))
	}

	if c.verifyCmd == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "verify",
			Status: StatusWarn,
			Detail: "no verify command configured; verify and archive stay disabled",
		})
		return result
	}

	if _, err := lookPathFunc("sh"); err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "verify",
			Status: StatusFail,
			Detail: "sh not found on PATH",
		})
	} else {
		result.Items = append(result.Items, CheckItem{
			Label:  "verify",
			Status: StatusPass,
			Detail: c.verifyCmd,
		})
	}

	return result
}

func (c *ToolsCheck) openspecVersion(ctx context.Context, path string) CheckItem {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := c.exec.Run(ctx, c.openspecPath, "--version")
	if err != nil {
		return CheckItem{
			Label:  c.openspecPath,
			Status: StatusWarn,
			Detail: fmt.Sprintf("%s: --version failed: %v", path, err),
		}
	}

	version, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if version == "" {
		return CheckItem{Label: c.openspecPath, Status: StatusPass, Detail: path}
	}
	return CheckItem{Label: c.openspecPath, Status: StatusPass, Detail: path + " (" + version + ")"}
}
