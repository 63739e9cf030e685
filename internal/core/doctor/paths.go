package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// PathsCheck verifies the OpenSpec root and the project file location.
type PathsCheck struct {
	openspecRoot string
	projectsFile string
	autofix      bool
}

// NewPathsCheck creates a new paths check. With autofix a missing projects
// directory is created.
func NewPathsCheck(openspecRoot, projectsFile string, autofix bool) *PathsCheck {
	return &PathsCheck{openspecRoot: openspecRoot, projectsFile: projectsFile, autofix: autofix}
}

func (c *PathsCheck) Name() string {
	return "Paths"
}

func (c *PathsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	result.Items = append(result.Items, dirItem("openspec root", c.openspecRoot, StatusFail))
	result.Items = append(result.Items, dirItem("changes", filepath.Join(c.openspecRoot, "changes"), StatusWarn))

	if c.projectsFile != "" {
		result.Items = append(result.Items, c.projectsItem())
	}

	return result
}

func (c *PathsCheck) projectsItem() CheckItem {
	dir := filepath.Dir(c.projectsFile)
	item := dirItem("projects", dir, StatusWarn)
	switch item.Status {
	case StatusPass:
		item.Detail = c.projectsFile
	case StatusWarn:
		if !c.autofix {
			item.Detail = "directory does not exist; created on first save"
			item.Fixable = true
			return item
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return CheckItem{Label: "projects", Status: StatusFail, Detail: fmt.Sprintf("create %s: %v", dir, err)}
		}
		item.Status = StatusPass
		item.Detail = "created " + dir
	}
	return item
}

// dirItem checks that path is a directory. A missing directory is reported
// with the missing status.
func dirItem(label, path string, missing Status) CheckItem {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return CheckItem{Label: label, Status: missing, Detail: fmt.Sprintf("%s does not exist", path)}
	case err != nil:
		return CheckItem{Label: label, Status: StatusFail, Detail: fmt.Sprintf("inaccessible: %v", err)}
	case !info.IsDir():
		return CheckItem{Label: label, Status: StatusFail, Detail: fmt.Sprintf("%s is not a directory", path)}
	default:
		return CheckItem{Label: label, Status: StatusPass, Detail: path}
	}
}
