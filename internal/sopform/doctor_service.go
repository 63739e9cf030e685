package sopform

import (
	"context"

	"github.com/colonyops/sopform/internal/core/config"
	"github.com/colonyops/sopform/internal/core/doctor"
	"github.com/colonyops/sopform/pkg/executil"
)

// DoctorService runs health checks on the sopform setup.
type DoctorService struct {
	config *config.Config
	exec   executil.Executor
}

// NewDoctorService creates a new DoctorService.
func NewDoctorService(cfg *config.Config, exec executil.Executor) *DoctorService {
	return &DoctorService{config: cfg, exec: exec}
}

// RunChecks executes all doctor checks and returns results.
// With autofix, fixable issues are repaired while checking.
func (d *DoctorService) RunChecks(ctx context.Context, configPath string, autofix bool) []doctor.Result {
	checks := []doctor.Check{
		doctor.NewConfigCheck(d.config, configPath),
		doctor.NewToolsCheck(d.exec, d.config.OpenSpecPath, d.config.Gates.VerifyCmd),
		doctor.NewPathsCheck(d.config.OpenSpecRoot, d.config.ProjectsFile, autofix),
	}
	return doctor.RunAll(ctx, checks)
}
