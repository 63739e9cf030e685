// Package sopform wires the stores and gate runners into the services used by
// the CLI and the HTTP API.
package sopform

import (
	"time"

	"github.com/colonyops/sopform/internal/core/config"
	"github.com/colonyops/sopform/internal/core/gate"
	"github.com/colonyops/sopform/internal/core/logging"
	"github.com/colonyops/sopform/internal/store/jsonfile"
	"github.com/colonyops/sopform/internal/store/openspec"
	"github.com/colonyops/sopform/pkg/executil"
)

// App is the central entry point for all sopform operations.
// Commands and the HTTP server consume App instead of cherry-picking raw dependencies.
type App struct {
	Changes  *ChangeService
	Gates    *GateService
	Projects *ProjectService
	Doctor   *DoctorService

	Config *config.Config
}

// NewApp constructs an App from the loaded configuration.
func NewApp(cfg *config.Config, exec executil.Executor) *App {
	tree := openspec.New(cfg.OpenSpecRoot, logging.Component("openspec"))
	gateLog := jsonfile.NewGateLog(tree.GateReportPath, logging.Component("gatelog"))

	gates := NewGateService(tree, gateLog, Runners(cfg, exec), logging.Component("gates"))
	gates.Timeout = cfg.Gates.Timeout
	gates.Vars = cfg.Vars

	return &App{
		Changes:  NewChangeService(tree, logging.Component("changes")),
		Gates:    gates,
		Projects: NewProjectService(jsonfile.NewProjectStore(cfg.ProjectsFile), time.Now),
		Doctor:   NewDoctorService(cfg, exec),
		Config:   cfg,
	}
}

// Runners builds the gate runners for cfg. Verify is only present when a
// verify command is configured.
func Runners(cfg *config.Config, exec executil.Executor) map[gate.Name]gate.Runner {
	runners := map[gate.Name]gate.Runner{
		gate.Validate: gate.OpenSpecValidate(exec, cfg.OpenSpecPath),
		gate.Archive:  gate.OpenSpecArchive(exec, cfg.OpenSpecPath),
	}
	if cfg.VerifyConfigured() {
		runners[gate.Verify] = &gate.Shell{Exec: exec, Command: cfg.Gates.VerifyCmd}
	}
	return runners
}
