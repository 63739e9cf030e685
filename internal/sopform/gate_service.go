package sopform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/sopform/internal/core/change"
	"github.com/colonyops/sopform/internal/core/gate"
	"github.com/colonyops/sopform/internal/core/logging"
	"github.com/colonyops/sopform/internal/core/validate"
)

// ErrNotRecorded wraps a log append failure after a gate already executed.
// The Result returned alongside it is valid.
var ErrNotRecorded = errors.New("gate result not recorded")

// StatusReader derives artifact status for a change.
type StatusReader interface {
	Root() string
	Status(ctx context.Context, id string) change.Status
}

// RunOptions controls a gate run.
type RunOptions struct {
	// Force skips the prerequisite check. Verify still needs a command.
	Force bool
}

// GateService runs gates and keeps the audit log.
type GateService struct {
	status  StatusReader
	log     gate.Log
	runners map[gate.Name]gate.Runner
	logger  zerolog.Logger

	// Timeout bounds a single gate execution. Zero means no limit.
	Timeout time.Duration
	// Vars are exposed to the verify command template.
	Vars map[string]any
	// Now stamps log entries.
	Now func() time.Time
}

// NewGateService creates a new GateService.
func NewGateService(status StatusReader, log gate.Log, runners map[gate.Name]gate.Runner, logger zerolog.Logger) *GateService {
	return &GateService{
		status:  status,
		log:     log,
		runners: runners,
		logger:  logger,
		Now:     time.Now,
	}
}

// VerifyConfigured reports whether the verify gate has a command.
func (s *GateService) VerifyConfigured() bool {
	_, ok := s.runners[gate.Verify]
	return ok
}

// Execute runs gate g for change id without consulting or writing the log.
// Command failures come back as a failed Result; the error is reserved for
// requests that could not be executed at all.
func (s *GateService) Execute(ctx context.Context, id string, g gate.Name) (gate.Result, error) {
	if err := validate.ChangeID(id); err != nil {
		return gate.Result{}, err
	}

	runner, ok := s.runners[g]
	if !ok {
		if g == gate.Verify {
			return gate.Result{}, gate.ErrVerifyNotConfigured
		}
		return gate.Result{}, fmt.Errorf("%w: %q", gate.ErrUnknownGate, g)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	res := runner.Run(ctx, gate.Target{ChangeID: id, Root: s.status.Root(), Vars: s.Vars})
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Success = false
		res.Output = strings.TrimLeft(fmt.Sprintf("%s\ngate timed out after %s", res.Output, s.Timeout), "\n")
	}

	s.logger.Debug().Ctx(ctx).
		Bool("success", res.Success).
		Dur("elapsed", time.Since(start)).
		Msg("gate executed")

	return res, nil
}

// Run checks the prerequisites of gate g, executes it and appends the outcome
// to the audit log. Rejected requests are never logged: an unconfigured verify
// gate returns gate.ErrVerifyNotConfigured and a disabled gate returns a
// *gate.PreconditionError (skipped with Force). Once executed, the result is
// returned even if the log append fails; that error is returned alongside it.
func (s *GateService) Run(ctx context.Context, id string, g gate.Name, opts RunOptions) (gate.Result, error) {
	if err := validate.ChangeID(id); err != nil {
		return gate.Result{}, err
	}
	if g == gate.Verify && !s.VerifyConfigured() {
		return gate.Result{}, gate.ErrVerifyNotConfigured
	}

	ctx = logging.WithGate(logging.WithChangeID(ctx, id), string(g))

	if !opts.Force {
		enabled, err := s.Enabled(ctx, id)
		if err != nil {
			return gate.Result{}, err
		}
		if err := enabled.Check(g); err != nil {
			s.logger.Info().Ctx(ctx).Err(err).Msg("gate rejected")
			return gate.Result{}, err
		}
	} else {
		s.logger.Warn().Ctx(ctx).Msg("running gate with prerequisites skipped")
	}

	res, err := s.Execute(ctx, id, g)
	if err != nil {
		return gate.Result{}, err
	}

	entry := gate.NewEntry(s.Now(), g, id, res)
	if err := s.log.Append(ctx, id, entry); err != nil {
		s.logger.Error().Ctx(ctx).Err(err).Msg("append gate report")
		return res, fmt.Errorf("%w: append gate report: %w", ErrNotRecorded, err)
	}

	s.logger.Info().Ctx(ctx).Str("result", string(entry.Result)).Msg("gate finished")
	return res, nil
}

// Log returns the audit log of change id.
func (s *GateService) Log(ctx context.Context, id string) ([]gate.Entry, error) {
	if err := validate.ChangeID(id); err != nil {
		return nil, err
	}
	entries, err := s.log.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read gate report: %w", err)
	}
	return entries, nil
}

// Enabled computes the runnable gates of change id.
func (s *GateService) Enabled(ctx context.Context, id string) (gate.Enabled, error) {
	entries, err := s.Log(ctx, id)
	if err != nil {
		return gate.Enabled{}, err
	}
	return gate.ComputeEnabled(s.status.Status(ctx, id), entries, s.VerifyConfigured()), nil
}

// Overview is the full gate picture of one change.
type Overview struct {
	Status  change.Status `json:"status"`
	Enabled gate.Enabled  `json:"enabled"`
	Log     []gate.Entry  `json:"log"`
}

// Overview returns status, enabled gates and log of change id in one read.
func (s *GateService) Overview(ctx context.Context, id string) (Overview, error) {
	entries, err := s.Log(ctx, id)
	if err != nil {
		return Overview{}, err
	}
	st := s.status.Status(ctx, id)
	return Overview{
		Status:  st,
		Enabled: gate.ComputeEnabled(st, entries, s.VerifyConfigured()),
		Log:     entries,
	}, nil
}
