package sopform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/sopform/internal/core/gate"
	"github.com/colonyops/sopform/internal/core/validate"
	"github.com/colonyops/sopform/internal/store/jsonfile"
	"github.com/colonyops/sopform/internal/store/openspec"
	"github.com/colonyops/sopform/pkg/executil"
)

type runnerFunc func(ctx context.Context, t gate.Target) gate.Result

func (f runnerFunc) Run(ctx context.Context, t gate.Target) gate.Result { return f(ctx, t) }

func TestGateService_FullFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "make test CHANGE={{ shq .ChangeID }}")
	env.mkChange(t, "add-auth", "proposal.md", "specs/auth/spec.md")
	gates := env.app.Gates

	enabled, err := gates.Enabled(ctx, "add-auth")
	require.NoError(t, err)
	assert.Equal(t, gate.Enabled{CanValidate: true}, enabled)

	res, err := gates.Run(ctx, "add-auth", gate.Validate, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, gate.Result{Success: true, Output: "ok\n"}, res)

	last, _ := env.exec.Last()
	assert.Equal(t, env.root, last.Dir)
	assert.Equal(t, []string{"validate", "add-auth", "--strict", "--no-interactive"}, last.Args)

	res, err = gates.Run(ctx, "add-auth", gate.Verify, RunOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)

	last, _ = env.exec.Last()
	assert.Equal(t, "sh", last.Cmd)
	assert.Equal(t, []string{"-c", "make test CHANGE='add-auth'"}, last.Args)

	enabled, err = gates.Enabled(ctx, "add-auth")
	require.NoError(t, err)
	assert.Equal(t, gate.Enabled{CanValidate: true, CanVerify: true, CanArchive: true}, enabled)

	entries, err := gates.Log(ctx, "add-auth")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, gate.Entry{
		Timestamp: 1700000000000,
		Gate:      gate.Validate,
		ChangeID:  "add-auth",
		Result:    gate.Pass,
		Details:   "ok\n",
	}, entries[0])
	assert.Equal(t, gate.Verify, entries[1].Gate)
}

func TestGateService_FailureIsLogged(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	env.mkChange(t, "c1", "proposal.md", "specs/a.md")
	env.exec.Outputs["openspec"] = []byte("2 issues found\n")
	env.exec.Errors = map[string]error{"openspec": errors.New("exit status 1")}

	res, err := env.app.Gates.Run(ctx, "c1", gate.Validate, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, gate.Result{Success: false, Output: "2 issues found\nexit status 1"}, res)

	entries, err := env.app.Gates.Log(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, gate.Fail, entries[0].Result)
	assert.Equal(t, "2 issues found\nexit status 1", entries[0].Details)
}

func TestGateService_VerifyNotConfigured(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	env.mkChange(t, "c1", "proposal.md", "specs/a.md")

	_, err := env.app.Gates.Run(ctx, "c1", gate.Validate, RunOptions{})
	require.NoError(t, err)

	enabled, err := env.app.Gates.Enabled(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, enabled.CanVerify, "verify stays disabled without a command")

	for _, force := range []bool{false, true} {
		_, err = env.app.Gates.Run(ctx, "c1", gate.Verify, RunOptions{Force: force})
		require.ErrorIs(t, err, gate.ErrVerifyNotConfigured)
	}

	entries, err := env.app.Gates.Log(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rejected verify must not be logged")
	assert.Len(t, env.exec.Commands, 1)
}

func TestGateService_PreconditionRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "true")
	env.mkChange(t, "c1", "proposal.md")

	_, err := env.app.Gates.Run(ctx, "c1", gate.Validate, RunOptions{})
	var pe *gate.PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, gate.Validate, pe.Gate)

	_, err = env.app.Gates.Run(ctx, "c1", gate.Archive, RunOptions{})
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, gate.Archive, pe.Gate)

	entries, err := env.app.Gates.Log(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, env.exec.Commands)
}

func TestGateService_ForceSkipsPrerequisites(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	env.mkChange(t, "c1")

	res, err := env.app.Gates.Run(ctx, "c1", gate.Archive, RunOptions{Force: true})
	require.NoError(t, err)
	assert.True(t, res.Success)

	entries, err := env.app.Gates.Log(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, gate.Archive, entries[0].Gate)
}

func TestGateService_InvalidChangeID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")

	_, err := env.app.Gates.Run(ctx, "../etc", gate.Validate, RunOptions{})
	require.ErrorIs(t, err, validate.ErrInvalidChangeID)

	_, err = env.app.Gates.Execute(ctx, "--help", gate.Validate)
	require.ErrorIs(t, err, validate.ErrInvalidChangeID)

	_, err = env.app.Gates.Log(ctx, "a/b")
	require.ErrorIs(t, err, validate.ErrInvalidChangeID)

	assert.Empty(t, env.exec.Commands)
}

func TestGateService_ArchiveLogsToArchivedDirectory(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	changes := filepath.Join(root, "changes")
	require.NoError(t, os.MkdirAll(filepath.Join(changes, "c1"), 0o755))

	tree := openspec.New(root, zerolog.Nop())
	archiver := runnerFunc(func(_ context.Context, tg gate.Target) gate.Result {
		dst := filepath.Join(changes, "archive", "2025-01-31-"+tg.ChangeID)
		require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
		require.NoError(t, os.Rename(filepath.Join(changes, tg.ChangeID), dst))
		return gate.Result{Success: true, Output: "archived"}
	})

	svc := NewGateService(tree, jsonfile.NewGateLog(tree.GateReportPath, zerolog.Nop()),
		map[gate.Name]gate.Runner{gate.Archive: archiver}, zerolog.Nop())

	_, err := svc.Run(ctx, "c1", gate.Archive, RunOptions{Force: true})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(changes, "archive", "2025-01-31-c1", "gate-report.jsonl"))
	require.NoError(t, err)

	entries, err := svc.Log(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "archived", entries[0].Details)
}

func TestGateService_Timeout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "changes", "c1"), 0o755))
	tree := openspec.New(root, zerolog.Nop())

	slow := runnerFunc(func(ctx context.Context, _ gate.Target) gate.Result {
		<-ctx.Done()
		return gate.Result{Success: false, Output: "signal: killed"}
	})

	svc := NewGateService(tree, jsonfile.NewGateLog(tree.GateReportPath, zerolog.Nop()),
		map[gate.Name]gate.Runner{gate.Validate: slow}, zerolog.Nop())
	svc.Timeout = 10 * time.Millisecond

	res, err := svc.Execute(ctx, "c1", gate.Validate)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "signal: killed\ngate timed out after 10ms", res.Output)
}

func TestGateService_AppendFailureReturnsResult(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	tree := openspec.New(root, zerolog.Nop())

	ok := runnerFunc(func(context.Context, gate.Target) gate.Result {
		return gate.Result{Success: true, Output: "fine"}
	})

	// no change directory, so the log cannot be created
	svc := NewGateService(tree, jsonfile.NewGateLog(tree.GateReportPath, zerolog.Nop()),
		map[gate.Name]gate.Runner{gate.Validate: ok}, zerolog.Nop())

	res, err := svc.Run(ctx, "ghost", gate.Validate, RunOptions{Force: true})
	require.ErrorIs(t, err, ErrNotRecorded)
	assert.True(t, res.Success)
}

func TestGateService_Overview(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	env.mkChange(t, "c1", "proposal.md", "specs/a.md", "design.md", "tasks.md")

	_, err := env.app.Gates.Run(ctx, "c1", gate.Validate, RunOptions{})
	require.NoError(t, err)

	ov, err := env.app.Gates.Overview(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", ov.Status.ID)
	assert.True(t, ov.Enabled.CanValidate)
	assert.False(t, ov.Enabled.CanVerify)
	assert.Len(t, ov.Log, 1)
}

func TestGateService_CorruptLogLineDoesNotBlockGates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "make test")
	env.mkChange(t, "c1", "proposal.md", "specs/a.md")

	report := filepath.Join(env.root, "changes", "c1", "gate-report.jsonl")
	content := `{"timestamp":1,"gate":"validate","changeId":"c1","result":"pass","details":""}` + "\n" +
		"{truncated\n"
	require.NoError(t, os.WriteFile(report, []byte(content), 0o644))

	enabled, err := env.app.Gates.Enabled(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, enabled.CanVerify)

	res, err := env.app.Gates.Run(ctx, "c1", gate.Verify, RunOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)

	entries, err := env.app.Gates.Log(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, gate.Verify, entries[1].Gate)
}

func TestGateService_TimeoutStopsShellGate(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "changes", "c1"), 0o755))
	tree := openspec.New(root, zerolog.Nop())

	shell := &gate.Shell{Exec: &executil.RealExecutor{}, Command: "sleep 5; echo done"}
	svc := NewGateService(tree, jsonfile.NewGateLog(tree.GateReportPath, zerolog.Nop()),
		map[gate.Name]gate.Runner{gate.Verify: shell}, zerolog.Nop())
	svc.Timeout = 200 * time.Millisecond

	start := time.Now()
	res, err := svc.Execute(ctx, "c1", gate.Verify)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "gate timed out after 200ms")
	assert.NotContains(t, res.Output, "done")
	assert.Less(t, elapsed, 3*time.Second)
}
