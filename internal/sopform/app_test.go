package sopform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/colonyops/sopform/internal/core/config"
	"github.com/colonyops/sopform/pkg/executil"
)

type testEnv struct {
	app  *App
	exec *executil.RecordingExecutor
	root string
}

func newTestEnv(t *testing.T, verifyCmd string) *testEnv {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "changes"), 0o755))

	dataDir := t.TempDir()
	cfg := &config.Config{
		OpenSpecRoot: root,
		OpenSpecPath: "openspec",
		Gates:        config.GatesConfig{VerifyCmd: verifyCmd},
		ProjectsFile: filepath.Join(dataDir, "projects.json"),
		DataDir:      dataDir,
	}

	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"openspec": []byte("ok\n"), "sh": []byte("tests passed\n")},
	}

	app := NewApp(cfg, exec)
	app.Gates.Now = func() time.Time { return time.UnixMilli(1700000000000) }
	return &testEnv{app: app, exec: exec, root: root}
}

func (e *testEnv) mkChange(t *testing.T, id string, files ...string) {
	t.Helper()
	dir := filepath.Join(e.root, "changes", id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("# "+f+"\n"), 0o644))
	}
}
