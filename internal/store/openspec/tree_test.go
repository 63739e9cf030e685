package openspec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/sopform/internal/core/change"
)

func newTree(t *testing.T) *Tree {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "changes"), 0o755))
	return New(root, zerolog.Nop())
}

func mkChange(t *testing.T, tree *Tree, id string, files ...string) {
	t.Helper()
	dir := tree.ChangeDir(id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

func TestTree_Changes(t *testing.T) {
	tree := newTree(t)
	mkChange(t, tree, "zeta")
	mkChange(t, tree, "alpha")
	mkChange(t, tree, "archive")
	require.NoError(t, os.WriteFile(filepath.Join(tree.Root(), "changes", "README.md"), []byte("x"), 0o644))

	assert.Equal(t, []string{"alpha", "zeta"}, tree.Changes(context.Background()))
}

func TestTree_ChangesMissingRoot(t *testing.T) {
	tree := New(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
	got := tree.Changes(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTree_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("missing change reads as all absent", func(t *testing.T) {
		tree := newTree(t)
		st := tree.Status(ctx, "ghost")
		assert.Equal(t, change.StateBlocked, st.Status)
		assert.Len(t, st.Artifacts, 4)
		for _, a := range st.Artifacts {
			assert.False(t, a.Exists, a.Name)
		}
	})

	t.Run("partial change is next", func(t *testing.T) {
		tree := newTree(t)
		mkChange(t, tree, "add-auth", "proposal.md")
		st := tree.Status(ctx, "add-auth")
		assert.Equal(t, change.StateNext, st.Status)
		assert.True(t, st.Has(change.ArtifactProposal))
		assert.False(t, st.Has(change.ArtifactSpecs))
	})

	t.Run("complete change is ready and lists spec files", func(t *testing.T) {
		tree := newTree(t)
		mkChange(t, tree, "add-auth",
			"proposal.md", "design.md", "tasks.md",
			"specs/auth/spec.md", "specs/billing/spec.md", "specs/notes.txt")
		st := tree.Status(ctx, "add-auth")
		assert.Equal(t, change.StateReady, st.Status)

		specs, ok := st.Artifact(change.ArtifactSpecs)
		require.True(t, ok)
		assert.Equal(t, []string{"specs/auth/spec.md", "specs/billing/spec.md"}, specs.Files)
	})

	t.Run("kind mismatch reads as absent", func(t *testing.T) {
		tree := newTree(t)
		mkChange(t, tree, "odd", "specs", "tasks.md/keep")
		st := tree.Status(ctx, "odd")
		assert.False(t, st.Has(change.ArtifactSpecs))
		assert.False(t, st.Has(change.ArtifactTasks))
	})
}

func TestTree_Status_Idempotent(t *testing.T) {
	ctx := context.Background()
	tree := newTree(t)
	mkChange(t, tree, "add-auth",
		"proposal.md", "design.md", "tasks.md",
		"specs/zeta/spec.md", "specs/auth/login/spec.md", "specs/auth/spec.md",
		"specs/billing/invoices/refunds/spec.md", "specs/README.md")

	first := tree.Status(ctx, "add-auth")
	second := tree.Status(ctx, "add-auth")

	assert.Equal(t, first, second)
	assert.Equal(t, change.StateReady, first.Status)

	specs, ok := first.Artifact(change.ArtifactSpecs)
	require.True(t, ok)
	assert.Equal(t, []string{
		"specs/README.md",
		"specs/auth/login/spec.md",
		"specs/auth/spec.md",
		"specs/billing/invoices/refunds/spec.md",
		"specs/zeta/spec.md",
	}, specs.Files)
}

func TestTree_Summaries(t *testing.T) {
	tree := newTree(t)
	mkChange(t, tree, "a", "proposal.md", "design.md", "tasks.md", "specs/x.md")
	mkChange(t, tree, "b")

	got := tree.Summaries(context.Background())
	assert.Equal(t, []change.Summary{
		{ID: "a", Status: change.StateReady},
		{ID: "b", Status: change.StateBlocked},
	}, got)
}

func TestTree_GateReportPath(t *testing.T) {
	tree := newTree(t)

	t.Run("active change", func(t *testing.T) {
		mkChange(t, tree, "live")
		assert.Equal(t, filepath.Join(tree.ChangeDir("live"), "gate-report.jsonl"), tree.GateReportPath("live"))
	})

	t.Run("archived change uses newest archive dir", func(t *testing.T) {
		archive := filepath.Join(tree.Root(), "changes", "archive")
		require.NoError(t, os.MkdirAll(filepath.Join(archive, "2024-01-02-gone"), 0o755))
		require.NoError(t, os.MkdirAll(filepath.Join(archive, "2024-03-09-gone"), 0o755))
		require.NoError(t, os.MkdirAll(filepath.Join(archive, "2024-05-01-gone-too"), 0o755))

		assert.Equal(t, filepath.Join(archive, "2024-03-09-gone", "gate-report.jsonl"), tree.GateReportPath("gone"))
	})

	t.Run("unknown change falls back to active path", func(t *testing.T) {
		assert.Equal(t, filepath.Join(tree.ChangeDir("never"), "gate-report.jsonl"), tree.GateReportPath("never"))
	})
}

func TestEscapeMeta(t *testing.T) {
	assert.Equal(t, `a\*b\[c\]`, escapeMeta("a*b[c]"))
	assert.Equal(t, "plain-id", escapeMeta("plain-id"))
}
