package sopform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/sopform/internal/core/change"
	"github.com/colonyops/sopform/internal/store/openspec"
)

func TestChangeService_List(t *testing.T) {
	env := newTestEnv(t, "")
	env.mkChange(t, "b-change", "proposal.md")
	env.mkChange(t, "a-change")

	got := env.app.Changes.List(context.Background())
	assert.Equal(t, []change.Summary{
		{ID: "a-change", Status: change.StateBlocked},
		{ID: "b-change", Status: change.StateNext},
	}, got)
}

func TestChangeService_Status(t *testing.T) {
	env := newTestEnv(t, "")
	env.mkChange(t, "c1", "proposal.md", "specs/x/spec.md", "design.md", "tasks.md")

	st, err := env.app.Changes.Status(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, change.StateReady, st.Status)

	_, err = env.app.Changes.Status(context.Background(), "")
	require.Error(t, err)
}

func TestChangeService_WriteDecision(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	env.mkChange(t, "c1", "proposal.md")

	d := change.Decision{Goal: "Add login", Risks: "token leak"}
	require.NoError(t, env.app.Changes.WriteDecision(ctx, "c1", d))

	// a second write replaces the block instead of appending
	d.Goal = "Add SSO login"
	require.NoError(t, env.app.Changes.WriteDecision(ctx, "c1", d))

	proposal, err := os.ReadFile(filepath.Join(env.root, "changes", "c1", "proposal.md"))
	require.NoError(t, err)
	assert.Equal(t, "# proposal.md\n\n\n"+openspec.Bound(d.Proposal()), string(proposal))

	design, err := os.ReadFile(filepath.Join(env.root, "changes", "c1", "design.md"))
	require.NoError(t, err)
	assert.Equal(t, openspec.Bound(d.Design()), string(design))
}

func TestChangeService_WriteDecisionErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "")
	env.mkChange(t, "c1")

	err := env.app.Changes.WriteDecision(ctx, "ghost", change.Decision{Goal: "x"})
	require.ErrorIs(t, err, ErrChangeNotFound)

	err = env.app.Changes.WriteDecision(ctx, "c1", change.Decision{})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(env.root, "changes", "c1", "proposal.md"))
	assert.True(t, os.IsNotExist(statErr), "invalid decision must not write")
}
