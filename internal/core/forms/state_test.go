package forms

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.UnixMilli(1_700_000_000_000)

func seeded(t *testing.T) AppData {
	t.Helper()
	d := Empty().AddProject(NewProject("p1", "Checkout revamp", t0))
	d, err := d.SetField("p1", StageReq, "goal", "faster checkout", t0)
	require.NoError(t, err)
	return d
}

func TestAddProject_SetsActive(t *testing.T) {
	d := seeded(t)

	p, err := d.Active()
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Len(t, p.Stages, len(StageOrder))
	assert.Empty(t, Empty().Projects)
}

func TestUpdates_DoNotMutateInput(t *testing.T) {
	before := seeded(t)

	after, err := before.SetField("p1", StageReq, "goal", "changed", t0.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, "faster checkout", before.Projects[0].Stages[StageReq]["goal"])
	assert.Equal(t, "changed", after.Projects[0].Stages[StageReq]["goal"])
	assert.Equal(t, t0.Add(time.Second).UnixMilli(), after.Projects[0].UpdatedAt)
}

func TestSetField_UnknownField(t *testing.T) {
	_, err := seeded(t).SetField("p1", StageReq, "colour", "red", t0)
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestSetField_UnknownProject(t *testing.T) {
	_, err := seeded(t).SetField("nope", StageReq, "goal", "x", t0)
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestSnapshotAndRestore(t *testing.T) {
	d := seeded(t)

	d, err := d.Snapshot("p1", "first draft", t0)
	require.NoError(t, err)

	d, err = d.SetField("p1", StageReq, "goal", "rewritten", t0)
	require.NoError(t, err)

	// snapshot holds its own copy
	assert.Equal(t, "faster checkout", d.Projects[0].History[0].Stages[StageReq]["goal"])

	d, err = d.Restore("p1", 0, t0)
	require.NoError(t, err)
	assert.Equal(t, "faster checkout", d.Projects[0].Stages[StageReq]["goal"])
	assert.Len(t, d.Projects[0].History, 1)
	assert.Equal(t, "first draft", d.Projects[0].History[0].Note)

	_, err = d.Restore("p1", 3, t0)
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestDeleteProject_ClearsActive(t *testing.T) {
	d := seeded(t).AddProject(NewProject("p2", "Other", t0))

	d, err := d.SetActive("p1")
	require.NoError(t, err)

	d, err = d.DeleteProject("p1")
	require.NoError(t, err)
	assert.Len(t, d.Projects, 1)
	_, err = d.Active()
	require.ErrorIs(t, err, ErrNoActiveProject)

	_, err = d.DeleteProject("p1")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestRenameAndFind(t *testing.T) {
	d, err := seeded(t).RenameProject("p1", "Checkout v2", t0)
	require.NoError(t, err)

	p, ok := d.Find("Checkout v2")
	require.True(t, ok)
	assert.Equal(t, "p1", p.ID)

	_, ok = d.Find("p1")
	assert.True(t, ok)
	_, ok = d.Find("missing")
	assert.False(t, ok)
}

func TestJSONShape(t *testing.T) {
	raw := `{
	  "schemaVersion": 1,
	  "activeProjectId": "p1",
	  "projects": [{
	    "id": "p1", "name": "Legacy", "updatedAt": 1700000000000,
	    "stages": {"req": {"goal": "g"}},
	    "history": [{"ts": 1, "note": "n", "stages": {"req": {"goal": "old"}}}]
	  }]
	}`

	var d AppData
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	require.NoError(t, CheckImport(d))

	d = d.Normalize()
	p, err := d.Active()
	require.NoError(t, err)
	assert.Equal(t, "g", p.Stages[StageReq]["goal"])
	assert.NotNil(t, p.Stages[StageOps])
	assert.Equal(t, "old", p.History[0].Stages[StageReq]["goal"])
}

func TestCheckImport_MissingProjects(t *testing.T) {
	var d AppData
	require.NoError(t, json.Unmarshal([]byte(`{"schemaVersion":1}`), &d))
	require.ErrorIs(t, CheckImport(d), ErrInvalidImport)
}
