package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/sopform/internal/core/forms"
)

func TestProjectStore_LoadMissing(t *testing.T) {
	store := NewProjectStore(filepath.Join(t.TempDir(), "projects.json"))

	data, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, forms.SchemaVersion, data.SchemaVersion)
	assert.Empty(t, data.Projects)
}

func TestProjectStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "projects.json")
	store := NewProjectStore(path)

	now := time.UnixMilli(1_700_000_000_000)
	data := forms.Empty().AddProject(forms.NewProject("p1", "Checkout", now))
	require.NoError(t, store.Save(ctx, data))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p1", loaded.ActiveProjectID)
	require.Len(t, loaded.Projects, 1)
	assert.Equal(t, "Checkout", loaded.Projects[0].Name)
}

func TestProjectStore_UpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "projects.json")
	store := NewProjectStore(path)

	boom := errors.New("boom")
	_, err := store.Update(ctx, func(d forms.AppData) (forms.AppData, error) {
		return d, boom
	})
	require.ErrorIs(t, err, boom)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProjectStore_Update(t *testing.T) {
	ctx := context.Background()
	store := NewProjectStore(filepath.Join(t.TempDir(), "projects.json"))
	now := time.Now()

	_, err := store.Update(ctx, func(d forms.AppData) (forms.AppData, error) {
		return d.AddProject(forms.NewProject("p1", "One", now)), nil
	})
	require.NoError(t, err)

	next, err := store.Update(ctx, func(d forms.AppData) (forms.AppData, error) {
		return d.SetField("p1", forms.StageReq, "goal", "g", now)
	})
	require.NoError(t, err)
	assert.Equal(t, "g", next.Projects[0].Stages[forms.StageReq]["goal"])

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "g", loaded.Projects[0].Stages[forms.StageReq]["goal"])
}

func TestProjectStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := NewProjectStore(path).Load(context.Background())
	require.Error(t, err)
}
