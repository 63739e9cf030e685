package doctor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/sopform/internal/core/config"
)

type stubCheck struct {
	name  string
	items []CheckItem
}

func (s stubCheck) Name() string { return s.name }

func (s stubCheck) Run(context.Context) Result {
	return Result{Name: s.name, Items: s.items}
}

func TestRunAllAndTally(t *testing.T) {
	results := RunAll(context.Background(), []Check{
		stubCheck{name: "a", items: []CheckItem{{Label: "x", Status: StatusPass}, {Label: "y", Status: StatusWarn, Fixable: true}}},
		stubCheck{name: "b", items: []CheckItem{{Label: "z", Status: StatusFail}}},
	})

	assert.Len(t, results, 2)

	counts := Tally(results)
	assert.Equal(t, Counts{Passed: 1, Warned: 1, Failed: 1, Fixable: 1}, counts)
	assert.False(t, counts.Healthy())
}

func TestRunAll_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := RunAll(ctx, []Check{stubCheck{name: "a"}})
	assert.Empty(t, results)
}

func TestCheckItem_JSON(t *testing.T) {
	b, err := json.Marshal(CheckItem{Label: "openspec", Status: StatusWarn, Fixable: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"label":"openspec","status":"warn","fixable":true}`, string(b))
}

func TestConfigCheck(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	result := NewConfigCheck(&cfg, "").Run(context.Background())
	assert.Equal(t, []CheckItem{{Label: "config", Status: StatusPass, Detail: "defaults"}}, result.Items)

	cfg.Gates.VerifyCmd = "echo {{ .Nope }}"
	result = NewConfigCheck(&cfg, "").Run(context.Background())
	assert.Len(t, result.Items, 1)
	assert.Equal(t, "gates.verify_cmd", result.Items[0].Label)
	assert.Equal(t, StatusFail, result.Items[0].Status)
}
