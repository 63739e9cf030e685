package change

import (
	"errors"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecision_Validate(t *testing.T) {
	err := Decision{Goal: "  "}.Validate()
	require.Error(t, err)

	var fieldErrs criterio.FieldErrors
	require.True(t, errors.As(err, &fieldErrs))
	assert.Equal(t, "goal", fieldErrs[0].Field)

	assert.NoError(t, Decision{Goal: "ship it"}.Validate())
}

func TestDecision_Render(t *testing.T) {
	d := Decision{
		Goal:        "G",
		NonGoals:    "N",
		Constraints: "C",
		DataModel:   "D",
		APIBoundary: "A",
		Risks:       "R",
	}

	assert.Equal(t, "## Goal\nG\n\n## Non-goals\nN\n\n## Constraints\nC", d.Proposal())
	assert.Equal(t, "## Data Model\nD\n\n## API Boundary\nA\n\n## Risks\nR", d.Design())
}

func TestDecision_RenderEmptySections(t *testing.T) {
	d := Decision{Goal: "G"}
	assert.Equal(t, "## Goal\nG\n\n## Non-goals\n\n\n## Constraints\n", d.Proposal())
}
