package change

import (
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/sopform/internal/core/validate"
)

// Decision is the summary a user records for a change. It is rendered into the
// bounded sections of proposal.md and design.md.
type Decision struct {
	Goal        string `json:"goal"`
	NonGoals    string `json:"nonGoals"`
	Constraints string `json:"constraints"`
	DataModel   string `json:"dataModel"`
	APIBoundary string `json:"apiBoundary"`
	Risks       string `json:"risks"`
}

// Validate reports missing required fields.
func (d Decision) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("goal", d.Goal, validate.Required),
	)
}

// Proposal renders the proposal.md section.
func (d Decision) Proposal() string {
	return sections(
		"Goal", d.Goal,
		"Non-goals", d.NonGoals,
		"Constraints", d.Constraints,
	)
}

// Design renders the design.md section.
func (d Decision) Design() string {
	return sections(
		"Data Model", d.DataModel,
		"API Boundary", d.APIBoundary,
		"Risks", d.Risks,
	)
}

func sections(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, "## "+pairs[i]+"\n"+pairs[i+1])
	}
	return strings.Join(parts, "\n\n")
}
