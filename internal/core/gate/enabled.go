package gate

import (
	"fmt"

	"github.com/colonyops/sopform/internal/core/change"
)

// Enabled reports which gates may currently be invoked for a change.
type Enabled struct {
	CanValidate bool `json:"canValidate"`
	CanVerify   bool `json:"canVerify"`
	CanArchive  bool `json:"canArchive"`
}

// Last returns the most recent entry for gate g by append order.
func Last(entries []Entry, g Name) (Entry, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Gate == g {
			return entries[i], true
		}
	}
	return Entry{}, false
}

func lastPassed(entries []Entry, g Name) bool {
	e, ok := Last(entries, g)
	return ok && e.Passed()
}

// ComputeEnabled derives the runnable gates from artifact status and the audit
// log. Only the latest entry of each gate counts: a later failure of an earlier
// gate does not relock a gate it already unlocked, and no terminal state exists.
func ComputeEnabled(status change.Status, entries []Entry, verifyConfigured bool) Enabled {
	return Enabled{
		CanValidate: status.Has(change.ArtifactProposal) && status.Has(change.ArtifactSpecs),
		CanVerify:   verifyConfigured && lastPassed(entries, Validate),
		CanArchive:  lastPassed(entries, Verify),
	}
}

// Allows reports whether gate g is enabled.
func (e Enabled) Allows(g Name) bool {
	switch g {
	case Validate:
		return e.CanValidate
	case Verify:
		return e.CanVerify
	case Archive:
		return e.CanArchive
	default:
		return false
	}
}

// Requirement returns the human-readable prerequisite of gate g.
func Requirement(g Name) string {
	switch g {
	case Validate:
		return "requires proposal.md and specs/"
	case Verify:
		return "requires the latest validate to pass"
	case Archive:
		return "requires the latest verify to pass"
	default:
		return ""
	}
}

// PreconditionError rejects a gate whose prerequisites are not met. The gate
// did not run, so nothing is logged.
type PreconditionError struct {
	Gate   Name
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s gate not enabled: %s", e.Gate, e.Reason)
}

// Check returns a *PreconditionError if gate g is not enabled.
func (e Enabled) Check(g Name) error {
	if e.Allows(g) {
		return nil
	}
	return &PreconditionError{Gate: g, Reason: Requirement(g)}
}
