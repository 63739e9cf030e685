// Package forms holds the stage form registry, the versioned project state and
// the plain-text export of filled forms.
package forms

import "fmt"

// StageID identifies a form stage.
type StageID string

const (
	StageReq     StageID = "req"
	StageDesign  StageID = "design"
	StagePlan    StageID = "plan"
	StageImpl    StageID = "impl"
	StageRelease StageID = "release"
	StageOps     StageID = "ops"
)

// StageOrder lists the stages in workflow order.
var StageOrder = []StageID{StageReq, StageDesign, StagePlan, StageImpl, StageRelease, StageOps}

// StageTitles maps stages to display titles.
var StageTitles = map[StageID]string{
	StageReq:     "Requirements",
	StageDesign:  "Design / Architecture",
	StagePlan:    "Planning",
	StageImpl:    "Implementation",
	StageRelease: "Verification / Release",
	StageOps:     "Operations / Feedback",
}

// FieldKind selects the input widget for a field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
)

// Field describes one form field.
type Field struct {
	ID       string
	Label    string
	Required bool
	Kind     FieldKind
}

func area(id, label string, required bool) Field {
	return Field{ID: id, Label: label, Required: required, Kind: KindTextarea}
}

// Registry holds the fields of each stage.
var Registry = map[StageID][]Field{
	StageReq: {
		area("goal", "Goal", true),
		area("scope", "Scope", true),
		area("non_goals", "Non-goals", false),
		area("target_users", "Target Users", false),
		area("constraints", "Constraints", false),
		area("acceptance_criteria", "Acceptance Criteria", true),
	},
	StageDesign: {
		area("module_boundaries", "Module Boundaries", true),
		area("data_model", "Data Model", true),
		area("state_machine", "State Machine", false),
		area("idempotency_concurrency", "Idempotency & Concurrency", false),
		area("observability", "Observability", false),
		area("security_privacy", "Security & Privacy", false),
	},
	StagePlan: {
		area("versions", "Versions", true),
		area("milestones", "Milestones", false),
		area("dependencies", "Dependencies", false),
		area("risks", "Risks", false),
		area("gates", "Gates", false),
	},
	StageImpl: {
		area("allowed_changes", "Allowed Changes", true),
		area("must_not_change", "Must Not Change", true),
		area("required_evidence", "Required Evidence", false),
		area("rollback_conditions", "Rollback Conditions", false),
		area("test_commands", "Test Commands", false),
	},
	StageRelease: {
		area("critical_paths", "Critical Paths", true),
		area("repro_steps", "Repro Steps", false),
		area("pass_criteria", "Pass Criteria", true),
		area("release_checklist", "Release Checklist", false),
		area("rollback_trigger", "Rollback Trigger", false),
	},
	StageOps: {
		area("incident_summary", "Incident Summary", false),
		area("root_cause", "Root Cause", false),
		area("lessons_learned", "Lessons Learned", false),
		area("new_rules_to_add", "New Rules to Add", false),
		area("fields_to_standardize_next_time", "Fields to Standardize Next Time", false),
	},
}

// ParseStage converts s to a StageID.
func ParseStage(s string) (StageID, error) {
	for _, id := range StageOrder {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q (want one of req, design, plan, impl, release, ops)", s)
}

// FieldByID returns the field of stage with the given id.
func FieldByID(stage StageID, id string) (Field, bool) {
	for _, f := range Registry[stage] {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}
