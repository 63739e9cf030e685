// Package change defines the artifact and status types of an OpenSpec change.
package change

// Artifact names a recognized change artifact.
type Artifact string

const (
	ArtifactProposal Artifact = "proposal"
	ArtifactSpecs    Artifact = "specs"
	ArtifactDesign   Artifact = "design"
	ArtifactTasks    Artifact = "tasks"
)

// ArtifactKind tells whether an artifact is a single file or a directory.
type ArtifactKind int

const (
	KindFile ArtifactKind = iota
	KindDir
)

// ArtifactDef describes where an artifact lives relative to the change directory.
type ArtifactDef struct {
	Name Artifact
	Path string
	Kind ArtifactKind
}

// Artifacts lists the recognized artifacts in display order.
var Artifacts = []ArtifactDef{
	{Name: ArtifactProposal, Path: "proposal.md", Kind: KindFile},
	{Name: ArtifactSpecs, Path: "specs", Kind: KindDir},
	{Name: ArtifactDesign, Path: "design.md", Kind: KindFile},
	{Name: ArtifactTasks, Path: "tasks.md", Kind: KindFile},
}

// State is the coarse readiness of a change.
type State string

const (
	StateReady   State = "READY"
	StateNext    State = "NEXT"
	StateBlocked State = "BLOCKED"
)

// ArtifactStatus reports the presence of one artifact. Complete mirrors Exists;
// artifact content is not inspected.
type ArtifactStatus struct {
	Name     Artifact `json:"name"`
	Exists   bool     `json:"exists"`
	Complete bool     `json:"complete"`
	Files    []string `json:"files,omitempty"`
}

// Status is the derived status of a change. It is computed on every read.
type Status struct {
	ID        string           `json:"id"`
	Artifacts []ArtifactStatus `json:"artifacts"`
	Status    State            `json:"status"`
}

// Summary is a change id with its derived state, as shown in listings.
type Summary struct {
	ID     string `json:"id"`
	Status State  `json:"status"`
}

// Derive computes the change state from its artifact statuses.
func Derive(artifacts []ArtifactStatus) State {
	if len(artifacts) == 0 {
		return StateBlocked
	}

	all, some := true, false
	for _, a := range artifacts {
		if !a.Complete {
			all = false
		}
		if a.Exists {
			some = true
		}
	}

	switch {
	case all:
		return StateReady
	case some:
		return StateNext
	default:
		return StateBlocked
	}
}

// NewStatus builds a Status with the derived state filled in.
func NewStatus(id string, artifacts []ArtifactStatus) Status {
	return Status{ID: id, Artifacts: artifacts, Status: Derive(artifacts)}
}

// Artifact returns the status entry for name.
func (s Status) Artifact(name Artifact) (ArtifactStatus, bool) {
	for _, a := range s.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return ArtifactStatus{}, false
}

// Has reports whether the named artifact exists.
func (s Status) Has(name Artifact) bool {
	a, ok := s.Artifact(name)
	return ok && a.Exists
}
