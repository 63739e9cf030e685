package forms

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// SchemaVersion is the version written into every saved AppData.
const SchemaVersion = 1

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrNoActiveProject  = errors.New("no active project; create one or run `sopform project use`")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrUnknownField     = errors.New("unknown field")
	ErrInvalidImport    = errors.New("invalid project data: missing projects array")
)

// Stages holds field values per stage.
type Stages map[StageID]map[string]string

// Snapshot is a saved copy of a project's stages. Ts is unix milliseconds.
type Snapshot struct {
	Ts     int64  `json:"ts"`
	Note   string `json:"note,omitempty"`
	Stages Stages `json:"stages"`
}

// Project is one set of stage forms with its snapshot history.
type Project struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	UpdatedAt int64      `json:"updatedAt"`
	Stages    Stages     `json:"stages"`
	History   []Snapshot `json:"history"`
}

// AppData is the versioned root record persisted to disk. Values are treated
// as immutable: every update function returns a new AppData and leaves its
// input untouched.
type AppData struct {
	SchemaVersion   int       `json:"schemaVersion"`
	Projects        []Project `json:"projects"`
	ActiveProjectID string    `json:"activeProjectId,omitempty"`
}

// Empty returns an empty AppData at the current schema version.
func Empty() AppData {
	return AppData{SchemaVersion: SchemaVersion, Projects: []Project{}}
}

func copyStages(s Stages) Stages {
	out := make(Stages, len(StageOrder))
	for _, id := range StageOrder {
		out[id] = map[string]string{}
	}
	for id, fields := range s {
		out[id] = maps.Clone(fields)
		if out[id] == nil {
			out[id] = map[string]string{}
		}
	}
	return out
}

func (p Project) clone() Project {
	p.Stages = copyStages(p.Stages)
	history := make([]Snapshot, len(p.History))
	for i, s := range p.History {
		s.Stages = copyStages(s.Stages)
		history[i] = s
	}
	p.History = history
	return p
}

// Clone returns a deep copy of d.
func (d AppData) Clone() AppData {
	out := d
	out.Projects = make([]Project, len(d.Projects))
	for i, p := range d.Projects {
		out.Projects[i] = p.clone()
	}
	return out
}

// Normalize fills zero values left by older or hand-edited files.
func (d AppData) Normalize() AppData {
	out := d.Clone()
	if out.SchemaVersion == 0 {
		out.SchemaVersion = SchemaVersion
	}
	for i := range out.Projects {
		if out.Projects[i].History == nil {
			out.Projects[i].History = []Snapshot{}
		}
	}
	return out
}

// NewProject returns an empty project with every stage initialized.
func NewProject(id, name string, now time.Time) Project {
	return Project{
		ID:        id,
		Name:      name,
		UpdatedAt: now.UnixMilli(),
		Stages:    copyStages(nil),
		History:   []Snapshot{},
	}
}

func (d AppData) index(id string) int {
	return slices.IndexFunc(d.Projects, func(p Project) bool { return p.ID == id })
}

// Find returns the project whose id or name matches ref.
func (d AppData) Find(ref string) (Project, bool) {
	if i := d.index(ref); i >= 0 {
		return d.Projects[i].clone(), true
	}
	for _, p := range d.Projects {
		if p.Name == ref {
			return p.clone(), true
		}
	}
	return Project{}, false
}

// Active returns the active project.
func (d AppData) Active() (Project, error) {
	if d.ActiveProjectID == "" {
		return Project{}, ErrNoActiveProject
	}
	i := d.index(d.ActiveProjectID)
	if i < 0 {
		return Project{}, ErrNoActiveProject
	}
	return d.Projects[i].clone(), nil
}

func (d AppData) update(id string, fn func(p *Project) error) (AppData, error) {
	out := d.Clone()
	i := out.index(id)
	if i < 0 {
		return d, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err := fn(&out.Projects[i]); err != nil {
		return d, err
	}
	return out, nil
}

// AddProject appends p and makes it the active project.
func (d AppData) AddProject(p Project) AppData {
	out := d.Clone()
	out.Projects = append(out.Projects, p.clone())
	out.ActiveProjectID = p.ID
	return out
}

// DeleteProject removes the project with id. Deleting the active project
// clears the active selection.
func (d AppData) DeleteProject(id string) (AppData, error) {
	if d.index(id) < 0 {
		return d, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	out := d.Clone()
	out.Projects = slices.DeleteFunc(out.Projects, func(p Project) bool { return p.ID == id })
	if out.ActiveProjectID == id {
		out.ActiveProjectID = ""
	}
	return out, nil
}

// RenameProject changes the name of project id.
func (d AppData) RenameProject(id, name string, now time.Time) (AppData, error) {
	return d.update(id, func(p *Project) error {
		p.Name = name
		p.UpdatedAt = now.UnixMilli()
		return nil
	})
}

// SetActive selects project id.
func (d AppData) SetActive(id string) (AppData, error) {
	if d.index(id) < 0 {
		return d, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	out := d.Clone()
	out.ActiveProjectID = id
	return out, nil
}

// SetField stores value for field of stage in project id.
func (d AppData) SetField(id string, stage StageID, field, value string, now time.Time) (AppData, error) {
	if _, ok := FieldByID(stage, field); !ok {
		return d, fmt.Errorf("%w: %s.%s", ErrUnknownField, stage, field)
	}
	return d.update(id, func(p *Project) error {
		p.Stages[stage][field] = value
		p.UpdatedAt = now.UnixMilli()
		return nil
	})
}

// Snapshot appends a copy of the current stages of project id to its history.
func (d AppData) Snapshot(id, note string, now time.Time) (AppData, error) {
	return d.update(id, func(p *Project) error {
		p.History = append(p.History, Snapshot{
			Ts:     now.UnixMilli(),
			Note:   note,
			Stages: copyStages(p.Stages),
		})
		return nil
	})
}

// Restore replaces the stages of project id with snapshot n (0-based, oldest
// first). The history itself is unchanged.
func (d AppData) Restore(id string, n int, now time.Time) (AppData, error) {
	return d.update(id, func(p *Project) error {
		if n < 0 || n >= len(p.History) {
			return fmt.Errorf("%w: #%d", ErrSnapshotNotFound, n+1)
		}
		p.Stages = copyStages(p.History[n].Stages)
		p.UpdatedAt = now.UnixMilli()
		return nil
	})
}

// CheckImport verifies that decoded data is usable as AppData.
func CheckImport(d AppData) error {
	if d.Projects == nil {
		return ErrInvalidImport
	}
	return nil
}
