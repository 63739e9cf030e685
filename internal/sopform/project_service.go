package sopform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/colonyops/sopform/internal/core/forms"
	"github.com/colonyops/sopform/internal/core/validate"
	"github.com/colonyops/sopform/pkg/randid"
)

// ProjectStore persists the form studio state.
type ProjectStore interface {
	Load(ctx context.Context) (forms.AppData, error)
	Save(ctx context.Context, data forms.AppData) error
	Update(ctx context.Context, fn func(forms.AppData) (forms.AppData, error)) (forms.AppData, error)
}

// ProjectService manages form projects. An empty project reference means the
// active project.
type ProjectService struct {
	store ProjectStore
	now   func() time.Time
}

// NewProjectService creates a new ProjectService.
func NewProjectService(store ProjectStore, now func() time.Time) *ProjectService {
	return &ProjectService{store: store, now: now}
}

// Data returns the full stored state.
func (s *ProjectService) Data(ctx context.Context) (forms.AppData, error) {
	return s.store.Load(ctx)
}

// Get returns the project referenced by id or name.
func (s *ProjectService) Get(ctx context.Context, ref string) (forms.Project, error) {
	data, err := s.store.Load(ctx)
	if err != nil {
		return forms.Project{}, err
	}
	return resolve(data, ref)
}

func resolve(data forms.AppData, ref string) (forms.Project, error) {
	if ref == "" {
		return data.Active()
	}
	p, ok := data.Find(ref)
	if !ok {
		return forms.Project{}, fmt.Errorf("%w: %s", forms.ErrProjectNotFound, ref)
	}
	return p, nil
}

// mutate resolves ref and applies fn to the stored state.
func (s *ProjectService) mutate(ctx context.Context, ref string, fn func(d forms.AppData, p forms.Project) (forms.AppData, error)) (forms.Project, error) {
	var id string
	next, err := s.store.Update(ctx, func(d forms.AppData) (forms.AppData, error) {
		p, err := resolve(d, ref)
		if err != nil {
			return d, err
		}
		id = p.ID
		return fn(d, p)
	})
	if err != nil {
		return forms.Project{}, err
	}
	p, _ := next.Find(id)
	return p, nil
}

// Create adds a new project and makes it active.
func (s *ProjectService) Create(ctx context.Context, name string) (forms.Project, error) {
	name = strings.TrimSpace(name)
	if err := validate.ProjectName(name); err != nil {
		return forms.Project{}, err
	}

	p := forms.NewProject(randid.Generate(10), name, s.now())
	if _, err := s.store.Update(ctx, func(d forms.AppData) (forms.AppData, error) {
		return d.AddProject(p), nil
	}); err != nil {
		return forms.Project{}, err
	}
	return p, nil
}

// Use makes the referenced project active.
func (s *ProjectService) Use(ctx context.Context, ref string) (forms.Project, error) {
	return s.mutate(ctx, ref, func(d forms.AppData, p forms.Project) (forms.AppData, error) {
		return d.SetActive(p.ID)
	})
}

// Delete removes the referenced project and returns it.
func (s *ProjectService) Delete(ctx context.Context, ref string) (forms.Project, error) {
	var removed forms.Project
	_, err := s.store.Update(ctx, func(d forms.AppData) (forms.AppData, error) {
		p, err := resolve(d, ref)
		if err != nil {
			return d, err
		}
		removed = p
		return d.DeleteProject(p.ID)
	})
	if err != nil {
		return forms.Project{}, err
	}
	return removed, nil
}

// Rename changes the name of the referenced project.
func (s *ProjectService) Rename(ctx context.Context, ref, name string) (forms.Project, error) {
	name = strings.TrimSpace(name)
	if err := validate.ProjectName(name); err != nil {
		return forms.Project{}, err
	}
	return s.mutate(ctx, ref, func(d forms.AppData, p forms.Project) (forms.AppData, error) {
		return d.RenameProject(p.ID, name, s.now())
	})
}

// SetField stores one field value.
func (s *ProjectService) SetField(ctx context.Context, ref string, stage forms.StageID, field, value string) (forms.Project, error) {
	return s.mutate(ctx, ref, func(d forms.AppData, p forms.Project) (forms.AppData, error) {
		return d.SetField(p.ID, stage, field, value, s.now())
	})
}

// SetFields stores several values of one stage in a single write.
func (s *ProjectService) SetFields(ctx context.Context, ref string, stage forms.StageID, values map[string]string) (forms.Project, error) {
	return s.mutate(ctx, ref, func(d forms.AppData, p forms.Project) (forms.AppData, error) {
		now := s.now()
		for _, f := range forms.Registry[stage] {
			v, ok := values[f.ID]
			if !ok {
				continue
			}
			var err error
			if d, err = d.SetField(p.ID, stage, f.ID, v, now); err != nil {
				return d, err
			}
		}
		return d, nil
	})
}

// Snapshot saves the current stages of the referenced project.
func (s *ProjectService) Snapshot(ctx context.Context, ref, note string) (forms.Project, error) {
	return s.mutate(ctx, ref, func(d forms.AppData, p forms.Project) (forms.AppData, error) {
		return d.Snapshot(p.ID, note, s.now())
	})
}

// Restore replaces the stages of the referenced project with snapshot n
// (1-based, oldest first, as printed by `project history`).
func (s *ProjectService) Restore(ctx context.Context, ref string, n int) (forms.Project, error) {
	return s.mutate(ctx, ref, func(d forms.AppData, p forms.Project) (forms.AppData, error) {
		return d.Restore(p.ID, n-1, s.now())
	})
}

// Export writes the full state as indented JSON.
func (s *ProjectService) Export(ctx context.Context, w io.Writer) error {
	data, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Import replaces the stored state with data decoded from r.
func (s *ProjectService) Import(ctx context.Context, r io.Reader) (forms.AppData, error) {
	var data forms.AppData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return forms.AppData{}, fmt.Errorf("%w: %v", forms.ErrInvalidImport, err)
	}
	if err := forms.CheckImport(data); err != nil {
		return forms.AppData{}, err
	}

	data = data.Normalize()
	if err := s.store.Save(ctx, data); err != nil {
		return forms.AppData{}, err
	}
	return data, nil
}

// ExportText renders the plain-text export of one stage, or of every stage
// when stage is empty.
func (s *ProjectService) ExportText(ctx context.Context, ref string, stage forms.StageID) (string, error) {
	p, err := s.Get(ctx, ref)
	if err != nil {
		return "", err
	}
	if stage == "" {
		return forms.ExportProject(p, s.now()), nil
	}
	return forms.ExportStage(p, stage, s.now()), nil
}
