package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/colonyops/sopform/internal/core/forms"
)

// ProjectStore persists forms.AppData as a single JSON file.
type ProjectStore struct {
	path string
	mu   sync.RWMutex
}

// NewProjectStore creates a new JSON file project store at the given path.
func NewProjectStore(path string) *ProjectStore {
	return &ProjectStore{path: path}
}

// Path returns the backing file path.
func (s *ProjectStore) Path() string {
	return s.path
}

// Load returns the stored state, or an empty state if the file doesn't exist.
func (s *ProjectStore) Load(ctx context.Context) (forms.AppData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load()
}

// Save replaces the stored state.
func (s *ProjectStore) Save(ctx context.Context, data forms.AppData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(data)
}

// Update loads the state, applies fn and saves the result. Nothing is written
// when fn returns an error.
func (s *ProjectStore) Update(ctx context.Context, fn func(forms.AppData) (forms.AppData, error)) (forms.AppData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return forms.AppData{}, err
	}

	next, err := fn(current)
	if err != nil {
		return current, err
	}

	if err := s.save(next); err != nil {
		return current, err
	}
	return next, nil
}

// load reads the project file from disk.
// Returns an empty state if the file doesn't exist or is empty.
func (s *ProjectStore) load() (forms.AppData, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return forms.Empty(), nil
		}
		return forms.AppData{}, fmt.Errorf("read project file: %w", err)
	}

	if len(data) == 0 {
		return forms.Empty(), nil
	}

	var app forms.AppData
	if err := json.Unmarshal(data, &app); err != nil {
		return forms.AppData{}, fmt.Errorf("parse project file %s: %w", s.path, err)
	}
	if app.Projects == nil {
		app.Projects = []forms.Project{}
	}

	return app.Normalize(), nil
}

// save writes the project file to disk atomically.
func (s *ProjectStore) save(app forms.AppData) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}

	app.SchemaVersion = forms.SchemaVersion
	data, err := json.MarshalIndent(app, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write project file: %w", err)
	}

	return os.Rename(tmp, s.path)
}
