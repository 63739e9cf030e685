// Package openspec reads and writes the on-disk layout of an OpenSpec root:
// <root>/changes/<change-id>/{proposal.md,specs/,design.md,tasks.md,gate-report.jsonl}.
package openspec

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/colonyops/sopform/internal/core/change"
)

const (
	changesDir     = "changes"
	archiveDir     = "archive"
	gateReportFile = "gate-report.jsonl"
	specFilesGlob  = "specs/**/*.md"
	archiveDatePat = "[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]-"
)

// Tree is an OpenSpec root directory.
type Tree struct {
	root string
	log  zerolog.Logger
}

// New creates a Tree rooted at root.
func New(root string, log zerolog.Logger) *Tree {
	return &Tree{root: root, log: log}
}

// Root returns the OpenSpec root directory.
func (t *Tree) Root() string {
	return t.root
}

// ChangeDir returns the directory of an active change.
func (t *Tree) ChangeDir(id string) string {
	return filepath.Join(t.root, changesDir, id)
}

// Changes lists active change ids, sorted. The archive directory is skipped.
// An unreadable changes directory yields an empty list.
func (t *Tree) Changes(ctx context.Context) []string {
	dir := filepath.Join(t.root, changesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.log.Warn().Ctx(ctx).Err(err).Str("dir", dir).Msg("cannot read changes directory")
		return []string{}
	}

	ids := []string{}
	for _, e := range entries {
		if e.IsDir() && e.Name() != archiveDir {
			ids = append(ids, e.Name())
		}
	}
	slices.Sort(ids)
	return ids
}

// Summaries lists active changes with their derived state.
func (t *Tree) Summaries(ctx context.Context) []change.Summary {
	ids := t.Changes(ctx)
	out := make([]change.Summary, 0, len(ids))
	for _, id := range ids {
		out = append(out, change.Summary{ID: id, Status: t.Status(ctx, id).Status})
	}
	return out
}

// Status inspects the artifacts of change id. Missing or unreadable paths,
// including a missing change directory, read as absent; this never fails.
func (t *Tree) Status(ctx context.Context, id string) change.Status {
	dir := t.ChangeDir(id)

	arts := make([]change.ArtifactStatus, 0, len(change.Artifacts))
	for _, def := range change.Artifacts {
		exists := present(filepath.Join(dir, def.Path), def.Kind)
		st := change.ArtifactStatus{Name: def.Name, Exists: exists, Complete: exists}
		if exists && def.Name == change.ArtifactSpecs {
			st.Files = t.specFiles(ctx, dir)
		}
		arts = append(arts, st)
	}

	return change.NewStatus(id, arts)
}

func present(path string, kind change.ArtifactKind) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if kind == change.KindDir {
		return info.IsDir()
	}
	return info.Mode().IsRegular()
}

func (t *Tree) specFiles(ctx context.Context, dir string) []string {
	files, err := doublestar.Glob(os.DirFS(dir), specFilesGlob, doublestar.WithFilesOnly())
	if err != nil {
		t.log.Debug().Ctx(ctx).Err(err).Str("dir", dir).Msg("spec file glob failed")
		return nil
	}
	slices.Sort(files)
	return files
}

// ArchivedDir returns the newest archived directory of change id
// (changes/archive/YYYY-MM-DD-<id>), if any.
func (t *Tree) ArchivedDir(id string) (string, bool) {
	base := filepath.Join(t.root, changesDir)
	pattern := archiveDir + "/" + archiveDatePat + escapeMeta(id)

	matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFailOnIOErrors())
	if err != nil || len(matches) == 0 {
		return "", false
	}

	slices.Sort(matches)
	last := matches[len(matches)-1]
	info, err := fs.Stat(os.DirFS(base), last)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return filepath.Join(base, filepath.FromSlash(last)), true
}

// GateReportPath returns the audit log path of change id. Once the change has
// been archived and its active directory is gone, the archived copy is used.
func (t *Tree) GateReportPath(id string) string {
	dir := t.ChangeDir(id)
	if _, err := os.Stat(dir); err != nil {
		if archived, ok := t.ArchivedDir(id); ok {
			dir = archived
		}
	}
	return filepath.Join(dir, gateReportFile)
}

// escapeMeta escapes doublestar pattern metacharacters in a literal.
func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
