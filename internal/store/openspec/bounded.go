package openspec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Markers delimiting the generated block inside an artifact.
const (
	BeginMarker = "<!-- SOPFORM:BEGIN -->"
	EndMarker   = "<!-- SOPFORM:END -->"
)

var boundedBlock = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(BeginMarker) + `.*?` + regexp.QuoteMeta(EndMarker))

// Bound wraps content in the begin/end markers.
func Bound(content string) string {
	return BeginMarker + "\n" + content + "\n" + EndMarker
}

// MergeBounded returns existing with every bounded block replaced by content.
// Without a complete block, the new block is appended after a blank line.
func MergeBounded(existing, content string) string {
	block := Bound(content)
	if boundedBlock.MatchString(existing) {
		return boundedBlock.ReplaceAllLiteralString(existing, block)
	}
	if existing == "" {
		return block
	}
	return existing + "\n\n" + block
}

// WriteBounded merges content into the named artifact file of change id. The
// change directory must already exist; text outside the markers is preserved.
func (t *Tree) WriteBounded(id, filename, content string) error {
	if filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return fmt.Errorf("invalid artifact file name %q", filename)
	}

	path := filepath.Join(t.ChangeDir(id), filename)

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	merged := MergeBounded(string(existing), content)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(merged), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}
