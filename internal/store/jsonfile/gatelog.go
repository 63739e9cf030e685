// Package jsonfile implements stores backed by JSON and JSON Lines files.
package jsonfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/colonyops/sopform/internal/core/gate"
)

// maxLineSize bounds a single audit record; gate output is capped well below it.
const maxLineSize = 8 << 20

// GateLog implements gate.Log as one JSON Lines file per change.
type GateLog struct {
	locate func(changeID string) string
	log    zerolog.Logger
}

// NewGateLog creates a GateLog. locate maps a change id to its log file path.
func NewGateLog(locate func(changeID string) string, log zerolog.Logger) *GateLog {
	return &GateLog{locate: locate, log: log}
}

// Append writes entry as one line at the end of the change's log. The line is
// written with a single O_APPEND write so concurrent appenders interleave whole
// records rather than overwrite each other. The change directory must exist.
func (l *GateLog) Append(ctx context.Context, changeID string, entry gate.Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return fmt.Errorf("encode gate entry: %w", err)
	}

	path := l.locate(changeID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open gate report: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append gate report: %w", err)
	}
	return f.Close()
}

// Read returns every entry of the change's log in append order. A missing log
// file yields an empty slice. Blank and malformed lines are skipped; the log is
// append-only, so one bad record must not block every later gate.
func (l *GateLog) Read(ctx context.Context, changeID string) ([]gate.Entry, error) {
	f, err := os.Open(l.locate(changeID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []gate.Entry{}, nil
		}
		return nil, fmt.Errorf("open gate report: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries := []gate.Entry{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var e gate.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			l.log.Warn().Ctx(ctx).Err(err).
				Str("change", changeID).
				Int("line", lineNo).
				Msg("skipping malformed gate report line")
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gate report: %w", err)
	}

	return entries, nil
}

var _ gate.Log = (*GateLog)(nil)
