// Package executil provides command execution utilities.
package executil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// MaxOutputLen caps the combined output kept from a single command. Gate output
// ends up in the audit log, so a runaway command must not produce a giant record.
const MaxOutputLen = 1 << 20

const truncatedNotice = "\n[output truncated]"

// waitDelay bounds how long Wait keeps copying output after the context is
// done. A grandchild that escaped the group kill can hold the pipe open.
const waitDelay = 2 * time.Second

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf       *bytes.Buffer
	n         int64
	max       int64
	truncated bool
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		if len(p) > 0 {
			w.truncated = true
		}
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
		w.truncated = true
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}

func (w *limitedWriter) Bytes() []byte {
	if w.truncated {
		return append(w.buf.Bytes(), truncatedNotice...)
	}
	return w.buf.Bytes()
}

// Executor runs external commands.
type Executor interface {
	// Run executes a command and returns its combined output.
	Run(ctx context.Context, cmd string, args ...string) ([]byte, error)
	// RunDir executes a command in a specific directory and returns its combined output.
	// On failure the partial output is still returned alongside the error.
	RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error)
}

// RealExecutor calls actual commands.
type RealExecutor struct {
	// MaxOutput overrides MaxOutputLen when positive.
	MaxOutput int64
}

// Run executes a command and returns its combined output.
func (e *RealExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	out, err := e.run(ctx, "", cmd, args...)
	if err != nil {
		return out, fmt.Errorf("exec %s: %w", cmd, err)
	}
	return out, nil
}

// RunDir executes a command in a specific directory.
func (e *RealExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	out, err := e.run(ctx, dir, cmd, args...)
	if err != nil {
		return out, fmt.Errorf("exec %s in %s: %w", cmd, dir, err)
	}
	return out, nil
}

func (e *RealExecutor) run(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	limit := int64(MaxOutputLen)
	if e.MaxOutput > 0 {
		limit = e.MaxOutput
	}

	c := exec.CommandContext(ctx, cmd, args...)
	if dir != "" {
		c.Dir = dir
	}
	killGroup(c)
	c.WaitDelay = waitDelay

	var buf bytes.Buffer
	w := &limitedWriter{buf: &buf, max: limit}
	c.Stdout = w
	c.Stderr = w

	err := c.Run()
	return w.Bytes(), err
}
