// Package gate defines the validate/verify/archive gates, their audit log
// entries, and the prerequisite rules that decide which gate may run.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Name identifies a gate.
type Name string

const (
	Validate Name = "validate"
	Verify   Name = "verify"
	Archive  Name = "archive"
)

// Names lists the gates in workflow order.
var Names = []Name{Validate, Verify, Archive}

// ErrUnknownGate is returned by Parse for names outside Names.
var ErrUnknownGate = errors.New("unknown gate")

// ErrVerifyNotConfigured is returned when verify is requested without an
// operator-supplied verify command. It is a precondition rejection and is never
// recorded in the audit log.
var ErrVerifyNotConfigured = errors.New("verify command not configured; set VERIFY_CMD or gates.verify_cmd to enable the verify gate")

// Parse converts s to a gate name.
func Parse(s string) (Name, error) {
	for _, n := range Names {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want validate, verify or archive)", ErrUnknownGate, s)
}

// Outcome is the recorded result of a gate attempt.
type Outcome string

const (
	Pass Outcome = "pass"
	Fail Outcome = "fail"
)

// Result is what a gate execution returns to its caller.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

// Outcome maps the result onto the audit log vocabulary.
func (r Result) Outcome() Outcome {
	if r.Success {
		return Pass
	}
	return Fail
}

// Entry is one immutable audit log record. Timestamp is unix milliseconds,
// assigned by the writer and not guaranteed monotonic across processes.
type Entry struct {
	Timestamp int64   `json:"timestamp"`
	Gate      Name    `json:"gate"`
	ChangeID  string  `json:"changeId"`
	Result    Outcome `json:"result"`
	Details   string  `json:"details"`
}

// NewEntry builds the log entry for an executed gate.
func NewEntry(at time.Time, g Name, changeID string, res Result) Entry {
	return Entry{
		Timestamp: at.UnixMilli(),
		Gate:      g,
		ChangeID:  changeID,
		Result:    res.Outcome(),
		Details:   res.Output,
	}
}

// Time returns the entry timestamp as a time.Time.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Passed reports whether the entry records a passing attempt.
func (e Entry) Passed() bool {
	return e.Result == Pass
}

// Log is the append-only per-change gate audit log.
type Log interface {
	// Append adds entry to the end of the change's log. Prior entries are never
	// rewritten.
	Append(ctx context.Context, changeID string, entry Entry) error
	// Read returns every entry in append order. A missing log yields no entries.
	Read(ctx context.Context, changeID string) ([]Entry, error)
}
