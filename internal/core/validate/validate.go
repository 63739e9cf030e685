// Package validate provides shared validation functions.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hay-kot/criterio"
)

// ErrInvalidChangeID marks a change id that cannot be used as a directory name
// or command argument.
var ErrInvalidChangeID = errors.New("invalid change id")

// ChangeID validates a change id. Ids are otherwise opaque, but they are joined
// into filesystem paths and passed as CLI arguments, so separators, parent
// references and a leading dash are rejected.
func ChangeID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidChangeID)
	case id == "." || id == ".." || strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q must not reference a parent directory", ErrInvalidChangeID, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidChangeID, id)
	case strings.HasPrefix(id, "-"):
		return fmt.Errorf("%w: %q must not start with '-'", ErrInvalidChangeID, id)
	case strings.ContainsAny(id, "\x00\n\r"):
		return fmt.Errorf("%w: %q contains control characters", ErrInvalidChangeID, id)
	}
	return nil
}

// ChangeIDField returns a criterio validator for change ids.
func ChangeIDField(field, id string) error {
	return criterio.Run(field, id, ChangeID)
}

// Required validates a value is non-empty after trimming whitespace.
func Required(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("is required")
	}
	return nil
}

// ProjectName validates a project name is non-empty after trimming whitespace.
func ProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
