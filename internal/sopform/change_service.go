package sopform

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/colonyops/sopform/internal/core/change"
	"github.com/colonyops/sopform/internal/core/logging"
	"github.com/colonyops/sopform/internal/core/validate"
	"github.com/colonyops/sopform/internal/store/openspec"
)

// ErrChangeNotFound is returned when writing to a change whose directory does
// not exist. Reads never return it; a missing change reads as BLOCKED.
var ErrChangeNotFound = errors.New("change not found")

// ChangeService reads change status and writes decision summaries.
type ChangeService struct {
	tree *openspec.Tree
	log  zerolog.Logger
}

// NewChangeService creates a new ChangeService.
func NewChangeService(tree *openspec.Tree, log zerolog.Logger) *ChangeService {
	return &ChangeService{tree: tree, log: log}
}

// Root returns the OpenSpec root.
func (s *ChangeService) Root() string {
	return s.tree.Root()
}

// IDs returns the active change ids, sorted.
func (s *ChangeService) IDs(ctx context.Context) []string {
	return s.tree.Changes(ctx)
}

// List returns every active change with its derived status.
func (s *ChangeService) List(ctx context.Context) []change.Summary {
	return s.tree.Summaries(ctx)
}

// Status derives the artifact status of change id.
func (s *ChangeService) Status(ctx context.Context, id string) (change.Status, error) {
	if err := validate.ChangeID(id); err != nil {
		return change.Status{}, err
	}
	return s.tree.Status(ctx, id), nil
}

// WriteDecision renders d into the bounded sections of proposal.md and design.md.
func (s *ChangeService) WriteDecision(ctx context.Context, id string, d change.Decision) error {
	if err := validate.ChangeID(id); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	dir := s.tree.ChangeDir(id)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrChangeNotFound, id)
	}

	ctx = logging.WithChangeID(ctx, id)

	if err := s.tree.WriteBounded(id, "proposal.md", d.Proposal()); err != nil {
		return err
	}
	if err := s.tree.WriteBounded(id, "design.md", d.Design()); err != nil {
		return err
	}

	s.log.Info().Ctx(ctx).Msg("decision written")
	return nil
}
