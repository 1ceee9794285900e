package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
	"github.com/custodia-labs/bisync/internal/logger"
)

// Ensure DefinitionService implements the interface.
var _ driving.DefinitionService = (*DefinitionService)(nil)

// DefinitionService applies corrections to stored definitions without a sync cycle.
type DefinitionService struct {
	store      driven.MetadataStore
	reconciler *Reconciler
}

// NewDefinitionService creates a definition service.
func NewDefinitionService(store driven.MetadataStore) *DefinitionService {
	return &DefinitionService{
		store:      store,
		reconciler: NewReconciler(""),
	}
}

// Apply merges corrections into stored definitions using the reconciler's
// attribute rules and updates changed rows by ID. Corrections naming fields
// that have no record are reported, not created.
func (s *DefinitionService) Apply(ctx context.Context, corrections []domain.CorrectionRecord) (*driving.ApplyResult, error) {
	existing, err := s.store.Definitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}

	changed, unknown := s.reconciler.Correct(existing, corrections)
	result := &driving.ApplyResult{Unknown: unknown}
	result.Matched = countMatched(corrections, unknown)

	if len(changed) == 0 {
		logger.Info("Definitions already up to date")
		return result, nil
	}

	n, err := s.store.UpdateDefinitions(ctx, changed)
	if err != nil {
		return result, fmt.Errorf("update definitions: %w", err)
	}
	result.Updated = n
	logger.Info("Updated %d definitions, %d unknown names", n, len(unknown))
	return result, nil
}

// List returns every stored definition ordered by ID.
func (s *DefinitionService) List(ctx context.Context) ([]domain.DefinitionRecord, error) {
	defs, err := s.store.Definitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	return defs, nil
}

// countMatched counts distinct corrected names that are not unknown.
func countMatched(corrections []domain.CorrectionRecord, unknown []string) int {
	skip := make(map[string]struct{}, len(unknown))
	for _, name := range unknown {
		skip[name] = struct{}{}
	}
	seen := make(map[string]struct{})
	for _, c := range corrections {
		name := domain.NormalizeFieldName(c.Name)
		if name == "" {
			continue
		}
		if _, ok := skip[name]; ok {
			continue
		}
		seen[name] = struct{}{}
	}
	return len(seen)
}
