package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
	"github.com/custodia-labs/bisync/internal/logger"
)

// Ensure SchemaService implements the interface.
var _ driving.SchemaService = (*SchemaService)(nil)

// SchemaService administers the metadata store's tables.
type SchemaService struct {
	store driven.MetadataStore
}

// NewSchemaService creates a schema service over store.
func NewSchemaService(store driven.MetadataStore) *SchemaService {
	return &SchemaService{store: store}
}

// Create establishes the tables.
func (s *SchemaService) Create(ctx context.Context) error {
	if err := s.store.Create(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	logger.Info("Schema created")
	return nil
}

// Drop removes the tables.
func (s *SchemaService) Drop(ctx context.Context) error {
	if err := s.store.Drop(ctx); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	logger.Info("Schema dropped")
	return nil
}

// Check returns per-table row counts.
func (s *SchemaService) Check(ctx context.Context) (*domain.TableCounts, error) {
	counts, err := s.store.Check(ctx)
	if err != nil {
		return nil, fmt.Errorf("check schema: %w", err)
	}
	return counts, nil
}
