package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore is an in-memory implementation of driven.MetadataStore.
// It mirrors the relational semantics: unique names per table, bridge
// rows derived by joining staged pairs on name.
type MetadataStore struct {
	mu      sync.RWMutex
	created bool
	fields  map[string]domain.DefinitionRecord
	reports map[string]domain.ReportRecord
	bridge  map[domain.BridgeRow]struct{}
}

// NewMetadataStore creates a new in-memory metadata store without a schema.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{}
}

// Create establishes empty tables. Fails if they already exist.
func (s *MetadataStore) Create(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return fmt.Errorf("table %s already exists: %w", domain.TableFields, domain.ErrInvalidInput)
	}
	s.created = true
	s.fields = make(map[string]domain.DefinitionRecord)
	s.reports = make(map[string]domain.ReportRecord)
	s.bridge = make(map[domain.BridgeRow]struct{})
	return nil
}

// Drop removes every table if present.
func (s *MetadataStore) Drop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = false
	s.fields = nil
	s.reports = nil
	s.bridge = nil
	return nil
}

// Insert writes reports and fields, then joins the staged bridge pairs.
func (s *MetadataStore) Insert(_ context.Context, reports []domain.ReportRecord,
	fields []domain.DefinitionRecord, bridge []domain.BridgeRow) (*domain.InsertReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		return nil, domain.ErrSchemaMissing
	}

	report := &domain.InsertReport{
		Fields:  domain.TableResult{Table: domain.TableFields},
		Reports: domain.TableResult{Table: domain.TableReports},
		Bridge:  domain.TableResult{Table: domain.TableBridge},
	}

	ids := make(map[int64]struct{}, len(s.fields))
	for _, f := range s.fields {
		ids[f.ID] = struct{}{}
	}
	for _, f := range fields {
		_, dupName := s.fields[f.Name]
		_, dupID := ids[f.ID]
		if dupName || dupID || f.Name == "" {
			report.Fields.Failed++
			report.Fields.Errs = append(report.Fields.Errs,
				fmt.Errorf("field %q (id %d): unique constraint failed", f.Name, f.ID))
			continue
		}
		s.fields[f.Name] = f
		ids[f.ID] = struct{}{}
		report.Fields.Inserted++
	}

	for _, r := range reports {
		if _, dup := s.reports[r.Name]; dup || r.Name == "" {
			report.Reports.Failed++
			report.Reports.Errs = append(report.Reports.Errs,
				fmt.Errorf("report %q: unique constraint failed", r.Name))
			continue
		}
		s.reports[r.Name] = r
		report.Reports.Inserted++
	}

	staged := make(map[domain.BridgeRow]struct{}, len(bridge))
	for _, row := range bridge {
		staged[row] = struct{}{}
	}
	report.BridgeStaged = len(staged)
	for row := range staged {
		_, okReport := s.reports[row.Report]
		_, okField := s.fields[row.Field]
		if !okReport || !okField {
			report.BridgeDropped++
			continue
		}
		if _, dup := s.bridge[row]; dup {
			continue
		}
		s.bridge[row] = struct{}{}
		report.Bridge.Inserted++
	}
	return report, nil
}

// Check returns the row count of each table.
func (s *MetadataStore) Check(_ context.Context) (*domain.TableCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.created {
		return nil, domain.ErrSchemaMissing
	}
	return &domain.TableCounts{
		Fields:  len(s.fields),
		Reports: len(s.reports),
		Bridge:  len(s.bridge),
	}, nil
}

// Definitions returns every field record ordered by ID.
func (s *MetadataStore) Definitions(_ context.Context) ([]domain.DefinitionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DefinitionRecord, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateDefinitions rewrites records by ID.
func (s *MetadataStore) UpdateDefinitions(_ context.Context, records []domain.DefinitionRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		return 0, domain.ErrSchemaMissing
	}

	byID := make(map[int64]string, len(s.fields))
	for name, f := range s.fields {
		byID[f.ID] = name
	}

	n := 0
	for _, rec := range records {
		name, ok := byID[rec.ID]
		if !ok {
			continue
		}
		cur := s.fields[name]
		cur.Description = rec.Description
		cur.Datatype = rec.Datatype
		cur.Tag = rec.Tag
		s.fields[name] = cur
		n++
	}
	return n, nil
}

// Links returns the bridge rows sorted by report then field.
func (s *MetadataStore) Links() []domain.BridgeRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BridgeRow, 0, len(s.bridge))
	for row := range s.bridge {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Report != out[j].Report {
			return out[i].Report < out[j].Report
		}
		return out[i].Field < out[j].Field
	})
	return out
}
