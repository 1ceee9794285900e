package services

import (
	"sort"
	"strings"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// ReconcileResult is the full record set to persist after a reconciliation pass.
type ReconcileResult struct {
	// Definitions holds every definition record ordered by ID.
	Definitions []domain.DefinitionRecord

	// Reports holds one record per distinct asset name.
	Reports []domain.ReportRecord

	// Bridge holds one row per distinct report/field association.
	Bridge []domain.BridgeRow

	// Stats counts what the pass did.
	Stats domain.ReconcileStats
}

// Reconciler merges extracted fields, persisted definitions and corrections.
type Reconciler struct {
	defaultProject string
}

// NewReconciler creates a reconciler. Reports without a project are
// labelled with defaultProject.
func NewReconciler(defaultProject string) *Reconciler {
	if defaultProject == "" {
		defaultProject = domain.DefaultProject
	}
	return &Reconciler{defaultProject: defaultProject}
}

// Reconcile produces the definitions, reports and bridge rows for one pass.
//
// Every existing record is kept with its ID. A correction overrides an
// existing attribute when it is non-empty; an empty correction value never
// clears one. Names seen for the first time, whether extracted or corrected,
// get new IDs after the current maximum, allocated in name order. A new name
// with no description is given NoDefinition.
func (r *Reconciler) Reconcile(extracted []domain.AssetFields, existing []domain.DefinitionRecord,
	corrections []domain.CorrectionRecord) *ReconcileResult {
	result := &ReconcileResult{}
	byName, dupes, skipped := indexCorrections(corrections)
	result.Stats.DuplicateCorrections = dupes
	result.Stats.SkippedCorrections = skipped

	known := make(map[string]struct{}, len(existing))
	var maxID int64
	defs := make([]domain.DefinitionRecord, 0, len(existing))
	for _, rec := range existing {
		known[rec.Name] = struct{}{}
		maxID = max(maxID, rec.ID)

		corr, ok := byName[rec.Name]
		if !ok {
			defs = append(defs, rec)
			result.Stats.Unchanged++
			continue
		}
		merged := mergeDefinition(rec, corr)
		if merged == rec {
			result.Stats.Unchanged++
		} else {
			result.Stats.Corrected++
		}
		defs = append(defs, merged)
	}

	// Collect names that need a new record. Only the name is kept; extracted
	// attributes never seed a record.
	fresh := make(map[string]domain.DefinitionRecord)
	for _, af := range extracted {
		for _, f := range af.Fields {
			if _, ok := known[f.Name]; ok {
				continue
			}
			if _, ok := fresh[f.Name]; !ok {
				fresh[f.Name] = domain.DefinitionRecord{Name: f.Name}
			}
		}
	}
	for name := range byName {
		if _, ok := known[name]; ok {
			continue
		}
		if _, ok := fresh[name]; !ok {
			fresh[name] = domain.DefinitionRecord{Name: name}
		}
	}

	names := make([]string, 0, len(fresh))
	for name := range fresh {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		maxID++
		rec := domain.DefinitionRecord{ID: maxID, Name: name}
		if corr, ok := byName[name]; ok {
			rec.Description = strings.TrimSpace(corr.Description)
			rec.Datatype = strings.TrimSpace(corr.Datatype)
			rec.Tag = strings.TrimSpace(corr.Tag)
		}
		if rec.Description == "" {
			rec.Description = domain.NoDefinition
			result.Stats.Placeholders++
		}
		defs = append(defs, rec)
		result.Stats.Created++
	}

	sort.SliceStable(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	result.Definitions = defs
	result.Reports, result.Bridge = r.deriveLinks(extracted)
	return result
}

// Correct applies corrections to existing records only. It returns the
// records that changed and the corrected names that have no record yet.
func (r *Reconciler) Correct(existing []domain.DefinitionRecord,
	corrections []domain.CorrectionRecord) (changed []domain.DefinitionRecord, unknown []string) {
	byName, _, _ := indexCorrections(corrections)

	matched := make(map[string]struct{})
	for _, rec := range existing {
		corr, ok := byName[rec.Name]
		if !ok {
			continue
		}
		matched[rec.Name] = struct{}{}
		if merged := mergeDefinition(rec, corr); merged != rec {
			changed = append(changed, merged)
		}
	}

	for name := range byName {
		if _, ok := matched[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return changed, unknown
}

// deriveLinks recomputes reports and bridge rows from the asset to field
// associations of this pass.
func (r *Reconciler) deriveLinks(extracted []domain.AssetFields) ([]domain.ReportRecord, []domain.BridgeRow) {
	var reports []domain.ReportRecord
	var bridge []domain.BridgeRow
	seenReport := make(map[string]struct{})
	seenLink := make(map[domain.BridgeRow]struct{})

	for _, af := range extracted {
		name := af.Asset.Name
		if _, ok := seenReport[name]; !ok {
			project := af.Asset.Project
			if project == "" {
				project = r.defaultProject
			}
			reports = append(reports, domain.ReportRecord{Name: name, Project: project})
			seenReport[name] = struct{}{}
		}

		for _, f := range af.Fields {
			row := domain.BridgeRow{Report: name, Field: f.Name}
			if _, ok := seenLink[row]; ok {
				continue
			}
			seenLink[row] = struct{}{}
			bridge = append(bridge, row)
		}
	}
	return reports, bridge
}

// indexCorrections keys corrections by normalised name. A later row for the
// same name replaces an earlier one.
func indexCorrections(corrections []domain.CorrectionRecord) (byName map[string]domain.CorrectionRecord,
	dupes, skipped int) {
	byName = make(map[string]domain.CorrectionRecord, len(corrections))
	for _, c := range corrections {
		name := domain.NormalizeFieldName(c.Name)
		if name == "" {
			skipped++
			continue
		}
		if _, ok := byName[name]; ok {
			dupes++
		}
		c.Name = name
		byName[name] = c
	}
	return byName, dupes, skipped
}

// mergeDefinition applies one correction to an existing record, attribute by attribute.
func mergeDefinition(rec domain.DefinitionRecord, corr domain.CorrectionRecord) domain.DefinitionRecord {
	rec.Description = mergeAttr(rec.Description, corr.Description)
	rec.Datatype = mergeAttr(rec.Datatype, corr.Datatype)
	rec.Tag = mergeAttr(rec.Tag, corr.Tag)
	return rec
}

func mergeAttr(existing, incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return existing
	}
	return incoming
}
