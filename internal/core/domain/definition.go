package domain

import "strings"

// NoDefinition is the description given to fields nobody has described yet.
const NoDefinition = "No definition"

// DefinitionRecord is the persisted description of a field.
// One record exists per distinct field ever seen.
type DefinitionRecord struct {
	// ID is the stable numeric identity, never regenerated once assigned.
	ID int64

	// Name is the normalised field name.
	Name string

	// Description is the human-authored description.
	Description string

	// Datatype is the curated datatype.
	Datatype string

	// Tag is a free-form classification tag.
	Tag string
}

// CorrectionRecord is a human-authored row proposing new values for a field.
// Consumed once per reconciliation pass, never persisted as-is.
type CorrectionRecord struct {
	// Name is the field name; normalised before use.
	Name string

	// Description is the proposed description.
	Description string

	// Datatype is the proposed datatype.
	Datatype string

	// Tag is the proposed tag.
	Tag string
}

// IsEmpty returns true if the correction proposes no values at all.
func (c CorrectionRecord) IsEmpty() bool {
	return strings.TrimSpace(c.Description) == "" &&
		strings.TrimSpace(c.Datatype) == "" &&
		strings.TrimSpace(c.Tag) == ""
}

// ReportRecord is one asset as a catalogue entry.
type ReportRecord struct {
	// Name is the report (asset) name.
	Name string

	// Project is the grouping label.
	Project string
}

// BridgeRow links a report to a field by name.
// Names are resolved to surrogate IDs by the store.
type BridgeRow struct {
	Report string
	Field  string
}

// ReconcileStats counts what a reconciliation pass did.
type ReconcileStats struct {
	// Created is the number of records created this pass.
	Created int

	// Corrected is the number of existing records changed by a correction.
	Corrected int

	// Unchanged is the number of existing records left as they were.
	Unchanged int

	// Placeholders is the number of new records carrying NoDefinition.
	Placeholders int

	// DuplicateCorrections is the number of correction rows overridden by a later row.
	DuplicateCorrections int

	// SkippedCorrections is the number of correction rows whose name normalised to nothing.
	SkippedCorrections int
}
