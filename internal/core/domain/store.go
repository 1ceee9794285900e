package domain

import "errors"

// Metadata table names.
const (
	TableFields  = "fields"
	TableReports = "reports"
	TableBridge  = "report_fields"
	TableStaging = "report_field_staging"
)

// TableCounts holds the row count of each metadata table.
type TableCounts struct {
	Fields  int
	Reports int
	Bridge  int
}

// TableResult summarises the insert into one table.
type TableResult struct {
	// Table is the table name.
	Table string

	// Inserted is the number of rows written.
	Inserted int

	// Failed is the number of rows rejected (duplicate key, constraint violation).
	Failed int

	// Errs holds the individual row or statement errors.
	Errs []error
}

// Err joins the table's errors.
func (r TableResult) Err() error {
	return errors.Join(r.Errs...)
}

// InsertReport summarises a bulk insert across the three tables.
type InsertReport struct {
	Fields  TableResult
	Reports TableResult
	Bridge  TableResult

	// BridgeStaged is the number of distinct report/field pairs staged.
	BridgeStaged int

	// BridgeDropped is the number of staged pairs that did not join to an
	// existing report and field and were silently left out.
	BridgeDropped int
}

// Err joins every table's errors.
func (r *InsertReport) Err() error {
	return errors.Join(r.Fields.Err(), r.Reports.Err(), r.Bridge.Err())
}
