// Package sqlite provides the SQLite implementation of driven.MetadataStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// Three tables hold the reconciled metadata:
//
//   - fields: one row per field definition, keyed by its stable ID
//   - reports: one row per workbook
//   - report_fields: links reports to fields, cascading on delete of either side
//
// The schema is rebuilt rather than migrated. Create fails when the tables
// already exist; callers Drop first. Bridge rows are never written directly:
// name pairs go to a staging table and the links are derived by joining it
// against reports and fields, so a pair naming a missing side is dropped.
//
// # Data Location
//
// By default, the database is stored at ~/.bisync/metadata.db
//
// # Thread Safety
//
// The connection is safe for concurrent use, but a store is meant to be owned by
// one reconciliation pass at a time.
package sqlite
