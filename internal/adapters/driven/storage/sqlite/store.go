package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/bisync/internal/adapters/driven/storage/sqlite/schema"
	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.MetadataStore = (*Store)(nil)

// Store is the SQLite-backed metadata store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the database at path, creating its directory if needed.
// If path is empty, defaults to ~/.bisync/metadata.db. Tables are not
// created; call Create.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".bisync", "metadata.db")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode, busy timeout and foreign keys on every pooled connection
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Create establishes the metadata tables. Fails if any already exists.
func (s *Store) Create(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema.Create); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
		return nil
	})
}

// Drop removes every metadata table if present.
func (s *Store) Drop(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema.Drop); err != nil {
			return fmt.Errorf("dropping schema: %w", err)
		}
		return nil
	})
}

// Insert writes fields and reports row by row, each table in its own
// transaction, then derives the bridge rows from a staging table. A failing
// row is counted against its table and never aborts the other tables.
func (s *Store) Insert(ctx context.Context, reports []domain.ReportRecord,
	fields []domain.DefinitionRecord, bridge []domain.BridgeRow) (*domain.InsertReport, error) {
	ok, err := s.tableExists(ctx, domain.TableFields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSchemaMissing
	}

	report := &domain.InsertReport{
		Fields:  domain.TableResult{Table: domain.TableFields},
		Reports: domain.TableResult{Table: domain.TableReports},
		Bridge:  domain.TableResult{Table: domain.TableBridge},
	}

	s.insertRows(ctx, &report.Fields,
		`INSERT INTO fields (field_id, field_name, field_description, field_dtype, field_tag)
		 VALUES (?, ?, ?, ?, ?)`,
		len(fields), func(i int) []any {
			f := fields[i]
			return []any{f.ID, f.Name, f.Description, f.Datatype, f.Tag}
		})

	s.insertRows(ctx, &report.Reports,
		`INSERT INTO reports (report_name, project) VALUES (?, ?)`,
		len(reports), func(i int) []any {
			return []any{reports[i].Name, reports[i].Project}
		})

	if err := s.deriveBridge(ctx, report, bridge); err != nil {
		report.Bridge.Errs = append(report.Bridge.Errs, err)
	}

	logger.Debug("Inserted %d fields, %d reports, %d links (%d dropped)",
		report.Fields.Inserted, report.Reports.Inserted, report.Bridge.Inserted, report.BridgeDropped)
	return report, nil
}

// insertRows runs one prepared insert per row inside a single transaction.
func (s *Store) insertRows(ctx context.Context, res *domain.TableResult, query string,
	n int, args func(i int) []any) {
	if n == 0 {
		return
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i := 0; i < n; i++ {
			row := args(i)
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				res.Failed++
				res.Errs = append(res.Errs, fmt.Errorf("%s row %v: %w", res.Table, row[:2], err))
				continue
			}
			res.Inserted++
		}
		return nil
	})
	if err != nil {
		res.Failed = n
		res.Inserted = 0
		res.Errs = append(res.Errs, err)
	}
}

// deriveBridge stages the name pairs, joins them into report_fields and
// drops the staging table, all on one transaction.
func (s *Store) deriveBridge(ctx context.Context, report *domain.InsertReport, bridge []domain.BridgeRow) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema.Staging); err != nil {
			return fmt.Errorf("creating staging table: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO report_field_staging (report_name, field_name) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing staging insert: %w", err)
		}
		defer stmt.Close()
		for _, row := range bridge {
			if _, err := stmt.ExecContext(ctx, row.Report, row.Field); err != nil {
				return fmt.Errorf("staging %s/%s: %w", row.Report, row.Field, err)
			}
		}

		var staged int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM (SELECT DISTINCT report_name, field_name FROM report_field_staging)`,
		).Scan(&staged); err != nil {
			return fmt.Errorf("counting staged links: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO report_fields (report_id, field_id)
			SELECT DISTINCT r.report_id, f.field_id
			FROM report_field_staging s
			JOIN reports r ON r.report_name = s.report_name
			JOIN fields f ON f.field_name = s.field_name`)
		if err != nil {
			return fmt.Errorf("joining staged links: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("joining staged links: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DROP TABLE report_field_staging`); err != nil {
			return fmt.Errorf("dropping staging table: %w", err)
		}

		report.BridgeStaged = staged
		report.Bridge.Inserted = int(inserted)
		report.BridgeDropped = staged - int(inserted)
		return nil
	})
}

// Check returns the row count of each table.
func (s *Store) Check(ctx context.Context) (*domain.TableCounts, error) {
	counts := &domain.TableCounts{}
	targets := []struct {
		table string
		dst   *int
	}{
		{domain.TableFields, &counts.Fields},
		{domain.TableReports, &counts.Reports},
		{domain.TableBridge, &counts.Bridge},
	}

	for _, t := range targets {
		ok, err := s.tableExists(ctx, t.table)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("table %s: %w", t.table, domain.ErrSchemaMissing)
		}
		// Table names come from the fixed list above.
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return nil, fmt.Errorf("counting %s: %w", t.table, err)
		}
	}
	return counts, nil
}

// Definitions returns every field record ordered by ID.
// Returns an empty slice when the schema does not exist.
func (s *Store) Definitions(ctx context.Context) ([]domain.DefinitionRecord, error) {
	ok, err := s.tableExists(ctx, domain.TableFields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.DefinitionRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT field_id, field_name, field_description, field_dtype, field_tag
		FROM fields ORDER BY field_id`)
	if err != nil {
		return nil, fmt.Errorf("querying definitions: %w", err)
	}
	defer rows.Close()

	defs := []domain.DefinitionRecord{}
	for rows.Next() {
		var d domain.DefinitionRecord
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Datatype, &d.Tag); err != nil {
			return nil, fmt.Errorf("scanning definition: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// UpdateDefinitions rewrites description, datatype and tag by ID.
func (s *Store) UpdateDefinitions(ctx context.Context, records []domain.DefinitionRecord) (int, error) {
	ok, err := s.tableExists(ctx, domain.TableFields)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrSchemaMissing
	}

	var updated int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE fields SET field_description = ?, field_dtype = ?, field_tag = ?
			WHERE field_id = ?`)
		if err != nil {
			return fmt.Errorf("preparing update: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			res, err := stmt.ExecContext(ctx, r.Description, r.Datatype, r.Tag, r.ID)
			if err != nil {
				return fmt.Errorf("updating %s: %w", r.Name, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("updating %s: %w", r.Name, err)
			}
			updated += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(updated), nil
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", name, err)
	}
	return n > 0, nil
}

// inTx runs fn in a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
