package corrections

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.CorrectionSource = (*Source)(nil)

// column identifies a recognised CSV column.
type column int

const (
	colName column = iota
	colDescription
	colDatatype
	colTag
)

// headerAliases maps upper-cased header text to its column.
var headerAliases = map[string]column{
	"FIELD_NAME":        colName,
	"COL_NAME":          colName,
	"FIELD_DESCRIPTION": colDescription,
	"DESCRIPTION":       colDescription,
	"FIELD_DTYPE":       colDatatype,
	"DTYPE":             colDatatype,
	"FIELD_TAG":         colTag,
	"TAGS":              colTag,
	"TAG":               colTag,
}

// Source loads correction records from a CSV file.
type Source struct {
	path string
}

// NewSource creates a correction source reading path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path returns the CSV path.
func (s *Source) Path() string {
	return s.path
}

// Load reads every correction row. Returns domain.ErrNotFound when the file
// does not exist.
func (s *Source) Load(ctx context.Context) ([]domain.CorrectionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("opening corrections: %w", err)
	}
	defer f.Close()

	records, warnings, err := ReadWithWarnings(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	for _, w := range warnings {
		logger.Warn("%s: %s", s.path, w)
	}
	return records, nil
}

// Warning describes a row that was skipped while reading.
type Warning struct {
	// Line is the 1-based line the row starts on.
	Line int

	// Err is the parse error.
	Err error
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d skipped: %v", w.Line, w.Err)
}

// Read parses correction rows from r, logging skipped rows.
func Read(r io.Reader) ([]domain.CorrectionRecord, error) {
	records, warnings, err := ReadWithWarnings(r)
	for _, w := range warnings {
		logger.Warn("corrections: %s", w)
	}
	return records, err
}

// ReadWithWarnings parses correction rows from r. The name column is
// required; the others are optional and read as empty when absent. Quotes
// are read leniently and a row that still fails to parse is skipped and
// reported as a warning. Only header and I/O errors fail the read.
func ReadWithWarnings(r io.Reader) ([]domain.CorrectionRecord, []Warning, error) {
	// BOMOverride switches to the encoding named by a leading BOM and strips it.
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: reading header: %v", domain.ErrInvalidInput, err)
	}

	index := make(map[column]int, len(header))
	for i, h := range header {
		col, ok := headerAliases[strings.ToUpper(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}
	if _, ok := index[colName]; !ok {
		return nil, nil, fmt.Errorf("%w: no FIELD_NAME or COL_NAME column in header %v", domain.ErrInvalidInput, header)
	}

	var (
		records  []domain.CorrectionRecord
		warnings []Warning
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, nil, fmt.Errorf("reading corrections: %w", err)
			}
			warnings = append(warnings, Warning{Line: perr.StartLine, Err: perr.Err})
			continue
		}

		get := func(c column) string {
			i, ok := index[c]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		rec := domain.CorrectionRecord{
			Name:        get(colName),
			Description: get(colDescription),
			Datatype:    get(colDatatype),
			Tag:         get(colTag),
		}
		if rec.Name == "" && rec.IsEmpty() {
			continue
		}
		records = append(records, rec)
	}
	return records, warnings, nil
}
