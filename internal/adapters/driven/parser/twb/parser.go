package twb

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.DocumentParser = (*Parser)(nil)

// Parser reads .twb and .twbx workbook documents.
type Parser struct{}

// NewParser creates a workbook parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the document at path.
func (p *Parser) Parse(ctx context.Context, path string) (*domain.ParsedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := readDocument(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, filepath.Base(path), err)
	}

	doc, err := ParseXML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, filepath.Base(path), err)
	}
	doc.Path = path
	return doc, nil
}

// readDocument returns the workbook XML, unpacking .twbx archives.
func readDocument(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".twb":
		return os.ReadFile(path)
	case ".twbx":
		_, data, err := readPackaged(path)
		return data, err
	default:
		return nil, fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
}

// ParseXML parses workbook XML.
func ParseXML(data []byte) (*domain.ParsedDocument, error) {
	var wb xmlWorkbook
	dec := newDecoder(bytes.NewReader(data))
	if err := dec.Decode(&wb); err != nil {
		return nil, err
	}

	doc := &domain.ParsedDocument{Datasources: make([]domain.Datasource, 0, len(wb.Datasources))}
	for _, xds := range wb.Datasources {
		doc.Datasources = append(doc.Datasources, convertDatasource(xds))
	}
	return doc, nil
}

func convertDatasource(xds xmlDatasource) domain.Datasource {
	ds := domain.Datasource{Name: xds.displayName()}

	seen := make(map[string]bool, len(xds.Columns))
	for _, col := range xds.Columns {
		seen[col.Name] = true
		f := domain.RawField{
			Name:        col.displayName(),
			Datatype:    col.Datatype,
			Description: col.Desc.text(),
		}
		if col.Calculation != nil {
			f.Calculation = col.Calculation.Formula
		}
		ds.Fields = append(ds.Fields, f)
	}

	if xds.Connection == nil {
		return ds
	}
	for _, rec := range xds.Connection.Records {
		if rec.Class != "column" || rec.LocalName == "" || seen[rec.LocalName] {
			continue
		}
		seen[rec.LocalName] = true
		ds.Fields = append(ds.Fields, domain.RawField{
			Name:     rec.LocalName,
			Datatype: rec.LocalType,
		})
	}
	for _, rel := range xds.Connection.Relations {
		ds.CustomQueries = rel.queries(ds.CustomQueries)
	}
	return ds
}

// newDecoder returns a decoder that understands any IANA-registered charset.
func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := ianaindex.IANA.Encoding(label)
		if err != nil {
			return nil, err
		}
		if enc == nil {
			return nil, fmt.Errorf("unsupported charset %q", label)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return dec
}
