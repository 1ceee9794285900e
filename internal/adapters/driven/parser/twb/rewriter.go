package twb

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
)

// Ensure Rewriter implements the interface.
var _ driven.DocumentRewriter = (*Rewriter)(nil)

// Rewriter edits the text of custom SQL relations. Everything outside
// those relations is written back byte for byte.
type Rewriter struct{}

// NewRewriter creates a workbook rewriter.
func NewRewriter() *Rewriter {
	return &Rewriter{}
}

// Edit applies edit to the document's custom queries and writes the result
// to outDir/<base name>. Nothing is written when no query changed.
func (r *Rewriter) Edit(ctx context.Context, path string, edit domain.QueryEdit, outDir string) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if edit == nil {
		return "", 0, fmt.Errorf("%w: no query edit", domain.ErrInvalidInput)
	}

	dest := filepath.Join(outDir, filepath.Base(path))
	if same, _ := sameFile(path, dest); same {
		return "", 0, fmt.Errorf("%w: output would overwrite %s", domain.ErrInvalidInput, path)
	}

	var (
		out []byte
		n   int
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".twb":
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			out, n, err = EditQueries(data, edit)
		}
	case ".twbx":
		out, n, err = editPackaged(path, edit)
	default:
		err = fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s: %v", domain.ErrParse, filepath.Base(path), err)
	}
	if n == 0 {
		return "", 0, nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", 0, fmt.Errorf("creating %s: %w", outDir, err)
	}
	if err := os.WriteFile(dest, out, 0644); err != nil {
		return "", 0, fmt.Errorf("writing %s: %w", dest, err)
	}
	return dest, n, nil
}

func sameFile(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ia, ib), nil
}

// span is the byte range of one custom SQL relation's text.
type span struct {
	start, end int64
	text       string
}

// EditQueries applies edit to every custom SQL relation of workbook XML and
// returns the new document and the total change count.
func EditQueries(data []byte, edit domain.QueryEdit) ([]byte, int, error) {
	spans, err := querySpans(data)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	var last int64
	total := 0
	for _, s := range spans {
		text, n := edit(s.text)
		if n == 0 {
			continue
		}
		total += n
		buf.Write(data[last:s.start])
		if err := xml.EscapeText(&buf, []byte(text)); err != nil {
			return nil, 0, err
		}
		last = s.end
	}
	if total == 0 {
		return data, 0, nil
	}
	buf.Write(data[last:])
	return buf.Bytes(), total, nil
}

// querySpans locates the text of every relation with type="text".
// Relations whose body holds anything but character data are left alone.
// Offsets index the raw input, so only UTF-8 documents can be rewritten.
func querySpans(data []byte) ([]span, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var spans []span
	var cur *span
	var text strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if cur != nil {
				// markup inside a query body: skip it and the relation's end tag
				cur = nil
				depth = 2
				continue
			}
			if depth > 0 {
				depth++
				continue
			}
			if t.Name.Local == "relation" && attr(t, "type") == "text" {
				off := dec.InputOffset()
				cur = &span{start: off, end: off}
				text.Reset()
			}
		case xml.CharData:
			if cur != nil {
				text.Write(t)
				cur.end = dec.InputOffset()
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
				continue
			}
			if cur != nil {
				cur.text = text.String()
				spans = append(spans, *cur)
				cur = nil
			}
		case xml.Comment, xml.ProcInst, xml.Directive:
			if cur != nil {
				cur = nil
				depth = 1
			}
		}
	}
	return spans, nil
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// editPackaged edits the .twb inside a .twbx and repacks the archive.
func editPackaged(path string, edit domain.QueryEdit) ([]byte, int, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, 0, err
	}
	defer zr.Close()

	wbFile, err := findWorkbook(zr.File)
	if err != nil {
		return nil, 0, err
	}
	data, err := readEntry(wbFile)
	if err != nil {
		return nil, 0, err
	}
	rewritten, n, err := EditQueries(data, edit)
	if err != nil || n == 0 {
		return nil, n, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		if f != wbFile {
			if err := zw.Copy(f); err != nil {
				return nil, 0, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, 0, err
		}
		if _, err := w.Write(rewritten); err != nil {
			return nil, 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), n, nil
}
