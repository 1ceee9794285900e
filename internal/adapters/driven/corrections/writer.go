package corrections

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// ExportHeader is the header written by Write. Read accepts it back.
var ExportHeader = []string{"COL_NAME", "FIELD_DESCRIPTION", "DTYPE", "TAGS"}

// Write exports definitions as CSV in the given order.
func Write(w io.Writer, defs []domain.DefinitionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, d := range defs {
		row := []string{
			d.Name,
			d.Description,
			d.Datatype,
			d.Tag,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", d.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
