package corrections

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

func TestRead_Aliases(t *testing.T) {
	in := "col_name,DTYPE,Tags,FIELD_DESCRIPTION\n" +
		"Revenue,float,finance,\"Total revenue, net\"\n" +
		"[Region],string,,\n"

	got, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []domain.CorrectionRecord{
		{Name: "Revenue", Description: "Total revenue, net", Datatype: "float", Tag: "finance"},
		{Name: "[Region]", Datatype: "string"},
	}, got)
}

func TestRead_OnlyNameColumn(t *testing.T) {
	got, err := Read(strings.NewReader("FIELD_NAME\nA\nB\n"))
	require.NoError(t, err)
	assert.Equal(t, []domain.CorrectionRecord{{Name: "A"}, {Name: "B"}}, got)
}

func TestRead_UTF8BOM(t *testing.T) {
	in := "\xef\xbb\xbfFIELD_NAME,FIELD_DESCRIPTION\nRevenue,Money\n"

	got, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Revenue", got[0].Name)
}

func TestRead_UTF16BOM(t *testing.T) {
	text := "FIELD_NAME,FIELD_TAG\nCafé,pii\n"
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xfe})
	for _, r := range text {
		buf.WriteByte(byte(r))
		buf.WriteByte(byte(r >> 8))
	}

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []domain.CorrectionRecord{{Name: "Café", Tag: "pii"}}, got)
}

func TestRead_SkipsBlankRows(t *testing.T) {
	got, err := Read(strings.NewReader("FIELD_NAME,FIELD_DESCRIPTION\n,\nA,x\n,orphan\n"))
	require.NoError(t, err)
	assert.Equal(t, []domain.CorrectionRecord{
		{Name: "A", Description: "x"},
		{Description: "orphan"},
	}, got)
}

func TestRead_ShortRows(t *testing.T) {
	got, err := Read(strings.NewReader("FIELD_NAME,FIELD_DESCRIPTION,FIELD_DTYPE\nA\nB,desc\n"))
	require.NoError(t, err)
	assert.Equal(t, []domain.CorrectionRecord{{Name: "A"}, {Name: "B", Description: "desc"}}, got)
}

func TestRead_StrayQuotes(t *testing.T) {
	in := "FIELD_NAME,FIELD_DESCRIPTION,FIELD_DTYPE,FIELD_TAG\n" +
		"REGION,Sales region,string,geo\n" +
		"REVENUE,Net \"gross\" amount,real,fin\n" +
		"COST,\"Unit \"list\" cost\",real,fin\n" +
		"MARGIN,Revenue less cost,real,fin\n"

	got, warnings, err := ReadWithWarnings(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, got, 4)
	assert.Equal(t, "REGION", got[0].Name)
	assert.Equal(t, `Net "gross" amount`, got[1].Description)
	assert.Equal(t, "COST", got[2].Name)
	assert.Equal(t, "real", got[2].Datatype)
	assert.Equal(t, "MARGIN", got[3].Name)
}

func TestRead_IOErrorFails(t *testing.T) {
	r := io.MultiReader(strings.NewReader("FIELD_NAME\nA\n"), iotest.ErrReader(errors.New("disk gone")))

	_, _, err := ReadWithWarnings(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestWarning_String(t *testing.T) {
	w := Warning{Line: 3, Err: csv.ErrBareQuote}
	assert.Equal(t, `line 3 skipped: bare " in non-quoted-field`, w.String())
}

func TestRead_MissingNameColumn(t *testing.T) {
	_, err := Read(strings.NewReader("DESCRIPTION\nx\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRead_Empty(t *testing.T) {
	got, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.csv")
	src := NewSource(path)

	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, os.WriteFile(path, []byte("FIELD_NAME,FIELD_DESCRIPTION\nRevenue,Money\n"), 0600))
	got, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.CorrectionRecord{{Name: "Revenue", Description: "Money"}}, got)
}

func TestWrite_RoundTrip(t *testing.T) {
	defs := []domain.DefinitionRecord{
		{ID: 1, Name: "REVENUE", Description: "Total, net", Datatype: "real", Tag: "finance"},
		{ID: 2, Name: "REGION", Description: domain.NoDefinition},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, defs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "COL_NAME,FIELD_DESCRIPTION,DTYPE,TAGS", lines[0])
	assert.Equal(t, `REVENUE,"Total, net",real,finance`, lines[1])

	back, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []domain.CorrectionRecord{
		{Name: "REVENUE", Description: "Total, net", Datatype: "real", Tag: "finance"},
		{Name: "REGION", Description: domain.NoDefinition},
	}, back)
}
