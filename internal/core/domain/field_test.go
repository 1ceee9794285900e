package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFieldName(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"brackets stripped", "[Sales Amount]", "SALES_AMOUNT"},
		{"punctuation becomes separator", "sales-amount (USD)", "SALES_AMOUNT_USD"},
		{"leading percent kept", "% of Total", "%_OF_TOTAL"},
		{"trailing percent kept", "Margin %", "MARGIN_%"},
		{"percent inside parens", "Profit Ratio (%)", "PROFIT_RATIO_%"},
		{"percent between letters", "a%b", "A%B"},
		{"surrounding underscores trimmed", "  __leading_", "LEADING"},
		{"whitespace runs collapse", "order\t\t date   key", "ORDER_DATE_KEY"},
		{"existing underscores kept", "ship_mode", "SHIP_MODE"},
		{"unicode letters kept", "café", "CAFÉ"},
		{"digits kept", "Q1 2024", "Q1_2024"},
		{"empty", "", ""},
		{"only punctuation", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeFieldName(tt.raw))
		})
	}
}

func TestNormalizeFieldName_Idempotent(t *testing.T) {
	inputs := []string{
		"[Sales Amount]",
		"% of Total",
		"Profit Ratio (%)",
		"a _ b",
		"__x__",
		"Calculation_1234 (copy)",
		"[Measure Names]",
		"ä ö ü",
		"100%",
		"",
	}

	for _, in := range inputs {
		once := NormalizeFieldName(in)
		assert.Equal(t, once, NormalizeFieldName(once), "input %q", in)
	}
}

func TestNormalizeFieldName_SameIdentity(t *testing.T) {
	assert.Equal(t, NormalizeFieldName("[Order Date]"), NormalizeFieldName("order date"))
	assert.Equal(t, NormalizeFieldName("Order-Date"), NormalizeFieldName("ORDER DATE"))
}

func TestOrigin_IsValid(t *testing.T) {
	assert.True(t, OriginSourceColumn.IsValid())
	assert.True(t, OriginCalculated.IsValid())
	assert.False(t, Origin("").IsValid())
	assert.False(t, Origin("derived").IsValid())
}

func TestOrigin_Description(t *testing.T) {
	assert.Equal(t, "Source Data", OriginSourceColumn.Description())
	assert.Equal(t, "Calculated Field", OriginCalculated.Description())
	assert.Equal(t, "Unknown", Origin("x").Description())
}

func TestField_AddAsset(t *testing.T) {
	f := NewField("SALES", OriginSourceColumn, "wb-2")
	f.AddAsset("wb-1")
	f.AddAsset("wb-2")

	assert.Equal(t, []string{"wb-1", "wb-2"}, f.AssetIDs())
}

func TestField_ZeroValueAddAsset(t *testing.T) {
	var f Field
	f.AddAsset("wb-1")
	assert.Equal(t, []string{"wb-1"}, f.AssetIDs())
}

func TestAnomaly_Error(t *testing.T) {
	a := Anomaly{AssetID: "1", AssetName: "Sales", Err: ErrParse}
	assert.Equal(t, "Sales: parse failed", a.Error())
	assert.ErrorIs(t, a, ErrParse)

	a.Field = "!!"
	a.Err = ErrEmptyFieldName
	assert.Equal(t, "Sales [!!]: empty field name", a.Error())
}
