package domain

import (
	"regexp"
	"sort"
	"strings"
)

// Origin classifies where a field's values come from.
type Origin string

// Available field origins.
const (
	// OriginSourceColumn is a column read straight from the data source.
	OriginSourceColumn Origin = "source-column"

	// OriginCalculated is a field defined by a calculation expression.
	OriginCalculated Origin = "calculated"
)

// IsValid returns true if the origin is recognised.
func (o Origin) IsValid() bool {
	return o == OriginSourceColumn || o == OriginCalculated
}

// Description returns a human-readable label.
func (o Origin) Description() string {
	switch o {
	case OriginSourceColumn:
		return "Source Data"
	case OriginCalculated:
		return "Calculated Field"
	default:
		return "Unknown"
	}
}

// Pre-compiled regular expressions for field name normalisation.
var (
	bracketRe    = regexp.MustCompile(`[\[\]]+`)
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_%]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeFieldName maps a raw field name to its identity:
//  1. Uppercase
//  2. Strip square brackets
//  3. Replace every other non-word rune with a space, keeping '%' in place
//  4. Collapse whitespace runs into a single underscore
//  5. Trim leading and trailing underscores
//
// The function is idempotent.
func NormalizeFieldName(raw string) string {
	s := strings.ToUpper(raw)
	s = bracketRe.ReplaceAllString(s, "")
	s = nonWordRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = whitespaceRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Field is a normalised column or calculation referenced by one or more assets.
type Field struct {
	// Name is the normalised name and the field's identity.
	Name string

	// Origin is source-column or calculated.
	Origin Origin

	// Datatype is the declared datatype from the document.
	Datatype string

	// Description is the description embedded in the document, if any.
	Description string

	// Assets is the set of asset IDs that reference this field.
	Assets map[string]struct{}
}

// NewField creates a field referenced by a single asset.
func NewField(name string, origin Origin, assetID string) *Field {
	f := &Field{
		Name:   name,
		Origin: origin,
		Assets: make(map[string]struct{}),
	}
	if assetID != "" {
		f.Assets[assetID] = struct{}{}
	}
	return f
}

// AddAsset records another asset referencing this field.
func (f *Field) AddAsset(assetID string) {
	if f.Assets == nil {
		f.Assets = make(map[string]struct{})
	}
	f.Assets[assetID] = struct{}{}
}

// AssetIDs returns the referencing asset IDs in sorted order.
func (f *Field) AssetIDs() []string {
	ids := make([]string, 0, len(f.Assets))
	for id := range f.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Anomaly is a per-asset extraction problem that was skipped.
type Anomaly struct {
	// AssetID identifies the affected asset.
	AssetID string

	// AssetName is the display name of the affected asset.
	AssetName string

	// Field is the raw field name, empty when the whole asset was skipped.
	Field string

	// Err describes the problem.
	Err error
}

func (a Anomaly) Error() string {
	if a.Field != "" {
		return a.AssetName + " [" + a.Field + "]: " + a.Err.Error()
	}
	return a.AssetName + ": " + a.Err.Error()
}

func (a Anomaly) Unwrap() error {
	return a.Err
}
