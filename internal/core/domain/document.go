package domain

// RawField is a field as it appears in a workbook document, before normalisation.
type RawField struct {
	// Name is the raw caption or internal name.
	Name string

	// Calculation is the calculation expression; empty for source columns.
	Calculation string

	// Datatype is the declared datatype.
	Datatype string

	// Description is the embedded description text.
	Description string
}

// Datasource is one data source inside a workbook document.
type Datasource struct {
	// Name is the data source caption or name.
	Name string

	// Fields are the data source's fields in document order.
	Fields []RawField

	// CustomQueries are the custom SQL relations, in document order.
	CustomQueries []string
}

// ParsedDocument is the parsed form of a downloaded workbook.
type ParsedDocument struct {
	// Path is the local file the document was parsed from.
	Path string

	// Datasources are the document's data sources in document order.
	Datasources []Datasource
}

// AssetFields joins a remote asset with the fields extracted from its local document.
type AssetFields struct {
	// Asset is the remote asset.
	Asset RemoteAsset

	// Fields are the asset's distinct fields in first-seen order.
	Fields []*Field

	// Query is the first custom query found, empty if none.
	Query string

	// ExtraQueries counts custom queries ignored after the first.
	ExtraQueries int
}

// FieldNames returns the asset's field names in order.
func (a AssetFields) FieldNames() []string {
	names := make([]string, 0, len(a.Fields))
	for _, f := range a.Fields {
		names = append(names, f.Name)
	}
	return names
}
