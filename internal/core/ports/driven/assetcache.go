package driven

// AssetCache locates local copies of downloaded assets.
type AssetCache interface {
	// Dir returns the directory a download of the asset should be written to.
	Dir(id string) string

	// Lookup returns the local copy of an asset if one exists.
	Lookup(id string) (string, bool)

	// IDs returns the IDs of every cached asset in sorted order.
	IDs() ([]string, error)
}
