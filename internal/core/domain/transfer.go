package domain

// PublishMode controls how an upload treats an existing remote asset.
type PublishMode string

// Available publish modes.
const (
	// PublishOverwrite replaces an existing asset of the same name.
	PublishOverwrite PublishMode = "Overwrite"

	// PublishCreateNew fails if an asset of the same name exists.
	PublishCreateNew PublishMode = "CreateNew"

	// PublishAppend appends to an existing extract.
	PublishAppend PublishMode = "Append"
)

// IsValid returns true if the publish mode is recognised.
func (m PublishMode) IsValid() bool {
	switch m {
	case PublishOverwrite, PublishCreateNew, PublishAppend:
		return true
	default:
		return false
	}
}

// TransferResult is the outcome of one item in a bulk transfer.
// A failed item keeps its slot with Err set and no Path or RemoteID.
type TransferResult struct {
	// ID is the asset ID (downloads) or local path (uploads) that was transferred.
	ID string

	// Path is the local file written by a download.
	Path string

	// RemoteID is the server identifier returned by an upload.
	RemoteID string

	// Err is set when the item failed.
	Err error
}

// Ok returns true if the item transferred successfully.
func (r TransferResult) Ok() bool {
	return r.Err == nil
}

// SucceededIDs returns the IDs of successful results in result order.
func SucceededIDs(results []TransferResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Ok() {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// FailedCount returns the number of failed results.
func FailedCount(results []TransferResult) int {
	n := 0
	for _, r := range results {
		if !r.Ok() {
			n++
		}
	}
	return n
}
