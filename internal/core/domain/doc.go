// Package domain defines the core business entities for bisync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RemoteAsset: A workbook as seen on the content server
//   - Snapshot: Last-seen modification timestamps per asset
//   - Field: A normalised column or calculation referenced by assets
//   - DefinitionRecord: The persisted, human-curated description of a field
//   - ReportRecord and BridgeRow: The report catalogue and its field links
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
