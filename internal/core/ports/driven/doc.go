// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ContentServer: Lists, downloads and publishes remote assets
//   - DocumentParser: Reads downloaded workbook documents
//   - SnapshotStore: Sync snapshot persistence
//   - MetadataStore: Relational store of fields, reports and links
//   - AssetCache: Locates local copies of downloaded assets
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the pipeline skips the stage:
//
//   - CorrectionSource: Human-authored corrections. Without it, definitions only accumulate.
//   - QueryArchive: Recovered query storage. Without it, queries are not exported.
//   - DocumentRewriter: Query rewriting. Only used by the query service.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
