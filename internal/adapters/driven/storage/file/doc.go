// Package file provides filesystem implementations of driven port interfaces.
//
// Adapters:
//   - SnapshotStore: the sync snapshot as a TOML file, replaced atomically
//   - AssetCache: downloaded workbooks, one directory per asset ID
//   - QueryArchive: recovered queries as <name>.sql files
package file
