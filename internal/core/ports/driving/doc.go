// Package driving defines the ports the command line calls into: the sync
// pipeline and its scheduler, catalog and schema admin, definitions,
// queries and settings. Implementations live in internal/core/services.
package driving
