// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The sync pipeline runs its stages in a fixed order:
//
//	catalog -> detect -> transfer -> extract -> reconcile -> store -> commit
//
// Each stage is a separate type (CatalogFetcher, ChangeDetector,
// TransferEngine, FieldExtractor, Reconciler) that can be used on its own.
package services
