package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync cycle is already running against the store.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrNotConfigured indicates a required collaborator or setting is missing.
	ErrNotConfigured = errors.New("not configured")

	// Remote Errors.

	// ErrConnectionLost indicates the connection to the content server is gone.
	// Transfer chunks abort on this error instead of recording a per-item failure.
	ErrConnectionLost = errors.New("connection lost")

	// ErrAuthInvalid indicates the server rejected the configured credentials.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrRateLimited indicates the server rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnknownCollection indicates a collection name the server adapter cannot list.
	ErrUnknownCollection = errors.New("unknown collection")

	// Document Errors.

	// ErrParse indicates a downloaded asset could not be parsed.
	ErrParse = errors.New("parse failed")

	// ErrEmptyFieldName indicates a raw field name normalised to nothing.
	ErrEmptyFieldName = errors.New("empty field name")

	// Store Errors.

	// ErrSchemaMissing indicates the metadata tables have not been created.
	ErrSchemaMissing = errors.New("schema missing")
)
