package errors

import "errors"

// Common application errors for type-safe error handling.
// These errors can be checked using errors.Is() instead of string comparison.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")

	// Photo store
	ErrInvalidIndex          = errors.New("invalid photo index")
	ErrUnknownCollection     = errors.New("unknown photo collection")
	ErrNotSelectable         = errors.New("collection does not support selection")
	ErrStorageExhausted      = errors.New("storage exhausted, all photos cleared")
	ErrCorruptPersistedState = errors.New("corrupt persisted state")

	// Key-value backends report this when a write would exceed the backend capacity.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// Photobooth transform
	ErrNoSelection      = errors.New("no photo selected")
	ErrAssetMissing     = errors.New("award asset not loaded")
	ErrRateLimited      = errors.New("usage limit reached for this window")
	ErrAlreadyInFlight  = errors.New("a photobooth request is already in progress")
	ErrNoImageReturned  = errors.New("no image returned by generation endpoint")
	ErrTransportFailure = errors.New("generation request failed")
)
