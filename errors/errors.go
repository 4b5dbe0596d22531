// Package errors provides error handling for mangasync.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// On top of that it defines the sync engine's error taxonomy:
//
//	ErrFormat      malformed job id
//	ErrResolution  natural-key lookup found no surrogate id during reconciliation
//	ErrValidation  raw record missing or carrying malformed required fields
//	ErrStore       datastore call failed
//
// Usage:
//
//	if _, err := exec.Execute(ctx, "upsert_mangas", params); err != nil {
//	    return errors.WrapStore(err, "upsert_mangas")
//	}
//
//	if errors.IsStoreError(err) {
//	    // job ids stay pending, re-run to recover
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Sync engine error taxonomy.
// Use these with errors.Is() (or the Is*Error helpers) for type-safe checks.
var (
	// ErrFormat indicates a job id that does not match the YYYYMMDDHHMMSS layout
	ErrFormat = New("malformed job id")

	// ErrResolution indicates a natural key with no matching surrogate id
	ErrResolution = New("unresolved natural key")

	// ErrValidation indicates a raw record missing required fields
	ErrValidation = New("invalid raw record")

	// ErrStore indicates a datastore call failed
	ErrStore = New("datastore call failed")
)

// NewFormatError creates a format error for a malformed job id
func NewFormatError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrFormat)
}

// NewResolutionError creates a resolution error with a formatted message
func NewResolutionError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrResolution)
}

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrValidation)
}

// WrapStore marks err as a datastore failure for the named query.
// Returns nil when err is nil.
func WrapStore(err error, query string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, "query %s", query), ErrStore)
}

// IsFormatError checks if an error is or wraps ErrFormat
func IsFormatError(err error) bool {
	return err != nil && Is(err, ErrFormat)
}

// IsResolutionError checks if an error is or wraps ErrResolution
func IsResolutionError(err error) bool {
	return err != nil && Is(err, ErrResolution)
}

// IsValidationError checks if an error is or wraps ErrValidation
func IsValidationError(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// IsStoreError checks if an error is or wraps ErrStore
func IsStoreError(err error) bool {
	return err != nil && Is(err, ErrStore)
}
