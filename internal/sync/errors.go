package sync

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// TransportError marks a network-level failure talking to a remote API.
// The driver retries these with backoff before giving up on a run.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// AuthError marks a credential that stayed expired after a refresh attempt
// (the remote rejected the refresh). The run cannot proceed; the operator
// resolves it by re-authorizing the location.
type AuthError struct {
	LocationID string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token for location %s is expired and could not be refreshed", e.LocationID)
}

// ConflictError marks a unique-constraint violation during an upsert. The
// driver logs it with the offending id and continues with the next item.
type ConflictError struct {
	ExternalID string
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict upserting record %s: %v", e.ExternalID, e.Err)
}
func (e *ConflictError) Unwrap() error { return e.Err }

// ValidationError marks a malformed external record (e.g. missing id).
// The item is skipped and counted as an error; the run continues.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid record: " + e.Reason }

// FatalError aborts a run immediately, e.g. when no credential exists for
// the account at all. The sync state is completed with zero progress.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal sync error: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// isUniqueViolation detects a unique-constraint failure from the database.
// GORM's translated error is checked first, with a fallback on the SQLite
// message for drivers that do not translate.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
