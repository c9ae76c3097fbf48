package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a record is absent from the store.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a malformed or incomplete input record.
	ErrValidation = errors.New("validation failure")
	// ErrReferential indicates a required foreign reference could not be resolved.
	ErrReferential = errors.New("referential error")
	// ErrInvalidState indicates a mutation attempted on a finalised or locked entity.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidArgument indicates a caller-supplied value is out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAllocationExhausted indicates the allocator could not place the full difference.
	ErrAllocationExhausted = errors.New("allocation exhausted")
	// ErrMigrationFailure indicates an essential migration step failed.
	ErrMigrationFailure = errors.New("migration failure")
)

// AllocationError reports an unplaced allocation remainder. It always wraps
// ErrAllocationExhausted and the surrounding unit of work must be rolled back,
// never truncated.
type AllocationError struct {
	ItemID    string
	Remainder float64
	Requested float64
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("failed to allocate %g of %g to item %s", e.Remainder, e.Requested, e.ItemID)
}

func (e *AllocationError) Unwrap() error { return ErrAllocationExhausted }

// MigrationError identifies the migration step that failed during startup.
type MigrationError struct {
	Version string
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration to %s: %v", e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error { return ErrMigrationFailure }
