package inventory

import (
	"fmt"

	"github.com/google/uuid"
)

// Stable error kind strings. The API passes these through to clients
// unchanged, so they are part of the wire contract.
const (
	KindValidation       = "VALIDATION"
	KindNotFound         = "NOT_FOUND"
	KindConflict         = "CONFLICT"
	KindDecode           = "DECODE"
	KindStoreUnavailable = "STORE_UNAVAILABLE"
)

// ValidationError reports malformed or out-of-range input. The caller can
// recover by correcting the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that a referenced id does not currently exist.
type NotFoundError struct {
	Kind Kind
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConflictError reports a non-cascading delete blocked by live dependents.
// Dependents is the number of children still referencing the entity.
type ConflictError struct {
	Kind       Kind
	ID         uuid.UUID
	Dependents int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s has %d dependents; delete with cascade or remove them first", e.Kind, e.ID, e.Dependents)
}

// StoreUnavailableError wraps a transient backing-store failure. The whole
// operation is safe to retry because mutations are atomic and never
// partially applied.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }
