// Package ident issues and validates the 128-bit identifiers used as
// primary keys throughout the hierarchy. IDs are random (UUIDv4), never
// reused, and immutable once assigned.
package ident

import (
	"github.com/google/uuid"

	"github.com/homecrate/homecrate/internal/inventory"
)

// New returns a fresh random identifier. Collisions across 122 random bits
// are treated as impossible; the storage layer's primary-key constraint is
// the backstop.
func New() uuid.UUID {
	return uuid.New()
}

// Parse validates a client-supplied identifier string. The zero UUID is
// rejected because it is never issued by New.
func Parse(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &inventory.ValidationError{Field: field, Reason: "not a valid id"}
	}
	if id == uuid.Nil {
		return uuid.Nil, &inventory.ValidationError{Field: field, Reason: "must not be the zero id"}
	}
	return id, nil
}
