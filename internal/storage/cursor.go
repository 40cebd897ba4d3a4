package storage

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/homecrate/homecrate/internal/inventory"
)

// Cursor is an opaque resume position for listings. Containers and items
// page on (created, id); locations have no timestamps and page on
// (name, id) instead.
type Cursor struct {
	Created *time.Time `json:"created,omitempty"`
	Name    string     `json:"name,omitempty"`
	ID      uuid.UUID  `json:"id"`
}

// Encode serializes the cursor to a base64-encoded string.
func (c *Cursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses a client-supplied cursor. A bad cursor is a caller
// mistake, not a store failure, so it maps to a ValidationError.
func DecodeCursor(s string) (*Cursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, &inventory.ValidationError{Field: "cursor", Reason: "not valid base64"}
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, &inventory.ValidationError{Field: "cursor", Reason: "malformed"}
	}
	return &c, nil
}
