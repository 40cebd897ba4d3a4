package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Kind names the three entity levels of the hierarchy.
type Kind string

const (
	KindLocation  Kind = "location"
	KindContainer Kind = "container"
	KindItem      Kind = "item"
)

// Location is a top-level grouping. It has no parent and no timestamps;
// identity is the ID, the name is mutable and non-unique.
type Location struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Container holds items and may be assigned to a location. A container with
// a nil Location is unassigned but still valid.
type Container struct {
	ID       uuid.UUID  `json:"id"`
	Created  time.Time  `json:"created"`
	Updated  time.Time  `json:"updated"`
	Name     *string    `json:"name,omitempty"`
	Location *uuid.UUID `json:"location,omitempty"`
}

// ContainerTotals is the derived rollup for one container, computed from
// the items referencing it at read time.
type ContainerTotals struct {
	ItemCount     int64 `json:"itemCount"`
	TotalQuantity int64 `json:"totalQuantity"`
}

// LocationTotals is the derived rollup for one location across its assigned
// containers and, transitively, their items.
type LocationTotals struct {
	ContainerCount int64 `json:"containerCount"`
	ItemCount      int64 `json:"itemCount"`
	TotalQuantity  int64 `json:"totalQuantity"`
}

// Item always belongs to exactly one container.
type Item struct {
	ID          uuid.UUID `json:"id"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Quantity    int64     `json:"quantity"`
	Container   uuid.UUID `json:"container"`
}
