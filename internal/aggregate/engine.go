// Package aggregate computes derived rollups over the hierarchy store.
// Totals are recomputed from committed state on every call — nothing is
// incrementally maintained, so a result always reflects one snapshot taken
// at read time, at O(children) cost.
package aggregate

import (
	"context"

	"github.com/google/uuid"
	"github.com/homecrate/homecrate/internal/inventory"
)

// TotalsReader is the slice of the store the engine needs. Implementations
// must compute each call against a single committed snapshot.
type TotalsReader interface {
	ContainerTotals(ctx context.Context, id uuid.UUID) (*inventory.ContainerTotals, error)
	LocationTotals(ctx context.Context, id uuid.UUID) (*inventory.LocationTotals, error)
}

// Engine answers totals queries for containers and locations.
type Engine struct {
	store TotalsReader
}

func NewEngine(store TotalsReader) *Engine {
	return &Engine{store: store}
}

// ContainerTotals sums the items currently referencing the container.
// A container with no items yields zero totals, not an error; an unknown
// id yields NotFoundError, matching get semantics.
func (e *Engine) ContainerTotals(ctx context.Context, id uuid.UUID) (*inventory.ContainerTotals, error) {
	return e.store.ContainerTotals(ctx, id)
}

// LocationTotals sums across the containers presently assigned to the
// location and, transitively, their items. Unassigned containers never
// contribute to any location.
func (e *Engine) LocationTotals(ctx context.Context, id uuid.UUID) (*inventory.LocationTotals, error) {
	return e.store.LocationTotals(ctx, id)
}
