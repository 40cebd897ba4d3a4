package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/homecrate/homecrate/internal/inventory"
)

const defaultListLimit = 1000

// ContainerFilter narrows a container listing. Location and Unassigned are
// mutually exclusive; both unset lists every container.
type ContainerFilter struct {
	Location   *uuid.UUID
	Unassigned bool
}

// ItemFilter narrows an item listing to one container when set.
type ItemFilter struct {
	Container *uuid.UUID
}

// ListOptions controls pagination. A zero Limit falls back to the default;
// an empty Cursor starts from the beginning. Each call re-reads current
// state — a cursor is a resume position, not a live snapshot.
type ListOptions struct {
	Limit  int
	Cursor string
}

// Page is one listing result. NextCursor resumes after the last entity
// returned when HasMore is set.
type Page[T any] struct {
	Entities   []T
	NextCursor string
	HasMore    bool
}

// Store is the hierarchy store adapter: every read and write of locations,
// containers and items goes through it. Each mutating operation validates
// its inputs first and then executes as one atomic transaction, so no
// caller ever observes a half-applied cascade or a dangling reference.
//
// Failures are typed: *inventory.ValidationError, *inventory.NotFoundError,
// *inventory.ConflictError, or *inventory.StoreUnavailableError for
// transient backing-store trouble (whole operations are safe to retry).
type Store interface {
	CreateLocation(ctx context.Context, p inventory.CreateLocationParams) (*inventory.Location, error)
	CreateContainer(ctx context.Context, p inventory.CreateContainerParams) (*inventory.Container, error)
	CreateItem(ctx context.Context, p inventory.CreateItemParams) (*inventory.Item, error)

	GetLocation(ctx context.Context, id uuid.UUID) (*inventory.Location, error)
	GetContainer(ctx context.Context, id uuid.UUID) (*inventory.Container, error)
	GetItem(ctx context.Context, id uuid.UUID) (*inventory.Item, error)

	// ResolveKind reports which level of the hierarchy an id belongs to.
	// Used when a scanned label payload has to be turned into an entity.
	ResolveKind(ctx context.Context, id uuid.UUID) (inventory.Kind, error)

	ListLocations(ctx context.Context, opts ListOptions) (*Page[inventory.Location], error)
	ListContainers(ctx context.Context, filter ContainerFilter, opts ListOptions) (*Page[inventory.Container], error)
	ListItems(ctx context.Context, filter ItemFilter, opts ListOptions) (*Page[inventory.Item], error)

	UpdateLocation(ctx context.Context, id uuid.UUID, p inventory.UpdateLocationParams) (*inventory.Location, error)
	UpdateContainer(ctx context.Context, id uuid.UUID, p inventory.UpdateContainerParams) (*inventory.Container, error)
	UpdateItem(ctx context.Context, id uuid.UUID, p inventory.UpdateItemParams) (*inventory.Item, error)

	// DeleteLocation removes a location. Without cascade it fails with a
	// ConflictError while containers still reference the location; with
	// cascade those containers are unassigned (location cleared), never
	// deleted. Deleting a location never deletes items.
	DeleteLocation(ctx context.Context, id uuid.UUID, cascade bool) error

	// DeleteContainer removes a container. Without cascade it fails with a
	// ConflictError while items still reference the container; with cascade
	// the dependent items are hard-deleted in the same transaction.
	DeleteContainer(ctx context.Context, id uuid.UUID, cascade bool) error

	DeleteItem(ctx context.Context, id uuid.UUID) error

	// ContainerTotals and LocationTotals each read one committed snapshot;
	// they are computed on demand, never incrementally maintained.
	ContainerTotals(ctx context.Context, id uuid.UUID) (*inventory.ContainerTotals, error)
	LocationTotals(ctx context.Context, id uuid.UUID) (*inventory.LocationTotals, error)
}
