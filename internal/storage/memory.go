package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homecrate/homecrate/internal/ident"
	"github.com/homecrate/homecrate/internal/inventory"
)

// MemoryStore is an in-memory Store with the same semantics as the
// Postgres implementation: typed errors, atomic cascades, creation-order
// listings. Used by unit tests and as a scratch backend; a coarse mutex
// stands in for the database's transaction isolation.
type MemoryStore struct {
	mu         sync.Mutex
	locations  map[uuid.UUID]inventory.Location
	containers map[uuid.UUID]inventory.Container
	items      map[uuid.UUID]inventory.Item
	seq        int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locations:  make(map[uuid.UUID]inventory.Location),
		containers: make(map[uuid.UUID]inventory.Container),
		items:      make(map[uuid.UUID]inventory.Item),
	}
}

// now returns a strictly increasing timestamp so creation order is total
// even when entities are created within one clock tick.
func (s *MemoryStore) now() time.Time {
	s.seq++
	return time.Unix(1700000000, 0).UTC().Add(time.Duration(s.seq) * time.Microsecond)
}

func (s *MemoryStore) CreateLocation(ctx context.Context, p inventory.CreateLocationParams) (*inventory.Location, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := inventory.Location{ID: ident.New(), Name: p.Name}
	s.locations[l.ID] = l
	return &l, nil
}

func (s *MemoryStore) CreateContainer(ctx context.Context, p inventory.CreateContainerParams) (*inventory.Container, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Location != nil {
		if _, ok := s.locations[*p.Location]; !ok {
			return nil, &inventory.NotFoundError{Kind: inventory.KindLocation, ID: *p.Location}
		}
	}
	now := s.now()
	c := inventory.Container{ID: ident.New(), Created: now, Updated: now, Name: p.Name, Location: p.Location}
	s.containers[c.ID] = c
	return &c, nil
}

func (s *MemoryStore) CreateItem(ctx context.Context, p inventory.CreateItemParams) (*inventory.Item, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[p.Container]; !ok {
		return nil, &inventory.NotFoundError{Kind: inventory.KindContainer, ID: p.Container}
	}
	now := s.now()
	i := inventory.Item{
		ID:          ident.New(),
		Created:     now,
		Updated:     now,
		Name:        p.Name,
		Description: p.Description,
		Quantity:    p.Quantity,
		Container:   p.Container,
	}
	s.items[i.ID] = i
	return &i, nil
}

func (s *MemoryStore) GetLocation(ctx context.Context, id uuid.UUID) (*inventory.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return nil, &inventory.NotFoundError{Kind: inventory.KindLocation, ID: id}
	}
	return &l, nil
}

func (s *MemoryStore) GetContainer(ctx context.Context, id uuid.UUID) (*inventory.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[id]
	if !ok {
		return nil, &inventory.NotFoundError{Kind: inventory.KindContainer, ID: id}
	}
	return &c, nil
}

func (s *MemoryStore) GetItem(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.items[id]
	if !ok {
		return nil, &inventory.NotFoundError{Kind: inventory.KindItem, ID: id}
	}
	return &i, nil
}

func (s *MemoryStore) ResolveKind(ctx context.Context, id uuid.UUID) (inventory.Kind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[id]; ok {
		return inventory.KindLocation, nil
	}
	if _, ok := s.containers[id]; ok {
		return inventory.KindContainer, nil
	}
	if _, ok := s.items[id]; ok {
		return inventory.KindItem, nil
	}
	return "", &inventory.NotFoundError{Kind: "entity", ID: id}
}

func (s *MemoryStore) ListLocations(ctx context.Context, opts ListOptions) (*Page[inventory.Location], error) {
	limit := listLimit(opts)
	afterName, afterID := "", uuid.Nil
	if opts.Cursor != "" {
		cur, err := DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		afterName, afterID = cur.Name, cur.ID
	}

	s.mu.Lock()
	all := make([]inventory.Location, 0, len(s.locations))
	for _, l := range s.locations {
		all = append(all, l)
	}
	s.mu.Unlock()

	sort.Slice(all, func(a, b int) bool {
		if all[a].Name != all[b].Name {
			return all[a].Name < all[b].Name
		}
		return strings.Compare(all[a].ID.String(), all[b].ID.String()) < 0
	})

	page := &Page[inventory.Location]{}
	for _, l := range all {
		if l.Name < afterName || (l.Name == afterName && strings.Compare(l.ID.String(), afterID.String()) <= 0) {
			continue
		}
		page.Entities = append(page.Entities, l)
		if len(page.Entities) == limit {
			break
		}
	}
	if len(page.Entities) == limit {
		last := page.Entities[len(page.Entities)-1]
		page.NextCursor = (&Cursor{Name: last.Name, ID: last.ID}).Encode()
		page.HasMore = true
	}
	return page, nil
}

func (s *MemoryStore) ListContainers(ctx context.Context, filter ContainerFilter, opts ListOptions) (*Page[inventory.Container], error) {
	if filter.Location != nil && filter.Unassigned {
		return nil, &inventory.ValidationError{Field: "location", Reason: "cannot filter by location and unassigned at once"}
	}
	limit := listLimit(opts)
	var afterCreated *time.Time
	afterID := uuid.Nil
	if opts.Cursor != "" {
		cur, err := DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		afterCreated, afterID = cur.Created, cur.ID
	}

	s.mu.Lock()
	all := make([]inventory.Container, 0, len(s.containers))
	for _, c := range s.containers {
		if filter.Location != nil && (c.Location == nil || *c.Location != *filter.Location) {
			continue
		}
		if filter.Unassigned && c.Location != nil {
			continue
		}
		all = append(all, c)
	}
	s.mu.Unlock()

	sort.Slice(all, func(a, b int) bool {
		if !all[a].Created.Equal(all[b].Created) {
			return all[a].Created.Before(all[b].Created)
		}
		return strings.Compare(all[a].ID.String(), all[b].ID.String()) < 0
	})

	page := &Page[inventory.Container]{}
	for _, c := range all {
		if afterCreated != nil {
			if c.Created.Before(*afterCreated) ||
				(c.Created.Equal(*afterCreated) && strings.Compare(c.ID.String(), afterID.String()) <= 0) {
				continue
			}
		}
		page.Entities = append(page.Entities, c)
		if len(page.Entities) == limit {
			break
		}
	}
	if len(page.Entities) == limit {
		last := page.Entities[len(page.Entities)-1]
		created := last.Created
		page.NextCursor = (&Cursor{Created: &created, ID: last.ID}).Encode()
		page.HasMore = true
	}
	return page, nil
}

func (s *MemoryStore) ListItems(ctx context.Context, filter ItemFilter, opts ListOptions) (*Page[inventory.Item], error) {
	limit := listLimit(opts)
	var afterCreated *time.Time
	afterID := uuid.Nil
	if opts.Cursor != "" {
		cur, err := DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		afterCreated, afterID = cur.Created, cur.ID
	}

	s.mu.Lock()
	all := make([]inventory.Item, 0, len(s.items))
	for _, i := range s.items {
		if filter.Container != nil && i.Container != *filter.Container {
			continue
		}
		all = append(all, i)
	}
	s.mu.Unlock()

	sort.Slice(all, func(a, b int) bool {
		if !all[a].Created.Equal(all[b].Created) {
			return all[a].Created.Before(all[b].Created)
		}
		return strings.Compare(all[a].ID.String(), all[b].ID.String()) < 0
	})

	page := &Page[inventory.Item]{}
	for _, i := range all {
		if afterCreated != nil {
			if i.Created.Before(*afterCreated) ||
				(i.Created.Equal(*afterCreated) && strings.Compare(i.ID.String(), afterID.String()) <= 0) {
				continue
			}
		}
		page.Entities = append(page.Entities, i)
		if len(page.Entities) == limit {
			break
		}
	}
	if len(page.Entities) == limit {
		last := page.Entities[len(page.Entities)-1]
		created := last.Created
		page.NextCursor = (&Cursor{Created: &created, ID: last.ID}).Encode()
		page.HasMore = true
	}
	return page, nil
}

func (s *MemoryStore) UpdateLocation(ctx context.Context, id uuid.UUID, p inventory.UpdateLocationParams) (*inventory.Location, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return nil, &inventory.NotFoundError{Kind: inventory.KindLocation, ID: id}
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	s.locations[id] = l
	return &l, nil
}

func (s *MemoryStore) UpdateContainer(ctx context.Context, id uuid.UUID, p inventory.UpdateContainerParams) (*inventory.Container, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[id]
	if !ok {
		return nil, &inventory.NotFoundError{Kind: inventory.KindContainer, ID: id}
	}
	if p.Location != nil {
		if _, ok := s.locations[*p.Location]; !ok {
			return nil, &inventory.NotFoundError{Kind: inventory.KindLocation, ID: *p.Location}
		}
		loc := *p.Location
		c.Location = &loc
	}
	if p.ClearLocation {
		c.Location = nil
	}
	if p.Name != nil {
		c.Name = p.Name
	}
	c.Updated = s.now()
	s.containers[id] = c
	return &c, nil
}

func (s *MemoryStore) UpdateItem(ctx context.Context, id uuid.UUID, p inventory.UpdateItemParams) (*inventory.Item, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.items[id]
	if !ok {
		return nil, &inventory.NotFoundError{Kind: inventory.KindItem, ID: id}
	}
	if p.Container != nil {
		if _, ok := s.containers[*p.Container]; !ok {
			return nil, &inventory.NotFoundError{Kind: inventory.KindContainer, ID: *p.Container}
		}
		i.Container = *p.Container
	}
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.Description != nil {
		i.Description = p.Description
	}
	if p.Quantity != nil {
		i.Quantity = *p.Quantity
	}
	i.Updated = s.now()
	s.items[id] = i
	return &i, nil
}

func (s *MemoryStore) DeleteLocation(ctx context.Context, id uuid.UUID, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[id]; !ok {
		return &inventory.NotFoundError{Kind: inventory.KindLocation, ID: id}
	}
	var dependents []uuid.UUID
	for cid, c := range s.containers {
		if c.Location != nil && *c.Location == id {
			dependents = append(dependents, cid)
		}
	}
	if len(dependents) > 0 && !cascade {
		return &inventory.ConflictError{Kind: inventory.KindLocation, ID: id, Dependents: int64(len(dependents))}
	}
	for _, cid := range dependents {
		c := s.containers[cid]
		c.Location = nil
		c.Updated = s.now()
		s.containers[cid] = c
	}
	delete(s.locations, id)
	return nil
}

func (s *MemoryStore) DeleteContainer(ctx context.Context, id uuid.UUID, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[id]; !ok {
		return &inventory.NotFoundError{Kind: inventory.KindContainer, ID: id}
	}
	var dependents []uuid.UUID
	for iid, i := range s.items {
		if i.Container == id {
			dependents = append(dependents, iid)
		}
	}
	if len(dependents) > 0 && !cascade {
		return &inventory.ConflictError{Kind: inventory.KindContainer, ID: id, Dependents: int64(len(dependents))}
	}
	for _, iid := range dependents {
		delete(s.items, iid)
	}
	delete(s.containers, id)
	return nil
}

func (s *MemoryStore) DeleteItem(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return &inventory.NotFoundError{Kind: inventory.KindItem, ID: id}
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) ContainerTotals(ctx context.Context, id uuid.UUID) (*inventory.ContainerTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[id]; !ok {
		return nil, &inventory.NotFoundError{Kind: inventory.KindContainer, ID: id}
	}
	var t inventory.ContainerTotals
	for _, i := range s.items {
		if i.Container == id {
			t.ItemCount++
			t.TotalQuantity += i.Quantity
		}
	}
	return &t, nil
}

func (s *MemoryStore) LocationTotals(ctx context.Context, id uuid.UUID) (*inventory.LocationTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[id]; !ok {
		return nil, &inventory.NotFoundError{Kind: inventory.KindLocation, ID: id}
	}
	var t inventory.LocationTotals
	for cid, c := range s.containers {
		if c.Location == nil || *c.Location != id {
			continue
		}
		t.ContainerCount++
		for _, i := range s.items {
			if i.Container == cid {
				t.ItemCount++
				t.TotalQuantity += i.Quantity
			}
		}
	}
	return &t, nil
}
