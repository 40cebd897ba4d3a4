// Package query is the façade over the hierarchy store and the aggregation
// engine: one structured document in, one structured result or one typed
// error out. A document names a single operation, its typed arguments, and
// which result fields to return. Operations never partially apply — the
// store's transaction is the unit of success.
package query

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/homecrate/homecrate/internal/aggregate"
	"github.com/homecrate/homecrate/internal/ident"
	"github.com/homecrate/homecrate/internal/inventory"
	"github.com/homecrate/homecrate/internal/storage"
)

// Request is one query or mutation document.
type Request struct {
	Op     string          `json:"op"`
	Args   json.RawMessage `json:"args,omitempty"`
	Fields []string        `json:"fields,omitempty"`
}

// Executor resolves request documents against a fixed operation registry.
type Executor struct {
	store storage.Store
	agg   *aggregate.Engine
}

func NewExecutor(store storage.Store, agg *aggregate.Engine) *Executor {
	return &Executor{store: store, agg: agg}
}

// Mutations, as opposed to read-only queries.
var mutations = map[string]bool{
	"createLocation":  true,
	"createContainer": true,
	"createItem":      true,
	"updateLocation":  true,
	"updateContainer": true,
	"updateItem":      true,
	"deleteLocation":  true,
	"deleteContainer": true,
	"deleteItem":      true,
}

// IsMutation reports whether op writes to the store. Unknown names are not
// mutations; Execute rejects them anyway.
func IsMutation(op string) bool { return mutations[op] }

// Execute runs one document and returns its shaped result. Every failure
// is one of the typed inventory/symbol errors; nothing is ever partially
// applied on error.
func (e *Executor) Execute(ctx context.Context, req Request) (map[string]any, error) {
	switch req.Op {
	case "getLocation":
		return e.getLocation(ctx, req)
	case "getContainer":
		return e.getContainer(ctx, req)
	case "getItem":
		return e.getItem(ctx, req)
	case "listLocations":
		return e.listLocations(ctx, req)
	case "listContainers":
		return e.listContainers(ctx, req)
	case "listItems":
		return e.listItems(ctx, req)
	case "containerTotals":
		return e.containerTotals(ctx, req)
	case "locationTotals":
		return e.locationTotals(ctx, req)
	case "createLocation":
		return e.createLocation(ctx, req)
	case "createContainer":
		return e.createContainer(ctx, req)
	case "createItem":
		return e.createItem(ctx, req)
	case "updateLocation":
		return e.updateLocation(ctx, req)
	case "updateContainer":
		return e.updateContainer(ctx, req)
	case "updateItem":
		return e.updateItem(ctx, req)
	case "deleteLocation":
		return e.deleteLocation(ctx, req)
	case "deleteContainer":
		return e.deleteContainer(ctx, req)
	case "deleteItem":
		return e.deleteItem(ctx, req)
	default:
		return nil, &inventory.ValidationError{Field: "op", Reason: "unknown operation"}
	}
}

// decodeArgs parses the argument document strictly: unknown keys are caller
// mistakes, not noise to ignore.
func decodeArgs(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return &inventory.ValidationError{Field: "args", Reason: err.Error()}
	}
	return nil
}

type idArgs struct {
	ID string `json:"id"`
}

func parseIDArgs(raw json.RawMessage) (uuid.UUID, error) {
	var a idArgs
	if err := decodeArgs(raw, &a); err != nil {
		return uuid.Nil, err
	}
	return ident.Parse("id", a.ID)
}

// --- Queries ---

func (e *Executor) getLocation(ctx context.Context, req Request) (map[string]any, error) {
	id, err := parseIDArgs(req.Args)
	if err != nil {
		return nil, err
	}
	l, err := e.store.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	return shape(l, req.Fields, locationFields, "location")
}

func (e *Executor) getContainer(ctx context.Context, req Request) (map[string]any, error) {
	id, err := parseIDArgs(req.Args)
	if err != nil {
		return nil, err
	}
	c, err := e.store.GetContainer(ctx, id)
	if err != nil {
		return nil, err
	}
	return shape(c, req.Fields, containerFields, "container")
}

func (e *Executor) getItem(ctx context.Context, req Request) (map[string]any, error) {
	id, err := parseIDArgs(req.Args)
	if err != nil {
		return nil, err
	}
	i, err := e.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return shape(i, req.Fields, itemFields, "item")
}

type listArgs struct {
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

func (e *Executor) listLocations(ctx context.Context, req Request) (map[string]any, error) {
	var a listArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	page, err := e.store.ListLocations(ctx, storage.ListOptions{Limit: a.Limit, Cursor: a.Cursor})
	if err != nil {
		return nil, err
	}
	return shapeList(page.Entities, page.NextCursor, page.HasMore, req.Fields, locationFields, "location")
}

type listContainersArgs struct {
	Location   *string `json:"location,omitempty"`
	Unassigned bool    `json:"unassigned,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Cursor     string  `json:"cursor,omitempty"`
}

func (e *Executor) listContainers(ctx context.Context, req Request) (map[string]any, error) {
	var a listContainersArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	filter := storage.ContainerFilter{Unassigned: a.Unassigned}
	if a.Location != nil {
		id, err := ident.Parse("location", *a.Location)
		if err != nil {
			return nil, err
		}
		filter.Location = &id
	}
	page, err := e.store.ListContainers(ctx, filter, storage.ListOptions{Limit: a.Limit, Cursor: a.Cursor})
	if err != nil {
		return nil, err
	}
	return shapeList(page.Entities, page.NextCursor, page.HasMore, req.Fields, containerFields, "container")
}

type listItemsArgs struct {
	Container *string `json:"container,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	Cursor    string  `json:"cursor,omitempty"`
}

func (e *Executor) listItems(ctx context.Context, req Request) (map[string]any, error) {
	var a listItemsArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	var filter storage.ItemFilter
	if a.Container != nil {
		id, err := ident.Parse("container", *a.Container)
		if err != nil {
			return nil, err
		}
		filter.Container = &id
	}
	page, err := e.store.ListItems(ctx, filter, storage.ListOptions{Limit: a.Limit, Cursor: a.Cursor})
	if err != nil {
		return nil, err
	}
	return shapeList(page.Entities, page.NextCursor, page.HasMore, req.Fields, itemFields, "item")
}

func (e *Executor) containerTotals(ctx context.Context, req Request) (map[string]any, error) {
	id, err := parseIDArgs(req.Args)
	if err != nil {
		return nil, err
	}
	t, err := e.agg.ContainerTotals(ctx, id)
	if err != nil {
		return nil, err
	}
	return shape(t, req.Fields, containerTotalFields, "containerTotals")
}

func (e *Executor) locationTotals(ctx context.Context, req Request) (map[string]any, error) {
	id, err := parseIDArgs(req.Args)
	if err != nil {
		return nil, err
	}
	t, err := e.agg.LocationTotals(ctx, id)
	if err != nil {
		return nil, err
	}
	return shape(t, req.Fields, locationTotalFields, "locationTotals")
}

// --- Mutations ---

type createLocationArgs struct {
	Name string `json:"name"`
}

func (e *Executor) createLocation(ctx context.Context, req Request) (map[string]any, error) {
	var a createLocationArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	l, err := e.store.CreateLocation(ctx, inventory.CreateLocationParams{Name: a.Name})
	if err != nil {
		return nil, err
	}
	return shape(l, req.Fields, locationFields, "location")
}

type createContainerArgs struct {
	Name     *string `json:"name,omitempty"`
	Location *string `json:"location,omitempty"`
}

func (e *Executor) createContainer(ctx context.Context, req Request) (map[string]any, error) {
	var a createContainerArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	p := inventory.CreateContainerParams{Name: a.Name}
	if a.Location != nil {
		id, err := ident.Parse("location", *a.Location)
		if err != nil {
			return nil, err
		}
		p.Location = &id
	}
	c, err := e.store.CreateContainer(ctx, p)
	if err != nil {
		return nil, err
	}
	return shape(c, req.Fields, containerFields, "container")
}

type createItemArgs struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Quantity    *int64  `json:"quantity,omitempty"`
	Container   string  `json:"container"`
}

func (e *Executor) createItem(ctx context.Context, req Request) (map[string]any, error) {
	var a createItemArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	container, err := ident.Parse("container", a.Container)
	if err != nil {
		return nil, err
	}
	quantity := int64(1)
	if a.Quantity != nil {
		quantity = *a.Quantity
	}
	i, err := e.store.CreateItem(ctx, inventory.CreateItemParams{
		Name:        a.Name,
		Description: a.Description,
		Quantity:    quantity,
		Container:   container,
	})
	if err != nil {
		return nil, err
	}
	return shape(i, req.Fields, itemFields, "item")
}

type updateLocationArgs struct {
	ID   string  `json:"id"`
	Name *string `json:"name,omitempty"`
}

func (e *Executor) updateLocation(ctx context.Context, req Request) (map[string]any, error) {
	var a updateLocationArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	id, err := ident.Parse("id", a.ID)
	if err != nil {
		return nil, err
	}
	l, err := e.store.UpdateLocation(ctx, id, inventory.UpdateLocationParams{Name: a.Name})
	if err != nil {
		return nil, err
	}
	return shape(l, req.Fields, locationFields, "location")
}

type updateContainerArgs struct {
	ID            string  `json:"id"`
	Name          *string `json:"name,omitempty"`
	Location      *string `json:"location,omitempty"`
	ClearLocation bool    `json:"clearLocation,omitempty"`
}

func (e *Executor) updateContainer(ctx context.Context, req Request) (map[string]any, error) {
	var a updateContainerArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	id, err := ident.Parse("id", a.ID)
	if err != nil {
		return nil, err
	}
	p := inventory.UpdateContainerParams{Name: a.Name, ClearLocation: a.ClearLocation}
	if a.Location != nil {
		loc, err := ident.Parse("location", *a.Location)
		if err != nil {
			return nil, err
		}
		p.Location = &loc
	}
	c, err := e.store.UpdateContainer(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return shape(c, req.Fields, containerFields, "container")
}

type updateItemArgs struct {
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Quantity    *int64  `json:"quantity,omitempty"`
	Container   *string `json:"container,omitempty"`
}

func (e *Executor) updateItem(ctx context.Context, req Request) (map[string]any, error) {
	var a updateItemArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	id, err := ident.Parse("id", a.ID)
	if err != nil {
		return nil, err
	}
	p := inventory.UpdateItemParams{Name: a.Name, Description: a.Description, Quantity: a.Quantity}
	if a.Container != nil {
		container, err := ident.Parse("container", *a.Container)
		if err != nil {
			return nil, err
		}
		p.Container = &container
	}
	i, err := e.store.UpdateItem(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return shape(i, req.Fields, itemFields, "item")
}

type deleteArgs struct {
	ID      string `json:"id"`
	Cascade bool   `json:"cascade,omitempty"`
}

func (e *Executor) deleteLocation(ctx context.Context, req Request) (map[string]any, error) {
	var a deleteArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	id, err := ident.Parse("id", a.ID)
	if err != nil {
		return nil, err
	}
	if err := e.store.DeleteLocation(ctx, id, a.Cascade); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": id.String()}, nil
}

func (e *Executor) deleteContainer(ctx context.Context, req Request) (map[string]any, error) {
	var a deleteArgs
	if err := decodeArgs(req.Args, &a); err != nil {
		return nil, err
	}
	id, err := ident.Parse("id", a.ID)
	if err != nil {
		return nil, err
	}
	if err := e.store.DeleteContainer(ctx, id, a.Cascade); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": id.String()}, nil
}

func (e *Executor) deleteItem(ctx context.Context, req Request) (map[string]any, error) {
	id, err := parseIDArgs(req.Args)
	if err != nil {
		return nil, err
	}
	if err := e.store.DeleteItem(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": id.String()}, nil
}
