package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/homecrate/homecrate/internal/inventory"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16",
		postgres.WithDatabase("homecrate"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		panic(fmt.Sprintf("start postgres container: %v", err))
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(fmt.Sprintf("get connection string: %v", err))
	}

	testPool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		panic(fmt.Sprintf("create pool: %v", err))
	}

	if err := RunMigrations(ctx, testPool); err != nil {
		panic(fmt.Sprintf("run migrations: %v", err))
	}

	code := m.Run()

	testPool.Close()
	_ = testcontainers.TerminateContainer(ctr)

	os.Exit(code)
}

// freshStore truncates all three tables and returns a store over them.
func freshStore(t *testing.T) *PostgresStore {
	t.Helper()
	if _, err := testPool.Exec(context.Background(),
		`TRUNCATE items, containers, locations`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewPostgresStore(testPool, 5*time.Second)
}

func strptr(s string) *string { return &s }
func i64ptr(n int64) *int64   { return &n }

func requireNotFound(t *testing.T, err error, kind inventory.Kind) {
	t.Helper()
	var nf *inventory.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error: got %v, want NotFoundError", err)
	}
	if nf.Kind != kind {
		t.Errorf("Kind: got %q, want %q", nf.Kind, kind)
	}
}

func TestCreateLocation(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	l, err := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: "Garage"})
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	if l.ID == uuid.Nil {
		t.Error("expected a non-zero id")
	}
	if l.Name != "Garage" {
		t.Errorf("Name = %q, want %q", l.Name, "Garage")
	}

	got, err := store.GetLocation(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLocation: %v", err)
	}
	if got.Name != "Garage" {
		t.Errorf("read back Name = %q", got.Name)
	}
}

func TestCreateLocation_EmptyName(t *testing.T) {
	store := freshStore(t)

	_, err := store.CreateLocation(context.Background(), inventory.CreateLocationParams{})
	var ve *inventory.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error: got %v, want ValidationError", err)
	}
}

func TestCreateContainer(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	// Anonymous unassigned containers are legal.
	anon, err := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if anon.Name != nil || anon.Location != nil {
		t.Errorf("anonymous container = %+v, want nil name and location", anon)
	}
	if anon.Created.IsZero() {
		t.Error("expected non-zero Created")
	}
	if anon.Updated.Before(anon.Created) {
		t.Errorf("Updated %v before Created %v", anon.Updated, anon.Created)
	}

	l, err := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: "Garage"})
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	c, err := store.CreateContainer(ctx, inventory.CreateContainerParams{Name: strptr("Shelf A"), Location: &l.ID})
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if c.Name == nil || *c.Name != "Shelf A" {
		t.Errorf("Name = %v, want Shelf A", c.Name)
	}
	if c.Location == nil || *c.Location != l.ID {
		t.Errorf("Location = %v, want %s", c.Location, l.ID)
	}
}

func TestCreateContainer_UnknownLocation(t *testing.T) {
	store := freshStore(t)

	missing := uuid.New()
	_, err := store.CreateContainer(context.Background(), inventory.CreateContainerParams{Location: &missing})
	requireNotFound(t, err, inventory.KindLocation)
}

func TestCreateItem(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	c, err := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}

	i, err := store.CreateItem(ctx, inventory.CreateItemParams{
		Name:        "Hammer",
		Description: strptr("claw hammer"),
		Quantity:    2,
		Container:   c.ID,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if i.Name != "Hammer" || i.Quantity != 2 || i.Container != c.ID {
		t.Errorf("item = %+v", i)
	}
	if i.Description == nil || *i.Description != "claw hammer" {
		t.Errorf("Description = %v", i.Description)
	}
}

func TestCreateItem_UnknownContainer(t *testing.T) {
	store := freshStore(t)

	_, err := store.CreateItem(context.Background(), inventory.CreateItemParams{
		Name: "Hammer", Quantity: 1, Container: uuid.New(),
	})
	requireNotFound(t, err, inventory.KindContainer)
}

func TestGet_NotFound(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := store.GetLocation(ctx, missing)
	requireNotFound(t, err, inventory.KindLocation)
	_, err = store.GetContainer(ctx, missing)
	requireNotFound(t, err, inventory.KindContainer)
	_, err = store.GetItem(ctx, missing)
	requireNotFound(t, err, inventory.KindItem)
}

func TestResolveKind(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	l, _ := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: "Garage"})
	c, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	i, _ := store.CreateItem(ctx, inventory.CreateItemParams{Name: "Hammer", Quantity: 1, Container: c.ID})

	tests := []struct {
		id   uuid.UUID
		want inventory.Kind
	}{
		{l.ID, inventory.KindLocation},
		{c.ID, inventory.KindContainer},
		{i.ID, inventory.KindItem},
	}
	for _, tt := range tests {
		kind, err := store.ResolveKind(ctx, tt.id)
		if err != nil {
			t.Fatalf("ResolveKind(%s): %v", tt.id, err)
		}
		if kind != tt.want {
			t.Errorf("ResolveKind(%s) = %q, want %q", tt.id, kind, tt.want)
		}
	}

	_, err := store.ResolveKind(ctx, uuid.New())
	var nf *inventory.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("unknown id: got %v, want NotFoundError", err)
	}
}

func TestUpdateLocation(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	l, _ := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: "Garage"})

	got, err := store.UpdateLocation(ctx, l.ID, inventory.UpdateLocationParams{Name: strptr("Workshop")})
	if err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if got.Name != "Workshop" {
		t.Errorf("Name = %q, want Workshop", got.Name)
	}

	_, err = store.UpdateLocation(ctx, uuid.New(), inventory.UpdateLocationParams{Name: strptr("x")})
	requireNotFound(t, err, inventory.KindLocation)
}

func TestUpdateContainer(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	l, _ := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: "Garage"})
	c, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})

	// Assign, then rename without touching the assignment.
	got, err := store.UpdateContainer(ctx, c.ID, inventory.UpdateContainerParams{Location: &l.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.Location == nil || *got.Location != l.ID {
		t.Fatalf("Location = %v, want %s", got.Location, l.ID)
	}

	got, err = store.UpdateContainer(ctx, c.ID, inventory.UpdateContainerParams{Name: strptr("Shelf A")})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got.Name == nil || *got.Name != "Shelf A" {
		t.Errorf("Name = %v, want Shelf A", got.Name)
	}
	if got.Location == nil || *got.Location != l.ID {
		t.Errorf("rename cleared the location: %v", got.Location)
	}
	if got.Updated.Before(got.Created) {
		t.Errorf("Updated %v before Created %v", got.Updated, got.Created)
	}

	// Clearing detaches without deleting anything.
	got, err = store.UpdateContainer(ctx, c.ID, inventory.UpdateContainerParams{ClearLocation: true})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got.Location != nil {
		t.Errorf("Location = %v after clear, want nil", got.Location)
	}

	missing := uuid.New()
	_, err = store.UpdateContainer(ctx, c.ID, inventory.UpdateContainerParams{Location: &missing})
	requireNotFound(t, err, inventory.KindLocation)
}

func TestUpdateItem(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	c1, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	c2, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	i, _ := store.CreateItem(ctx, inventory.CreateItemParams{Name: "Hammer", Quantity: 2, Container: c1.ID})

	// Partial update touches only the named fields.
	got, err := store.UpdateItem(ctx, i.ID, inventory.UpdateItemParams{Quantity: i64ptr(5)})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if got.Quantity != 5 {
		t.Errorf("Quantity = %d, want 5", got.Quantity)
	}
	if got.Name != "Hammer" {
		t.Errorf("Name changed to %q", got.Name)
	}

	got, err = store.UpdateItem(ctx, i.ID, inventory.UpdateItemParams{Container: &c2.ID})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if got.Container != c2.ID {
		t.Errorf("Container = %s, want %s", got.Container, c2.ID)
	}

	missing := uuid.New()
	_, err = store.UpdateItem(ctx, i.ID, inventory.UpdateItemParams{Container: &missing})
	requireNotFound(t, err, inventory.KindContainer)

	_, err = store.UpdateItem(ctx, uuid.New(), inventory.UpdateItemParams{Name: strptr("x")})
	requireNotFound(t, err, inventory.KindItem)
}

func TestDeleteLocation_Guarded(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	l, _ := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: "Garage"})
	c, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{Location: &l.ID})

	err := store.DeleteLocation(ctx, l.ID, false)
	var ce *inventory.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("error: got %v, want ConflictError", err)
	}
	if ce.Dependents != 1 {
		t.Errorf("Dependents = %d, want 1", ce.Dependents)
	}

	// The refused delete left everything in place.
	if _, err := store.GetLocation(ctx, l.ID); err != nil {
		t.Errorf("location gone after refused delete: %v", err)
	}
	got, err := store.GetContainer(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetContainer: %v", err)
	}
	if got.Location == nil || *got.Location != l.ID {
		t.Errorf("container unassigned by refused delete: %v", got.Location)
	}
}

func TestDeleteLocation_CascadeUnassigns(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	l, _ := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: "Garage"})
	c, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{Location: &l.ID})
	i, _ := store.CreateItem(ctx, inventory.CreateItemParams{Name: "Hammer", Quantity: 2, Container: c.ID})

	if err := store.DeleteLocation(ctx, l.ID, true); err != nil {
		t.Fatalf("DeleteLocation: %v", err)
	}

	_, err := store.GetLocation(ctx, l.ID)
	requireNotFound(t, err, inventory.KindLocation)

	// The cascade detaches containers; it never deletes them or their items.
	got, err := store.GetContainer(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetContainer: %v", err)
	}
	if got.Location != nil {
		t.Errorf("Location = %v, want nil", got.Location)
	}
	if !got.Updated.After(c.Updated) {
		t.Errorf("Updated not refreshed by unassign: %v <= %v", got.Updated, c.Updated)
	}
	if _, err := store.GetItem(ctx, i.ID); err != nil {
		t.Errorf("item lost by location cascade: %v", err)
	}
}

func TestDeleteLocation_EmptyNoCascade(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	l, _ := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: "Garage"})
	if err := store.DeleteLocation(ctx, l.ID, false); err != nil {
		t.Fatalf("DeleteLocation: %v", err)
	}

	err := store.DeleteLocation(ctx, l.ID, false)
	requireNotFound(t, err, inventory.KindLocation)
}

func TestDeleteContainer_Guarded(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	c, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	for n := 0; n < 3; n++ {
		if _, err := store.CreateItem(ctx, inventory.CreateItemParams{
			Name: fmt.Sprintf("item %d", n), Quantity: 1, Container: c.ID,
		}); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}

	err := store.DeleteContainer(ctx, c.ID, false)
	var ce *inventory.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("error: got %v, want ConflictError", err)
	}
	if ce.Dependents != 3 {
		t.Errorf("Dependents = %d, want 3", ce.Dependents)
	}
	if _, err := store.GetContainer(ctx, c.ID); err != nil {
		t.Errorf("container gone after refused delete: %v", err)
	}
}

func TestDeleteContainer_CascadeDeletesItems(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	c, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	i, _ := store.CreateItem(ctx, inventory.CreateItemParams{Name: "Hammer", Quantity: 2, Container: c.ID})

	if err := store.DeleteContainer(ctx, c.ID, true); err != nil {
		t.Fatalf("DeleteContainer: %v", err)
	}

	_, err := store.GetContainer(ctx, c.ID)
	requireNotFound(t, err, inventory.KindContainer)
	_, err = store.GetItem(ctx, i.ID)
	requireNotFound(t, err, inventory.KindItem)
}

func TestDeleteItem(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	c, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	i, _ := store.CreateItem(ctx, inventory.CreateItemParams{Name: "Hammer", Quantity: 1, Container: c.ID})

	if err := store.DeleteItem(ctx, i.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	err := store.DeleteItem(ctx, i.ID)
	requireNotFound(t, err, inventory.KindItem)
}

func TestListLocations_OrderAndPagination(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	for _, name := range []string{"Garage", "Attic", "Workshop", "Basement", "Shed"} {
		if _, err := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: name}); err != nil {
			t.Fatalf("CreateLocation %s: %v", name, err)
		}
	}

	var names []string
	opts := ListOptions{Limit: 2}
	for {
		page, err := store.ListLocations(ctx, opts)
		if err != nil {
			t.Fatalf("ListLocations: %v", err)
		}
		for _, l := range page.Entities {
			names = append(names, l.Name)
		}
		if !page.HasMore {
			break
		}
		opts.Cursor = page.NextCursor
	}

	want := []string{"Attic", "Basement", "Garage", "Shed", "Workshop"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestListContainers_Filters(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	l, _ := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: "Garage"})
	assigned, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{Location: &l.ID})
	stray, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})

	page, err := store.ListContainers(ctx, ContainerFilter{Location: &l.ID}, ListOptions{})
	if err != nil {
		t.Fatalf("ListContainers by location: %v", err)
	}
	if len(page.Entities) != 1 || page.Entities[0].ID != assigned.ID {
		t.Errorf("location filter returned %+v", page.Entities)
	}

	page, err = store.ListContainers(ctx, ContainerFilter{Unassigned: true}, ListOptions{})
	if err != nil {
		t.Fatalf("ListContainers unassigned: %v", err)
	}
	if len(page.Entities) != 1 || page.Entities[0].ID != stray.ID {
		t.Errorf("unassigned filter returned %+v", page.Entities)
	}

	page, err = store.ListContainers(ctx, ContainerFilter{}, ListOptions{})
	if err != nil {
		t.Fatalf("ListContainers all: %v", err)
	}
	if len(page.Entities) != 2 {
		t.Errorf("unfiltered listing returned %d containers, want 2", len(page.Entities))
	}

	_, err = store.ListContainers(ctx, ContainerFilter{Location: &l.ID, Unassigned: true}, ListOptions{})
	var ve *inventory.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("conflicting filters: got %v, want ValidationError", err)
	}
}

func TestListItems_ByContainerAndPagination(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	c1, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	c2, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	for n := 0; n < 5; n++ {
		if _, err := store.CreateItem(ctx, inventory.CreateItemParams{
			Name: fmt.Sprintf("tool %d", n), Quantity: 1, Container: c1.ID,
		}); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}
	if _, err := store.CreateItem(ctx, inventory.CreateItemParams{Name: "other", Quantity: 1, Container: c2.ID}); err != nil {
		t.Fatalf("CreateItem other: %v", err)
	}

	seen := make(map[uuid.UUID]bool)
	opts := ListOptions{Limit: 2}
	for pages := 0; ; pages++ {
		if pages > 5 {
			t.Fatal("pagination did not terminate")
		}
		page, err := store.ListItems(ctx, ItemFilter{Container: &c1.ID}, opts)
		if err != nil {
			t.Fatalf("ListItems: %v", err)
		}
		for _, i := range page.Entities {
			if i.Container != c1.ID {
				t.Errorf("filter leaked item from %s", i.Container)
			}
			if seen[i.ID] {
				t.Fatalf("item %s returned twice", i.ID)
			}
			seen[i.ID] = true
		}
		if !page.HasMore {
			break
		}
		opts.Cursor = page.NextCursor
	}
	if len(seen) != 5 {
		t.Errorf("distinct items = %d, want 5", len(seen))
	}
}

func TestTotals(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	garage, _ := store.CreateLocation(ctx, inventory.CreateLocationParams{Name: "Garage"})
	shelf, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{Name: strptr("Shelf A"), Location: &garage.ID})
	if _, err := store.CreateItem(ctx, inventory.CreateItemParams{Name: "Hammer", Quantity: 2, Container: shelf.ID}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if _, err := store.CreateItem(ctx, inventory.CreateItemParams{Name: "Nails", Quantity: 500, Container: shelf.ID}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	ct, err := store.ContainerTotals(ctx, shelf.ID)
	if err != nil {
		t.Fatalf("ContainerTotals: %v", err)
	}
	if ct.ItemCount != 2 || ct.TotalQuantity != 502 {
		t.Errorf("ContainerTotals = %+v, want {2 502}", ct)
	}

	lt, err := store.LocationTotals(ctx, garage.ID)
	if err != nil {
		t.Fatalf("LocationTotals: %v", err)
	}
	if lt.ContainerCount != 1 || lt.ItemCount != 2 || lt.TotalQuantity != 502 {
		t.Errorf("LocationTotals = %+v, want {1 2 502}", lt)
	}
}

func TestTotals_EmptyAndMissing(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	c, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})
	ct, err := store.ContainerTotals(ctx, c.ID)
	if err != nil {
		t.Fatalf("ContainerTotals: %v", err)
	}
	if ct.ItemCount != 0 || ct.TotalQuantity != 0 {
		t.Errorf("empty ContainerTotals = %+v, want zeros", ct)
	}

	_, err = store.ContainerTotals(ctx, uuid.New())
	requireNotFound(t, err, inventory.KindContainer)
	_, err = store.LocationTotals(ctx, uuid.New())
	requireNotFound(t, err, inventory.KindLocation)
}

func TestDeleteContainer_ConcurrentOneWinner(t *testing.T) {
	store := freshStore(t)
	ctx := context.Background()

	c, _ := store.CreateContainer(ctx, inventory.CreateContainerParams{})

	const racers = 4
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for n := 0; n < racers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = store.DeleteContainer(ctx, c.ID, false)
		}(n)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var nf *inventory.NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("loser error = %v, want NotFoundError", err)
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}
