package query

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homecrate/homecrate/internal/inventory"
)

func TestShapeFullWhenNoSelection(t *testing.T) {
	now := time.Now().UTC()
	name := "Shelf A"
	loc := uuid.New()
	c := inventory.Container{ID: uuid.New(), Created: now, Updated: now, Name: &name, Location: &loc}

	out, err := shape(c, nil, containerFields, "container")
	if err != nil {
		t.Fatalf("shape: %v", err)
	}
	for _, f := range []string{"id", "created", "updated", "name", "location"} {
		if _, ok := out[f]; !ok {
			t.Errorf("missing field %q in %v", f, out)
		}
	}
}

func TestShapeOmitsNulls(t *testing.T) {
	now := time.Now().UTC()
	c := inventory.Container{ID: uuid.New(), Created: now, Updated: now}

	out, err := shape(c, nil, containerFields, "container")
	if err != nil {
		t.Fatalf("shape: %v", err)
	}
	if _, ok := out["name"]; ok {
		t.Errorf("nil name present: %v", out)
	}
	if _, ok := out["location"]; ok {
		t.Errorf("nil location present: %v", out)
	}
}

func TestShapeSelection(t *testing.T) {
	l := inventory.Location{ID: uuid.New(), Name: "Garage"}

	out, err := shape(l, []string{"name"}, locationFields, "location")
	if err != nil {
		t.Fatalf("shape: %v", err)
	}
	if len(out) != 1 || out["name"] != "Garage" {
		t.Errorf("selection: got %v, want only name", out)
	}
}

func TestShapeRejectsUnknownField(t *testing.T) {
	l := inventory.Location{ID: uuid.New(), Name: "Garage"}

	_, err := shape(l, []string{"owner"}, locationFields, "location")
	if err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestShapeListEnvelope(t *testing.T) {
	items := []inventory.Location{
		{ID: uuid.New(), Name: "Garage"},
		{ID: uuid.New(), Name: "Attic"},
	}

	out, err := shapeList(items, "", false, nil, locationFields, "location")
	if err != nil {
		t.Fatalf("shapeList: %v", err)
	}
	if len(out["entities"].([]map[string]any)) != 2 {
		t.Errorf("entities: got %v", out["entities"])
	}
	if _, ok := out["nextCursor"]; ok {
		t.Errorf("cursor present on final page: %v", out)
	}

	out, err = shapeList(items, "abc", true, nil, locationFields, "location")
	if err != nil {
		t.Fatalf("shapeList: %v", err)
	}
	if out["nextCursor"] != "abc" || out["hasMore"] != true {
		t.Errorf("pagination envelope: got %v", out)
	}
}

func TestShapeListEmpty(t *testing.T) {
	out, err := shapeList([]inventory.Item{}, "", false, nil, itemFields, "item")
	if err != nil {
		t.Fatalf("shapeList: %v", err)
	}
	entities := out["entities"].([]map[string]any)
	if entities == nil || len(entities) != 0 {
		t.Errorf("entities: got %v, want empty non-nil slice", entities)
	}
}
