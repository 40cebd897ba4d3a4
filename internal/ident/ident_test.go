package ident

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/homecrate/homecrate/internal/inventory"
)

func TestNewUnique(t *testing.T) {
	seen := make(map[uuid.UUID]bool, 10000)
	for i := 0; i < 10000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id after %d draws: %s", i, id)
		}
		seen[id] = true
	}
}

func TestNewNeverZero(t *testing.T) {
	for i := 0; i < 100; i++ {
		if New() == uuid.Nil {
			t.Fatal("New returned the zero id")
		}
	}
}

func TestParse(t *testing.T) {
	id := New()

	got, err := Parse("id", id.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", id, err)
	}
	if got != id {
		t.Errorf("Parse: got %s, want %s", got, id)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"garbage", "not-an-id"},
		{"zero id", uuid.Nil.String()},
		{"truncated", New().String()[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("container", tt.input)
			if err == nil {
				t.Fatalf("Parse(%q): expected error", tt.input)
			}
			var ve *inventory.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error type %T, want *inventory.ValidationError", err)
			}
			if ve.Field != "container" {
				t.Errorf("Field: got %q, want %q", ve.Field, "container")
			}
		})
	}
}
