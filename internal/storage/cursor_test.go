package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homecrate/homecrate/internal/inventory"
)

func TestCursorRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 30, 0, 123456000, time.UTC)
	orig := &Cursor{Created: &created, ID: uuid.New()}

	got, err := DecodeCursor(orig.Encode())
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if !got.Created.Equal(created) {
		t.Errorf("Created: got %v, want %v", got.Created, created)
	}
	if got.ID != orig.ID {
		t.Errorf("ID: got %s, want %s", got.ID, orig.ID)
	}
}

func TestCursorRoundTripNameVariant(t *testing.T) {
	orig := &Cursor{Name: "Garage", ID: uuid.New()}

	got, err := DecodeCursor(orig.Encode())
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if got.Name != "Garage" {
		t.Errorf("Name: got %q, want %q", got.Name, "Garage")
	}
	if got.Created != nil {
		t.Errorf("Created: got %v, want nil", got.Created)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, input := range []string{"%%%not-base64%%%", "bm90IGpzb24="} {
		_, err := DecodeCursor(input)
		if err == nil {
			t.Fatalf("DecodeCursor(%q): expected error", input)
		}
		var ve *inventory.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("error type %T, want *inventory.ValidationError", err)
		}
	}
}
