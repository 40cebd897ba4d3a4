package query

import (
	"encoding/json"
	"fmt"

	"github.com/homecrate/homecrate/internal/inventory"
)

// Field-selection schemas: the exact set of selectable fields per result
// type. Requests naming anything else are rejected up front instead of
// being silently ignored.
var (
	locationFields       = fieldSet("id", "name")
	containerFields      = fieldSet("id", "created", "updated", "name", "location")
	itemFields           = fieldSet("id", "created", "updated", "name", "description", "quantity", "container")
	containerTotalFields = fieldSet("itemCount", "totalQuantity")
	locationTotalFields  = fieldSet("containerCount", "itemCount", "totalQuantity")
)

func fieldSet(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func validateFields(requested []string, allowed map[string]struct{}, result string) error {
	for _, f := range requested {
		if _, ok := allowed[f]; !ok {
			return &inventory.ValidationError{
				Field:  "fields",
				Reason: fmt.Sprintf("%q is not a field of %s", f, result),
			}
		}
	}
	return nil
}

// shape projects one typed result onto the requested field set. The struct
// is flattened through its JSON tags; fields that are null on the entity
// are omitted rather than reported as explicit nulls. An empty selection
// returns every field.
func shape(v any, requested []string, allowed map[string]struct{}, result string) (map[string]any, error) {
	if err := validateFields(requested, allowed, result); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("shape %s: %w", result, err)
	}
	full := make(map[string]any)
	if err := json.Unmarshal(raw, &full); err != nil {
		return nil, fmt.Errorf("shape %s: %w", result, err)
	}
	if len(requested) == 0 {
		return full, nil
	}

	out := make(map[string]any, len(requested))
	for _, f := range requested {
		if val, ok := full[f]; ok {
			out[f] = val
		}
	}
	return out, nil
}

// shapeList applies the entity field selection to every element of a page
// and carries the pagination envelope through unchanged.
func shapeList[T any](entities []T, nextCursor string, hasMore bool, requested []string, allowed map[string]struct{}, result string) (map[string]any, error) {
	shaped := make([]map[string]any, 0, len(entities))
	for i := range entities {
		m, err := shape(&entities[i], requested, allowed, result)
		if err != nil {
			return nil, err
		}
		shaped = append(shaped, m)
	}
	out := map[string]any{"entities": shaped}
	if hasMore {
		out["nextCursor"] = nextCursor
		out["hasMore"] = true
	}
	return out, nil
}
