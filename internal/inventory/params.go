package inventory

import "github.com/google/uuid"

// CreateLocationParams carries the fields for a new location.
type CreateLocationParams struct {
	Name string
}

func (p CreateLocationParams) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return nil
}

// CreateContainerParams carries the fields for a new container. Both fields
// are optional; Location, if set, must reference a live location.
type CreateContainerParams struct {
	Name     *string
	Location *uuid.UUID
}

func (p CreateContainerParams) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty when supplied"}
	}
	return nil
}

// CreateItemParams carries the fields for a new item. Container is mandatory.
type CreateItemParams struct {
	Name        string
	Description *string
	Quantity    int64
	Container   uuid.UUID
}

func (p CreateItemParams) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.Quantity < 0 {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if p.Container == uuid.Nil {
		return &ValidationError{Field: "container", Reason: "is required"}
	}
	return nil
}

// UpdateLocationParams holds the mutable location fields. Nil means
// "leave unchanged".
type UpdateLocationParams struct {
	Name *string
}

func (p UpdateLocationParams) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return nil
}

// UpdateContainerParams holds the mutable container fields. Nil means
// "leave unchanged"; ClearLocation unassigns the container and is mutually
// exclusive with Location.
type UpdateContainerParams struct {
	Name          *string
	Location      *uuid.UUID
	ClearLocation bool
}

func (p UpdateContainerParams) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty when supplied"}
	}
	if p.ClearLocation && p.Location != nil {
		return &ValidationError{Field: "location", Reason: "cannot both set and clear"}
	}
	return nil
}

// UpdateItemParams holds the mutable item fields. Nil means "leave unchanged".
type UpdateItemParams struct {
	Name        *string
	Description *string
	Quantity    *int64
	Container   *uuid.UUID
}

func (p UpdateItemParams) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if p.Container != nil && *p.Container == uuid.Nil {
		return &ValidationError{Field: "container", Reason: "must not be the zero id"}
	}
	return nil
}
