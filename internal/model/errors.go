package model

import (
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError indicates a referenced entity does not exist or is
// soft-deleted. Surfaced as 404 at the HTTP boundary.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %s", e.Entity, e.ID)
}

// InvalidRequestError indicates a semantic validation failure, such as
// an unresolvable agent id or an agent outside a task's compatibility
// set. Surfaced as 400 at the HTTP boundary.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string { return e.Message }

// ValidationError carries a field-to-message map for missing or blank
// required fields. Surfaced as 400 with the map in error details.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}
