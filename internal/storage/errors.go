package storage

import "errors"

// ErrNotFound is returned when a requested entity does not exist or is
// soft-deleted.
var ErrNotFound = errors.New("storage: not found")
