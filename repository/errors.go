package repository

import "fmt"

var (
	// ErrNotFound is returned when no object exists for the given key in the
	// underlying store.
	ErrNotFound = fmt.Errorf("artifact data not found")
)
