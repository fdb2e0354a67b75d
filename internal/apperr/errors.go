// Package apperr defines sentinel errors shared across service layers.
package apperr

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a request that cannot apply to the entity's
	// current state.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists indicates a create or rename collided with an
	// existing entity.
	ErrAlreadyExists = errors.New("already exists")
)
