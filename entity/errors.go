package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMissingDependency = errors.New("missing dependency")
	ErrDependencyFailed  = errors.New("dependency failed to initialize")
	ErrInvalidProperty   = errors.New("invalid property")
	ErrWorldUnavailable  = errors.New("world unavailable")
	ErrInvalidRoute      = errors.New("invalid route")
)

// InitError is a configuration failure attributed to one entity.
type InitError struct {
	Kind   string
	Entity string
	ID     uuid.UUID
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s %q: %v", e.Kind, e.Entity, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ReentrancyError is raised, as a panic, when an entity is asked to
// initialize while it is already initializing. It always indicates a
// dependency cycle in the authored scene.
type ReentrancyError struct {
	// Chain lists the entities from the detection point outwards.
	Chain []string
}

func (e *ReentrancyError) Error() string {
	path := make([]string, len(e.Chain))
	for i, name := range e.Chain {
		path[len(e.Chain)-1-i] = name
	}
	return "reentrant initialization: " + strings.Join(path, " -> ")
}

// Fatal marks the panic as non-recoverable for native.Try.
func (e *ReentrancyError) Fatal() {}
