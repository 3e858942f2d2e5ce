package hierarchy

import (
	"errors"

	"github.com/ammiranda/hierarchy_service/store"
)

// Error kinds surfaced by the mutation engine and traversal service. The
// access facade maps these to caller-visible outcomes; VersionConflict is the
// only kind callers are expected to routinely retry.
var (
	// ErrNodeNotFound is returned when the primary node of an operation
	// does not exist
	ErrNodeNotFound = errors.New("node not found")
	// ErrParentNotFound is returned when a parent or new-parent argument
	// does not resolve
	ErrParentNotFound = errors.New("parent node not found")
	// ErrSelfParent is returned when an operation would make a node its
	// own parent
	ErrSelfParent = errors.New("node cannot be its own parent")
	// ErrCycle is returned when a move would place a node under one of its
	// own descendants
	ErrCycle = errors.New("move would create a cycle")
	// ErrVersionConflict is returned on an optimistic version mismatch;
	// callers should re-read and retry
	ErrVersionConflict = errors.New("node was modified concurrently")
	// ErrInvalidArgument is returned for malformed input, rejected before
	// touching the store
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrHierarchyCorrupted is returned when a traversal detects a cycle or
	// dangling parent that should be structurally impossible. This is fatal
	// and indicates an invariant was violated by a prior buggy mutation or
	// an out-of-band data edit.
	ErrHierarchyCorrupted = errors.New("hierarchy corrupted")
)

// mapStoreErr translates store-level sentinels into engine error kinds.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNodeNotFound
	case errors.Is(err, store.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, store.ErrInvalidInput):
		return ErrInvalidArgument
	default:
		return err
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func isCorrupted(err error) bool {
	return errors.Is(err, ErrHierarchyCorrupted)
}
