package store

import (
	"context"
	"errors"
	"time"
)

// Node is the persisted hierarchy record. Depth and Version are maintained by
// callers (the mutation engine); the store only persists them and enforces
// referential integrity on ParentID.
type Node struct {
	ID          int64      // Unique identifier, assigned by the store
	Name        string     // Display name of the workgroup/unit
	Description string     // Optional free text
	ParentID    *int64     // Reference to the parent node; nil means root
	Depth       int        // Cached distance from the nearest root
	Version     int64      // Optimistic concurrency counter
	CreatedAt   time.Time  // Set by the store on insert
	UpdatedAt   time.Time  // Refreshed by the store on every update
}

// Clone returns a copy of the node with an independent ParentID pointer.
func (n *Node) Clone() *Node {
	c := *n
	if n.ParentID != nil {
		pid := *n.ParentID
		c.ParentID = &pid
	}
	return &c
}

// Reader is the read-only view of the node store. It is implemented both by
// Store (autocommit reads) and by Tx (reads inside a transaction), so
// traversal code can run against either.
type Reader interface {
	// Get retrieves a node by ID. Returns ErrNotFound if no node exists
	// with the given ID.
	Get(ctx context.Context, id int64) (*Node, error)

	// Children returns the direct children of the given node, ordered by ID.
	Children(ctx context.Context, parentID int64) ([]*Node, error)

	// Roots returns all nodes with a nil ParentID, ordered by ID.
	Roots(ctx context.Context) ([]*Node, error)

	// Count returns the total number of nodes.
	Count(ctx context.Context) (int64, error)
}

// Tx is a transactional handle over the store. All writes issued through a Tx
// become visible together on commit or not at all.
type Tx interface {
	Reader

	// Insert persists a new node. The store assigns ID, CreatedAt, UpdatedAt
	// and Version = 0; Name, Description, ParentID and Depth are taken from
	// the argument. Returns ErrInvalidParent if ParentID is non-nil and does
	// not resolve to an existing node.
	Insert(ctx context.Context, node *Node) (*Node, error)

	// Update applies mutate to the stored node only if its current version
	// equals expectedVersion; otherwise it fails with ErrVersionConflict.
	// On success the version is incremented and UpdatedAt refreshed.
	// Returns ErrNotFound if the node does not exist.
	Update(ctx context.Context, id, expectedVersion int64, mutate func(*Node)) (*Node, error)

	// Delete removes exactly one node. It does not touch children; callers
	// must re-parent them first. Returns ErrNotFound if the node does not
	// exist.
	Delete(ctx context.Context, id int64) error
}

// Store defines the interface for durable node persistence. It is a dumb
// transactional key-value layer keyed by ID with one supporting index on
// ParentID; cross-node invariants (depth correctness, acyclicity) are the
// mutation engine's job.
type Store interface {
	Reader

	// Initialize performs any setup the backend needs (connections, schema).
	Initialize(ctx context.Context) error

	// Cleanup releases backend resources.
	Cleanup(ctx context.Context) error

	// RunInTx executes fn inside a single transaction. If fn returns an
	// error the transaction is rolled back and the error returned.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Common errors
var (
	// ErrNotFound is returned when a requested node does not exist
	ErrNotFound = errors.New("node not found")
	// ErrInvalidParent is returned when an inserted node references a
	// non-existent parent
	ErrInvalidParent = errors.New("parent node does not exist")
	// ErrVersionConflict is returned when an optimistic update observes a
	// stale version
	ErrVersionConflict = errors.New("node version conflict")
	// ErrInvalidInput is returned when the input parameters are invalid
	ErrInvalidInput = errors.New("invalid input")
)
