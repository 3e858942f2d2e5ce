package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. It backs tests and the
// memory driver for local development. A single RWMutex serializes
// transactions; RunInTx snapshots the table so a failed transaction rolls
// back cleanly.
type MemoryStore struct {
	mu     sync.RWMutex
	nodes  map[int64]*Node
	nextID int64
	now    func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:  make(map[int64]*Node),
		nextID: 1,
		now:    time.Now,
	}
}

// Initialize performs any necessary setup.
func (m *MemoryStore) Initialize(ctx context.Context) error {
	return nil
}

// Cleanup drops all nodes.
func (m *MemoryStore) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[int64]*Node)
	m.nextID = 1
	return nil
}

// Get retrieves a node by ID.
func (m *MemoryStore) Get(ctx context.Context, id int64) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.get(id)
}

// Children returns the direct children of the given node, ordered by ID.
func (m *MemoryStore) Children(ctx context.Context, parentID int64) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.children(parentID), nil
}

// Roots returns all nodes without a parent, ordered by ID.
func (m *MemoryStore) Roots(ctx context.Context) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roots(), nil
}

// Count returns the total number of nodes.
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.nodes)), nil
}

// RunInTx executes fn under the store-wide write lock. The node table is
// snapshotted first; if fn fails the snapshot is restored, so partial writes
// never become visible.
func (m *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[int64]*Node, len(m.nodes))
	for id, node := range m.nodes {
		snapshot[id] = node.Clone()
	}
	snapshotNextID := m.nextID

	if err := fn(&memoryTx{store: m}); err != nil {
		m.nodes = snapshot
		m.nextID = snapshotNextID
		return err
	}
	return nil
}

// get assumes the lock is held.
func (m *MemoryStore) get(id int64) (*Node, error) {
	node, ok := m.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return node.Clone(), nil
}

// children assumes the lock is held.
func (m *MemoryStore) children(parentID int64) []*Node {
	var result []*Node
	for _, node := range m.nodes {
		if node.ParentID != nil && *node.ParentID == parentID {
			result = append(result, node.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// roots assumes the lock is held.
func (m *MemoryStore) roots() []*Node {
	var result []*Node
	for _, node := range m.nodes {
		if node.ParentID == nil {
			result = append(result, node.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// memoryTx operates directly on the store's table while RunInTx holds the
// write lock. Rollback is handled by RunInTx's snapshot.
type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) Get(ctx context.Context, id int64) (*Node, error) {
	return t.store.get(id)
}

func (t *memoryTx) Children(ctx context.Context, parentID int64) ([]*Node, error) {
	return t.store.children(parentID), nil
}

func (t *memoryTx) Roots(ctx context.Context) ([]*Node, error) {
	return t.store.roots(), nil
}

func (t *memoryTx) Count(ctx context.Context) (int64, error) {
	return int64(len(t.store.nodes)), nil
}

func (t *memoryTx) Insert(ctx context.Context, node *Node) (*Node, error) {
	if node.Name == "" {
		return nil, ErrInvalidInput
	}
	if node.ParentID != nil {
		if _, ok := t.store.nodes[*node.ParentID]; !ok {
			return nil, ErrInvalidParent
		}
	}

	now := t.store.now()
	stored := node.Clone()
	stored.ID = t.store.nextID
	stored.Version = 0
	stored.CreatedAt = now
	stored.UpdatedAt = now
	t.store.nextID++
	t.store.nodes[stored.ID] = stored

	return stored.Clone(), nil
}

func (t *memoryTx) Update(ctx context.Context, id, expectedVersion int64, mutate func(*Node)) (*Node, error) {
	node, ok := t.store.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	if node.Version != expectedVersion {
		return nil, ErrVersionConflict
	}

	updated := node.Clone()
	mutate(updated)
	// ID, Version and timestamps are store-managed; undo any tampering.
	updated.ID = node.ID
	updated.CreatedAt = node.CreatedAt
	updated.Version = node.Version + 1
	updated.UpdatedAt = t.store.now()
	t.store.nodes[id] = updated

	return updated.Clone(), nil
}

func (t *memoryTx) Delete(ctx context.Context, id int64) error {
	if _, ok := t.store.nodes[id]; !ok {
		return ErrNotFound
	}
	delete(t.store.nodes, id)
	return nil
}
