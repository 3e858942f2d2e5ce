package hierarchy

import (
	"context"
	"fmt"

	"github.com/ammiranda/hierarchy_service/store"

	"go.uber.org/zap"
)

// Traversal provides read-only derived views over the node store: ancestor
// paths, descendant subtrees, direct children and breadcrumbs. Traversals
// never mutate and may run against a stale-but-consistent snapshot; the
// mutation engine reuses the same walk functions against its own transaction.
type Traversal struct {
	store store.Store
	log   *zap.Logger
}

// NewTraversal creates a new traversal service over the given store.
func NewTraversal(s store.Store, log *zap.Logger) *Traversal {
	return &Traversal{store: s, log: log}
}

// Ancestors returns the ancestor chain of the given node, root first,
// immediate parent last, exclusive of the node itself.
func (t *Traversal) Ancestors(ctx context.Context, nodeID int64) ([]*store.Node, error) {
	node, err := t.store.Get(ctx, nodeID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	chain, err := ancestors(ctx, t.store, node)
	if err != nil {
		t.logCorruption(nodeID, err)
		return nil, err
	}
	return chain, nil
}

// Descendants returns every node reachable from nodeID by repeatedly
// following children, exclusive of the node itself. Order is not defined.
func (t *Traversal) Descendants(ctx context.Context, nodeID int64) ([]*store.Node, error) {
	if _, err := t.store.Get(ctx, nodeID); err != nil {
		return nil, mapStoreErr(err)
	}
	desc, err := descendants(ctx, t.store, nodeID)
	if err != nil {
		t.logCorruption(nodeID, err)
		return nil, err
	}
	return desc, nil
}

// Children returns the direct children of the given node.
func (t *Traversal) Children(ctx context.Context, nodeID int64) ([]*store.Node, error) {
	if _, err := t.store.Get(ctx, nodeID); err != nil {
		return nil, mapStoreErr(err)
	}
	return t.store.Children(ctx, nodeID)
}

// Roots returns all root nodes.
func (t *Traversal) Roots(ctx context.Context) ([]*store.Node, error) {
	return t.store.Roots(ctx)
}

// Breadcrumb returns the full display path of the node: its ancestors, root
// first, followed by the node itself.
func (t *Traversal) Breadcrumb(ctx context.Context, nodeID int64) ([]*store.Node, error) {
	node, err := t.store.Get(ctx, nodeID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	chain, err := ancestors(ctx, t.store, node)
	if err != nil {
		t.logCorruption(nodeID, err)
		return nil, err
	}
	return append(chain, node), nil
}

func (t *Traversal) logCorruption(nodeID int64, err error) {
	if t.log != nil && isCorrupted(err) {
		t.log.Error("hierarchy corruption detected during traversal",
			zap.Int64("nodeId", nodeID),
			zap.Error(err))
	}
}

// ancestors walks ParentID pointers upward from node (exclusive) until a
// root. The walk is bounded by the total node count plus one as a safety
// fuse: exceeding the bound, or hitting a dangling parent reference, means a
// prior mutation violated an invariant and yields ErrHierarchyCorrupted
// rather than looping forever.
func ancestors(ctx context.Context, r store.Reader, node *store.Node) ([]*store.Node, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}

	var chain []*store.Node
	current := node
	for steps := int64(0); current.ParentID != nil; steps++ {
		if steps > total {
			return nil, fmt.Errorf("%w: parent chain of node %d exceeds %d steps", ErrHierarchyCorrupted, node.ID, total)
		}
		parent, err := r.Get(ctx, *current.ParentID)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: node %d references missing parent %d", ErrHierarchyCorrupted, current.ID, *current.ParentID)
			}
			return nil, err
		}
		chain = append(chain, parent)
		current = parent
	}

	// Reverse to root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// descendants enumerates the subtree below nodeID (exclusive) with an
// explicit worklist rather than recursion, so pathologically deep
// hierarchies cannot exhaust the stack. The expansion is bounded by the
// total node count as a corruption fuse.
func descendants(ctx context.Context, r store.Reader, nodeID int64) ([]*store.Node, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}

	var result []*store.Node
	queue := []int64{nodeID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := r.Children(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			result = append(result, child)
			queue = append(queue, child.ID)
		}
		if int64(len(result)) > total {
			return nil, fmt.Errorf("%w: subtree of node %d exceeds %d nodes", ErrHierarchyCorrupted, nodeID, total)
		}
	}
	return result, nil
}
