package hierarchy

import (
	"context"
	"errors"
	"strings"

	"github.com/ammiranda/hierarchy_service/models"
	"github.com/ammiranda/hierarchy_service/store"

	"go.uber.org/zap"
)

// Engine implements the structural mutations of the hierarchy: create-root,
// create-child, move-subtree, delete-with-promotion and rename. Every
// mutation that touches more than one node runs inside a single store
// transaction, and cycle/depth validation is performed against the state
// seen by that transaction, never a pre-transaction snapshot.
//
// The engine is synchronous and stateless between calls; concurrency comes
// entirely from external callers, coordinated through the store's
// transactions and per-node optimistic versions.
type Engine struct {
	store store.Store
	log   *zap.Logger
}

// NewEngine creates a new mutation engine over the given store.
func NewEngine(s store.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: s, log: log}
}

// CreateRoot creates a new root node (no parent, depth 0).
func (e *Engine) CreateRoot(ctx context.Context, name, description string) (*models.Node, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidArgument
	}

	var created *models.Node
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		inserted, err := tx.Insert(ctx, &store.Node{
			Name:        name,
			Description: description,
			Depth:       0,
		})
		if err != nil {
			return mapStoreErr(err)
		}
		created = models.NewNode(inserted, nil, 0)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("created root node", zap.Int64("id", created.ID), zap.String("name", name))
	return created, nil
}

// CreateChild creates a new node under parentID with depth parent.Depth + 1.
func (e *Engine) CreateChild(ctx context.Context, parentID int64, name, description string) (*models.Node, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidArgument
	}
	if parentID <= 0 {
		return nil, ErrInvalidArgument
	}

	var created *models.Node
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		parent, err := tx.Get(ctx, parentID)
		if err != nil {
			if isNotFound(err) {
				return ErrParentNotFound
			}
			return err
		}

		inserted, err := tx.Insert(ctx, &store.Node{
			Name:        name,
			Description: description,
			ParentID:    &parent.ID,
			Depth:       parent.Depth + 1,
		})
		if err != nil {
			if errors.Is(err, store.ErrInvalidParent) {
				return ErrParentNotFound
			}
			return mapStoreErr(err)
		}

		chain, err := ancestors(ctx, tx, inserted)
		if err != nil {
			return err
		}
		created = models.NewNode(inserted, chain, 0)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("created child node",
		zap.Int64("id", created.ID),
		zap.Int64("parentId", parentID),
		zap.Int("depth", created.Depth))
	return created, nil
}

// Get returns the caller-visible view of a single node.
func (e *Engine) Get(ctx context.Context, nodeID int64) (*models.Node, error) {
	if nodeID <= 0 {
		return nil, ErrInvalidArgument
	}

	node, err := e.store.Get(ctx, nodeID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return e.view(ctx, e.store, node)
}

// Rename updates a node's name and optionally its description, guarded by
// the version the caller last observed. A stale version yields
// ErrVersionConflict; the caller is expected to re-read and retry.
func (e *Engine) Rename(ctx context.Context, nodeID, expectedVersion int64, name string, description *string) (*models.Node, error) {
	if nodeID <= 0 || strings.TrimSpace(name) == "" {
		return nil, ErrInvalidArgument
	}

	var updated *models.Node
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		node, err := tx.Update(ctx, nodeID, expectedVersion, func(n *store.Node) {
			n.Name = name
			if description != nil {
				n.Description = *description
			}
		})
		if err != nil {
			return mapStoreErr(err)
		}
		updated, err = e.view(ctx, tx, node)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Move re-parents nodeID (and implicitly its entire subtree) under
// newParentID, or promotes it to root when newParentID is nil. The cached
// depths of the node and every descendant are repaired in the same
// transaction, so no reader ever observes a half-moved subtree.
//
// Moving an already-root node to nil parent is an idempotent no-op.
func (e *Engine) Move(ctx context.Context, nodeID int64, newParentID *int64) (*models.Node, error) {
	if nodeID <= 0 || (newParentID != nil && *newParentID <= 0) {
		return nil, ErrInvalidArgument
	}
	if newParentID != nil && *newParentID == nodeID {
		return nil, ErrSelfParent
	}

	var moved *models.Node
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		node, err := tx.Get(ctx, nodeID)
		if err != nil {
			if isNotFound(err) {
				return ErrNodeNotFound
			}
			return err
		}

		if newParentID == nil && node.ParentID == nil {
			// Already a root; nothing to do.
			moved, err = e.view(ctx, tx, node)
			return err
		}

		newDepth := 0
		if newParentID != nil {
			newParent, err := tx.Get(ctx, *newParentID)
			if err != nil {
				if isNotFound(err) {
					return ErrParentNotFound
				}
				return err
			}
			newDepth = newParent.Depth + 1
		}

		// The subtree is enumerated inside the transaction both for the
		// cycle check and for the depth repair below.
		subtree, err := descendants(ctx, tx, nodeID)
		if err != nil {
			return err
		}
		if newParentID != nil {
			for _, d := range subtree {
				if d.ID == *newParentID {
					return ErrCycle
				}
			}
		}

		depthDelta := newDepth - node.Depth

		updated, err := tx.Update(ctx, node.ID, node.Version, func(n *store.Node) {
			n.ParentID = newParentID
			n.Depth += depthDelta
		})
		if err != nil {
			return mapStoreErr(err)
		}

		if depthDelta != 0 {
			for _, d := range subtree {
				if _, err := tx.Update(ctx, d.ID, d.Version, func(n *store.Node) {
					n.Depth += depthDelta
				}); err != nil {
					return mapStoreErr(err)
				}
			}
		}

		moved, err = e.view(ctx, tx, updated)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("moved subtree",
		zap.Int64("id", nodeID),
		zap.Any("newParentId", newParentID),
		zap.Int("depth", moved.Depth))
	return moved, nil
}

// Delete removes exactly one node and promotes its direct children to the
// deleted node's own parent, repairing cached depths across each promoted
// subtree by -1. Deleting a root with children turns those children into new
// roots. The children themselves are never deleted or orphaned.
func (e *Engine) Delete(ctx context.Context, nodeID int64) error {
	if nodeID <= 0 {
		return ErrInvalidArgument
	}

	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		node, err := tx.Get(ctx, nodeID)
		if err != nil {
			if isNotFound(err) {
				return ErrNodeNotFound
			}
			return err
		}

		subtree, err := descendants(ctx, tx, nodeID)
		if err != nil {
			return err
		}

		// Direct children skip the deleted level: they take the deleted
		// node's parent, and every node in the subtree loses one level of
		// depth.
		for _, d := range subtree {
			directChild := d.ParentID != nil && *d.ParentID == nodeID
			if _, err := tx.Update(ctx, d.ID, d.Version, func(n *store.Node) {
				if directChild {
					n.ParentID = node.ParentID
				}
				n.Depth--
			}); err != nil {
				return mapStoreErr(err)
			}
		}

		if err := tx.Delete(ctx, nodeID); err != nil {
			return mapStoreErr(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info("deleted node with child promotion", zap.Int64("id", nodeID))
	return nil
}

// view assembles the caller-visible node shape from the given reader (either
// the store for autocommit reads or an open transaction).
func (e *Engine) view(ctx context.Context, r store.Reader, node *store.Node) (*models.Node, error) {
	chain, err := ancestors(ctx, r, node)
	if err != nil {
		if isCorrupted(err) {
			e.log.Error("hierarchy corruption detected while building node view",
				zap.Int64("nodeId", node.ID),
				zap.Error(err))
		}
		return nil, err
	}
	children, err := r.Children(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	return models.NewNode(node, chain, len(children)), nil
}
