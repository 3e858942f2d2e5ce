package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	s := NewSQLiteStoreAt(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() {
		if err := s.Cleanup(context.Background()); err != nil {
			t.Errorf("Failed to cleanup store: %v", err)
		}
	})
	return s
}

func sqliteInsert(t *testing.T, s *SQLiteStore, name string, parentID *int64, depth int) *Node {
	t.Helper()
	var created *Node
	err := s.RunInTx(context.Background(), func(tx Tx) error {
		var err error
		created, err = tx.Insert(context.Background(), &Node{
			Name:     name,
			ParentID: parentID,
			Depth:    depth,
		})
		return err
	})
	require.NoError(t, err)
	return created
}

func TestSQLiteInsertAndGet(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	root := sqliteInsert(t, s, "root", nil, 0)
	assert.Equal(t, int64(0), root.Version)
	assert.Nil(t, root.ParentID)
	assert.False(t, root.CreatedAt.IsZero())

	child := sqliteInsert(t, s, "child", &root.ID, 1)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)

	got, err := s.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "child", got.Name)
	assert.Equal(t, 1, got.Depth)

	_, err = s.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteInsertValidation(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	err := s.RunInTx(ctx, func(tx Tx) error {
		_, err := tx.Insert(ctx, &Node{Name: ""})
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	missing := int64(77)
	err = s.RunInTx(ctx, func(tx Tx) error {
		_, err := tx.Insert(ctx, &Node{Name: "orphan", ParentID: &missing})
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidParent)
}

func TestSQLiteChildrenRootsCount(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	r1 := sqliteInsert(t, s, "r1", nil, 0)
	r2 := sqliteInsert(t, s, "r2", nil, 0)
	c1 := sqliteInsert(t, s, "c1", &r1.ID, 1)
	c2 := sqliteInsert(t, s, "c2", &r1.ID, 1)

	roots, err := s.Roots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, r1.ID, roots[0].ID)
	assert.Equal(t, r2.ID, roots[1].ID)

	children, err := s.Children(ctx, r1.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, c1.ID, children[0].ID)
	assert.Equal(t, c2.ID, children[1].ID)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestSQLiteUpdateVersioning(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	node := sqliteInsert(t, s, "before", nil, 0)

	var updated *Node
	err := s.RunInTx(ctx, func(tx Tx) error {
		var err error
		updated, err = tx.Update(ctx, node.ID, node.Version, func(n *Node) {
			n.Name = "after"
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, int64(1), updated.Version)

	// Stale version is rejected
	err = s.RunInTx(ctx, func(tx Tx) error {
		_, err := tx.Update(ctx, node.ID, node.Version, func(n *Node) {
			n.Name = "stale"
		})
		return err
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := s.Get(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
}

func TestSQLiteDelete(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	node := sqliteInsert(t, s, "doomed", nil, 0)

	err := s.RunInTx(ctx, func(tx Tx) error {
		return tx.Delete(ctx, node.ID)
	})
	require.NoError(t, err)

	_, err = s.Get(ctx, node.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.RunInTx(ctx, func(tx Tx) error {
		return tx.Delete(ctx, node.ID)
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRunInTxRollsBack(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	keeper := sqliteInsert(t, s, "keeper", nil, 0)

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(tx Tx) error {
		if _, err := tx.Insert(ctx, &Node{Name: "ghost"}); err != nil {
			return err
		}
		if _, err := tx.Update(ctx, keeper.ID, keeper.Version, func(n *Node) {
			n.Name = "renamed"
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := s.Get(ctx, keeper.ID)
	require.NoError(t, err)
	assert.Equal(t, "keeper", got.Name)
	assert.Equal(t, int64(0), got.Version)
}
