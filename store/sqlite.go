package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite, intended for local development.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore() *SQLiteStore {
	// Default to data directory in user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	dataDir := filepath.Join(homeDir, ".hierarchy_service")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		// Fallback to current directory if home directory is not accessible
		dataDir = "."
	}

	return &SQLiteStore{
		dbPath: filepath.Join(dataDir, "hierarchy.db"),
	}
}

// NewSQLiteStoreAt creates a SQLite store backed by the given file path.
// Useful for tests pointing at a temp directory.
func NewSQLiteStoreAt(dbPath string) *SQLiteStore {
	return &SQLiteStore{dbPath: dbPath}
}

// Initialize opens the database and creates the nodes table.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	db, err := sql.Open("sqlite3", s.dbPath+"?_foreign_keys=on")
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			parent_id INTEGER REFERENCES nodes(id),
			depth INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_nodes_parent_id ON nodes(parent_id);
	`)
	if err != nil {
		db.Close()
		return err
	}

	s.db = db
	return nil
}

// Cleanup closes the database connection
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get retrieves a node by ID
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Node, error) {
	return sqliteGet(ctx, s.db, id)
}

// Children returns the direct children of the given node, ordered by ID
func (s *SQLiteStore) Children(ctx context.Context, parentID int64) ([]*Node, error) {
	return sqliteSelect(ctx, s.db,
		"SELECT id, name, description, parent_id, depth, version, created_at, updated_at FROM nodes WHERE parent_id = ? ORDER BY id",
		parentID)
}

// Roots returns all nodes without a parent, ordered by ID
func (s *SQLiteStore) Roots(ctx context.Context) ([]*Node, error) {
	return sqliteSelect(ctx, s.db,
		"SELECT id, name, description, parent_id, depth, version, created_at, updated_at FROM nodes WHERE parent_id IS NULL ORDER BY id")
}

// Count returns the total number of nodes
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&count)
	return count, err
}

// RunInTx executes fn inside a single SQLite transaction.
func (s *SQLiteStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// sqliteQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqliteQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func sqliteGet(ctx context.Context, q sqliteQuerier, id int64) (*Node, error) {
	var node Node
	var parentID sql.NullInt64
	err := q.QueryRowContext(ctx,
		"SELECT id, name, description, parent_id, depth, version, created_at, updated_at FROM nodes WHERE id = ?",
		id,
	).Scan(&node.ID, &node.Name, &node.Description, &parentID, &node.Depth, &node.Version, &node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting node: %w", err)
	}
	if parentID.Valid {
		node.ParentID = &parentID.Int64
	}
	return &node, nil
}

func sqliteSelect(ctx context.Context, q sqliteQuerier, query string, args ...any) ([]*Node, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*Node
	for rows.Next() {
		var node Node
		var parentID sql.NullInt64
		if err := rows.Scan(&node.ID, &node.Name, &node.Description, &parentID, &node.Depth, &node.Version, &node.CreatedAt, &node.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning node: %w", err)
		}
		if parentID.Valid {
			node.ParentID = &parentID.Int64
		}
		nodes = append(nodes, &node)
	}
	return nodes, rows.Err()
}

// sqliteTx implements Tx over an open *sql.Tx.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Get(ctx context.Context, id int64) (*Node, error) {
	return sqliteGet(ctx, t.tx, id)
}

func (t *sqliteTx) Children(ctx context.Context, parentID int64) ([]*Node, error) {
	return sqliteSelect(ctx, t.tx,
		"SELECT id, name, description, parent_id, depth, version, created_at, updated_at FROM nodes WHERE parent_id = ? ORDER BY id",
		parentID)
}

func (t *sqliteTx) Roots(ctx context.Context) ([]*Node, error) {
	return sqliteSelect(ctx, t.tx,
		"SELECT id, name, description, parent_id, depth, version, created_at, updated_at FROM nodes WHERE parent_id IS NULL ORDER BY id")
}

func (t *sqliteTx) Count(ctx context.Context) (int64, error) {
	var count int64
	err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&count)
	return count, err
}

func (t *sqliteTx) Insert(ctx context.Context, node *Node) (*Node, error) {
	if node.Name == "" {
		return nil, ErrInvalidInput
	}
	if node.ParentID != nil {
		var exists bool
		if err := t.tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM nodes WHERE id = ?)", *node.ParentID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrInvalidParent
		}
	}

	result, err := t.tx.ExecContext(ctx,
		"INSERT INTO nodes (name, description, parent_id, depth, version) VALUES (?, ?, ?, ?, 0)",
		node.Name, node.Description, node.ParentID, node.Depth,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating node: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return sqliteGet(ctx, t.tx, id)
}

func (t *sqliteTx) Update(ctx context.Context, id, expectedVersion int64, mutate func(*Node)) (*Node, error) {
	node, err := sqliteGet(ctx, t.tx, id)
	if err != nil {
		return nil, err
	}
	if node.Version != expectedVersion {
		return nil, ErrVersionConflict
	}

	mutate(node)

	result, err := t.tx.ExecContext(ctx,
		"UPDATE nodes SET name = ?, description = ?, parent_id = ?, depth = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND version = ?",
		node.Name, node.Description, node.ParentID, node.Depth, id, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("error updating node: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrVersionConflict
	}
	return sqliteGet(ctx, t.tx, id)
}

func (t *sqliteTx) Delete(ctx context.Context, id int64) error {
	result, err := t.tx.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting node: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
