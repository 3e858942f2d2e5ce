package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ammiranda/hierarchy_service/config"
	"github.com/ammiranda/hierarchy_service/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	config *config.DatabaseConfig
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(cfgProvider config.Provider) (*PostgresStore, error) {
	ctx := context.Background()
	cfg, err := config.GetDatabaseConfig(ctx, cfgProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to get database config: %w", err)
	}

	return &PostgresStore{
		config: cfg,
	}, nil
}

// Initialize opens the connection pool and runs schema migrations.
func (s *PostgresStore) Initialize(ctx context.Context) error {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.config.Host,
		s.config.Port,
		s.config.User,
		s.config.Password,
		s.config.DBName,
		s.config.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error pinging database: %w", err)
	}

	if err := s.runMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("error running migrations: %w", err)
	}

	s.db = db
	return nil
}

// runMigrations applies the embedded schema migrations.
func (s *PostgresStore) runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	src, err := migrations.Source()
	if err != nil {
		return fmt.Errorf("error loading migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("error running migrations: %w", err)
	}

	return nil
}

// Cleanup closes the database connection
func (s *PostgresStore) Cleanup(ctx context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get retrieves a node by ID
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Node, error) {
	return pgGet(ctx, s.db, id)
}

// Children returns the direct children of the given node, ordered by ID
func (s *PostgresStore) Children(ctx context.Context, parentID int64) ([]*Node, error) {
	return pgSelect(ctx, s.db,
		"SELECT id, name, description, parent_id, depth, version, created_at, updated_at FROM nodes WHERE parent_id = $1 ORDER BY id",
		parentID)
}

// Roots returns all nodes without a parent, ordered by ID
func (s *PostgresStore) Roots(ctx context.Context) ([]*Node, error) {
	return pgSelect(ctx, s.db,
		"SELECT id, name, description, parent_id, depth, version, created_at, updated_at FROM nodes WHERE parent_id IS NULL ORDER BY id")
}

// Count returns the total number of nodes
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&count)
	return count, err
}

// RunInTx executes fn inside a single database transaction. Rows touched by
// the mutation engine are read back with FOR UPDATE, so two overlapping
// subtree mutations serialize instead of both committing against stale state.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// pgQuerier is satisfied by both *sql.DB and *sql.Tx.
type pgQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func pgGet(ctx context.Context, q pgQuerier, id int64) (*Node, error) {
	return pgGetWith(ctx, q, id, "")
}

func pgGetWith(ctx context.Context, q pgQuerier, id int64, suffix string) (*Node, error) {
	var node Node
	var parentID sql.NullInt64
	err := q.QueryRowContext(ctx,
		"SELECT id, name, description, parent_id, depth, version, created_at, updated_at FROM nodes WHERE id = $1"+suffix,
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

func pgSelect(ctx context.Context, q pgQuerier, query string, args ...any) ([]*Node, error) {
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return nodes, nil
}

// pgTx implements Tx over an open *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) Get(ctx context.Context, id int64) (*Node, error) {
	return pgGet(ctx, t.tx, id)
}

func (t *pgTx) Children(ctx context.Context, parentID int64) ([]*Node, error) {
	return pgSelect(ctx, t.tx,
		"SELECT id, name, description, parent_id, depth, version, created_at, updated_at FROM nodes WHERE parent_id = $1 ORDER BY id",
		parentID)
}

func (t *pgTx) Roots(ctx context.Context) ([]*Node, error) {
	return pgSelect(ctx, t.tx,
		"SELECT id, name, description, parent_id, depth, version, created_at, updated_at FROM nodes WHERE parent_id IS NULL ORDER BY id")
}

func (t *pgTx) Count(ctx context.Context) (int64, error) {
	var count int64
	err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&count)
	return count, err
}

func (t *pgTx) Insert(ctx context.Context, node *Node) (*Node, error) {
	if node.Name == "" {
		return nil, ErrInvalidInput
	}
	if node.ParentID != nil {
		var exists bool
		if err := t.tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM nodes WHERE id = $1)", *node.ParentID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrInvalidParent
		}
	}

	var id int64
	err := t.tx.QueryRowContext(ctx,
		"INSERT INTO nodes (name, description, parent_id, depth, version) VALUES ($1, $2, $3, $4, 0) RETURNING id",
		node.Name, node.Description, node.ParentID, node.Depth,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("error creating node: %w", err)
	}
	return pgGet(ctx, t.tx, id)
}

func (t *pgTx) Update(ctx context.Context, id, expectedVersion int64, mutate func(*Node)) (*Node, error) {
	node, err := pgGetWith(ctx, t.tx, id, " FOR UPDATE")
	if err != nil {
		return nil, err
	}
	if node.Version != expectedVersion {
		return nil, ErrVersionConflict
	}

	mutate(node)

	result, err := t.tx.ExecContext(ctx,
		"UPDATE nodes SET name = $1, description = $2, parent_id = $3, depth = $4, version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $5 AND version = $6",
		node.Name, node.Description, node.ParentID, node.Depth, id, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("error updating node: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrVersionConflict
	}
	return pgGet(ctx, t.tx, id)
}

func (t *pgTx) Delete(ctx context.Context, id int64) error {
	result, err := t.tx.ExecContext(ctx, "DELETE FROM nodes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("error deleting node: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
