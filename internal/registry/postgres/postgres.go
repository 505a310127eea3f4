// Package postgres implements the registry.Store interface backed by
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/qiita-spots/qp-shogun/internal/model"
	"github.com/qiita-spots/qp-shogun/internal/registry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements registry.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements registry.Store.
var _ registry.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// UpsertPlugin replaces the plugin row and its command set atomically.
func (s *PostgresStore) UpsertPlugin(ctx context.Context, plugin model.Plugin) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := queryUpsertPlugin(ctx, tx, plugin); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := queryReplaceCommands(ctx, tx, plugin.Name, plugin.Commands); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlugin(ctx context.Context, name string) (*model.Plugin, error) {
	return queryGetPlugin(ctx, s.db, name)
}

func (s *PostgresStore) ListCommands(ctx context.Context, pluginName string) ([]model.Command, error) {
	return queryListCommands(ctx, s.db, pluginName)
}

func (s *PostgresStore) InsertRun(ctx context.Context, run *model.Run) error {
	return queryInsertRun(ctx, s.db, run)
}

func (s *PostgresStore) FinishRun(ctx context.Context, id string, status model.RunStatus, report json.RawMessage) error {
	return queryFinishRun(ctx, s.db, id, status, report)
}

func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	return queryRecentRuns(ctx, s.db, limit)
}
