package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/storage"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const keyColumns = `id, name, type, key, usage, created_at, updated_at`

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

func isCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "CHECK constraint failed") ||
		strings.Contains(errStr, "violates check constraint") ||
		strings.Contains(errStr, "NOT NULL constraint failed") ||
		strings.Contains(errStr, "violates not-null constraint")
}

// wrapError maps driver errors onto the domain taxonomy.
func wrapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case isUniqueViolation(err):
		return storage.DuplicateSecret(op)
	case isCheckViolation(err):
		return storage.Rejected(op, err)
	default:
		return storage.Unavailable(op, err)
	}
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

var _ storage.Storage = (*Store)(nil)

// New creates a new SQL store and runs the embedded migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if driver == "sqlite3" {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return wrapError("ping", s.db.PingContext(ctx))
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getKey(ctx context.Context, db dbInterface, id string) (*domain.KeyRecord, error) {
	var key domain.KeyRecord
	err := db.GetContext(ctx, &key,
		`SELECT `+keyColumns+` FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return nil, wrapError("get key", err)
	}
	return &key, nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapError("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapError("commit", err)
	}
	return nil
}

// ============================================
// API Keys
// ============================================

func (s *Store) ListKeys(ctx context.Context) ([]*domain.KeyRecord, error) {
	keys := []*domain.KeyRecord{}
	err := s.db.SelectContext(ctx, &keys,
		`SELECT `+keyColumns+` FROM api_keys ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, wrapError("list keys", err)
	}
	return keys, nil
}

func (s *Store) InsertKey(ctx context.Context, key *domain.NewKey) (*domain.KeyRecord, error) {
	now := time.Now().UTC()
	rec := &domain.KeyRecord{
		ID:        uuid.New().String(),
		Name:      key.Name,
		Type:      key.Type,
		Secret:    key.Secret,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, name, type, key, usage, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 0, $5, $6)`,
		rec.ID, rec.Name, rec.Type, rec.Secret, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, wrapError("insert key", err)
	}
	return rec, nil
}

func (s *Store) UpdateKey(ctx context.Context, id string, update domain.KeyUpdate) (*domain.KeyRecord, error) {
	var rec *domain.KeyRecord
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := getKey(ctx, tx, id)
		if err != nil {
			return err
		}
		if update.Name != nil {
			current.Name = *update.Name
		}
		current.UpdatedAt = time.Now().UTC()

		result, err := tx.ExecContext(ctx,
			`UPDATE api_keys SET name = $1, updated_at = $2 WHERE id = $3`,
			current.Name, current.UpdatedAt, id)
		if err != nil {
			return wrapError("update key", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return domain.ErrNotFound
		}
		rec = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) DeleteKey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return wrapError("delete key", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) FindKeyBySecret(ctx context.Context, secret string) (*domain.KeyRecord, error) {
	var key domain.KeyRecord
	err := s.db.GetContext(ctx, &key,
		`SELECT `+keyColumns+` FROM api_keys WHERE key = $1`, secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError("find key", err)
	}
	return &key, nil
}

func (s *Store) IncrementUsage(ctx context.Context, id string) (*domain.KeyRecord, error) {
	var rec *domain.KeyRecord
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE api_keys SET usage = usage + 1, updated_at = $1 WHERE id = $2`,
			time.Now().UTC(), id)
		if err != nil {
			return wrapError("increment usage", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return domain.ErrNotFound
		}
		rec, err = getKey(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) CountKeys(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM api_keys`); err != nil {
		return 0, wrapError("count keys", err)
	}
	return count, nil
}
