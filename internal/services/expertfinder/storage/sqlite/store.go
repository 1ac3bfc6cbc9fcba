package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sqlitemigrate "github.com/louisbranch/expertfinder/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/storage/sqlite/migrations"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements record and token persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Open opens the store at path and applies bundled migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// DB returns the raw database handle.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

func (s *Store) ensureDB() error {
	if s == nil || s.sqlDB == nil {
		return errors.New("sqlite store is not configured")
	}
	return nil
}

func (s *Store) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
