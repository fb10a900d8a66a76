// Package storage persists profiles, scraped jobs, matches, resumes and
// embeddings in a single SQLite file.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// DB wraps the SQLite connection pool.
type DB struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. The special path ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("storage: create data dir: %w", err)
			}
		}
		dsn = "file:" + path
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	// A single connection keeps in-memory databases alive and serializes
	// writers.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", path, err)
	}

	db := &DB{db: conn, logger: logger, now: time.Now}
	if err := db.RunMigrations(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Debug("database ready", zap.String("path", path))
	return db, nil
}

// Close releases the database.
func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) timestamp() string {
	return db.now().UTC().Format(time.RFC3339Nano)
}
