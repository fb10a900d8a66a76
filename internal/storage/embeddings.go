package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// LoadEmbedding returns the vector stored for (model, key) or ErrNotFound.
func (db *DB) LoadEmbedding(ctx context.Context, model, key string) ([]float32, error) {
	var vec pgvector.Vector
	err := db.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE model = ? AND text_hash = ?`, model, key,
	).Scan(&vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load embedding: %w", err)
	}
	return vec.Slice(), nil
}

// SaveEmbedding stores vec under (model, key), replacing any previous value.
func (db *DB) SaveEmbedding(ctx context.Context, model, key string, vec []float32) error {
	if _, err := db.db.ExecContext(ctx, `
		INSERT INTO embeddings (model, text_hash, vector, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(model, text_hash) DO UPDATE SET vector = excluded.vector, created_at = excluded.created_at
	`, model, key, pgvector.NewVector(vec), db.timestamp()); err != nil {
		return fmt.Errorf("storage: save embedding: %w", err)
	}
	return nil
}
