package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spigell/smart-applier/internal/model"
)

// SaveResume stores a rendered resume and returns its metadata.
func (db *DB) SaveResume(ctx context.Context, userID, kind string, payload []byte) (model.ResumeMeta, error) {
	if userID == "" {
		return model.ResumeMeta{}, errors.New("storage: resume user_id is required")
	}

	meta := model.ResumeMeta{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Size:      len(payload),
		CreatedAt: db.timestamp(),
	}
	if payload == nil {
		payload = []byte{}
	}

	if _, err := db.db.ExecContext(ctx,
		`INSERT INTO resumes (id, user_id, resume_type, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		meta.ID, meta.UserID, meta.Type, payload, meta.CreatedAt,
	); err != nil {
		return model.ResumeMeta{}, fmt.Errorf("storage: save resume for %s: %w", userID, err)
	}
	return meta, nil
}

// ListResumes returns resume metadata, newest first. An empty userID lists
// resumes of all users.
func (db *DB) ListResumes(ctx context.Context, userID string) ([]model.ResumeMeta, error) {
	query := `SELECT id, user_id, resume_type, length(payload), created_at FROM resumes`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list resumes: %w", err)
	}
	defer rows.Close()

	resumes := []model.ResumeMeta{}
	for rows.Next() {
		var meta model.ResumeMeta
		if err := rows.Scan(&meta.ID, &meta.UserID, &meta.Type, &meta.Size, &meta.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan resume: %w", err)
		}
		resumes = append(resumes, meta)
	}
	return resumes, rows.Err()
}

// LoadResume returns the payload and metadata of resume id or ErrNotFound.
func (db *DB) LoadResume(ctx context.Context, id string) ([]byte, model.ResumeMeta, error) {
	var (
		meta    model.ResumeMeta
		payload []byte
	)
	err := db.db.QueryRowContext(ctx,
		`SELECT id, user_id, resume_type, payload, created_at FROM resumes WHERE id = ?`, id,
	).Scan(&meta.ID, &meta.UserID, &meta.Type, &payload, &meta.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ResumeMeta{}, fmt.Errorf("resume %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, model.ResumeMeta{}, fmt.Errorf("storage: load resume %s: %w", id, err)
	}
	meta.Size = len(payload)
	return payload, meta, nil
}
