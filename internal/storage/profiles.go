package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/smart-applier/internal/model"
)

// SaveProfile inserts or replaces the profile stored under p.UserID.
func (db *DB) SaveProfile(ctx context.Context, p *model.Profile) error {
	if p == nil || strings.TrimSpace(p.UserID) == "" {
		return errors.New("storage: profile user_id is required")
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("storage: marshal profile %s: %w", p.UserID, err)
	}

	now := db.timestamp()
	_, err = db.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, email, profile_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			profile_json = excluded.profile_json,
			updated_at = excluded.updated_at
	`, p.UserID, p.Personal.Name, p.Personal.Email, string(payload), now, now)
	if err != nil {
		return fmt.Errorf("storage: save profile %s: %w", p.UserID, err)
	}
	return nil
}

// LoadProfile returns the profile of userID or ErrNotFound.
func (db *DB) LoadProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var payload string
	err := db.db.QueryRowContext(ctx,
		`SELECT profile_json FROM profiles WHERE user_id = ?`, userID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %q: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load profile %s: %w", userID, err)
	}

	var p model.Profile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("storage: decode profile %s: %w", userID, err)
	}
	p.UserID = userID
	return &p, nil
}

// ListProfiles returns profile metadata, most recently created first.
func (db *DB) ListProfiles(ctx context.Context) ([]model.ProfileMeta, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT user_id, name, email, created_at FROM profiles ORDER BY created_at DESC, user_id`)
	if err != nil {
		return nil, fmt.Errorf("storage: list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []model.ProfileMeta{}
	for rows.Next() {
		var meta model.ProfileMeta
		if err := rows.Scan(&meta.UserID, &meta.Name, &meta.Email, &meta.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan profile: %w", err)
		}
		profiles = append(profiles, meta)
	}
	return profiles, rows.Err()
}
