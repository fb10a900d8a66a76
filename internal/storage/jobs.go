package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/smart-applier/internal/model"
)

const jobColumns = `j.id, j.title, j.company, j.location, j.experience, j.skills, j.summary, j.posted_on`

// BulkInsertJobs stores jobs in one transaction and returns them with their
// assigned ids, in input order.
func (db *DB) BulkInsertJobs(ctx context.Context, jobs []model.Job) ([]model.Job, error) {
	stored := make([]model.Job, 0, len(jobs))
	if len(jobs) == 0 {
		return stored, nil
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin insert jobs: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scraped_jobs (title, company, location, experience, skills, summary, posted_on, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("storage: prepare insert jobs: %w", err)
	}
	defer stmt.Close()

	now := db.timestamp()
	for _, job := range jobs {
		res, err := stmt.ExecContext(ctx,
			job.Title, job.Company, job.Location, job.Experience, job.Skills, job.Summary, job.PostedOn, now)
		if err != nil {
			return nil, fmt.Errorf("storage: insert job %q: %w", job.Title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("storage: job id: %w", err)
		}
		job.ID = id
		stored = append(stored, job)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: commit jobs: %w", err)
	}
	return stored, nil
}

// RecentJobs returns up to limit jobs, newest first.
func (db *DB) RecentJobs(ctx context.Context, limit int) ([]model.Job, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM scraped_jobs j ORDER BY j.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: recent jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		var job model.Job
		if err := rows.Scan(&job.ID, &job.Title, &job.Company, &job.Location, &job.Experience, &job.Skills, &job.Summary, &job.PostedOn); err != nil {
			return nil, fmt.Errorf("storage: scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// SaveMatches records matches for userID. Matched jobs must already be
// stored.
func (db *DB) SaveMatches(ctx context.Context, userID string, matches []model.MatchedJob) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin save matches: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := db.timestamp()
	for _, m := range matches {
		if m.Job.ID == 0 {
			return fmt.Errorf("storage: match %q has no job id", m.Job.Title)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO top_matched_jobs (user_id, job_id, score, created_at) VALUES (?, ?, ?, ?)`,
			userID, m.Job.ID, m.Score, now,
		); err != nil {
			return fmt.Errorf("storage: save match for job %d: %w", m.Job.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit matches: %w", err)
	}
	return nil
}

// TopMatched returns up to limit of the most recently saved matches. An empty
// userID returns matches of all users.
func (db *DB) TopMatched(ctx context.Context, userID string, limit int) ([]model.MatchedJob, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + jobColumns + `, t.score
		FROM top_matched_jobs t
		JOIN scraped_jobs j ON j.id = t.job_id`)
	args := []any{}
	if userID != "" {
		query.WriteString(` WHERE t.user_id = ?`)
		args = append(args, userID)
	}
	query.WriteString(` ORDER BY t.id DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := db.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("storage: top matched: %w", err)
	}
	defer rows.Close()

	matches := []model.MatchedJob{}
	for rows.Next() {
		var m model.MatchedJob
		if err := rows.Scan(&m.Job.ID, &m.Job.Title, &m.Job.Company, &m.Job.Location, &m.Job.Experience,
			&m.Job.Skills, &m.Job.Summary, &m.Job.PostedOn, &m.Score); err != nil {
			return nil, fmt.Errorf("storage: scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
