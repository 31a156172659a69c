package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

func (r *PGRepo) Create(ctx context.Context, s Snapshot) error {
	const query = `
INSERT INTO resume_snapshots (
    id,
    resume_id,
    user_id,
    content,
    template_id,
    theme,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	var templateID sql.NullString
	if s.TemplateID != "" {
		templateID = sql.NullString{String: s.TemplateID, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, query,
		s.ID,
		s.ResumeID,
		s.UserID,
		[]byte(s.Content),
		templateID,
		nullJSON(s.Theme),
		s.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Snapshot, error) {
	const query = `
SELECT id, resume_id, user_id, content, template_id, theme, created_at
FROM resume_snapshots
WHERE id = $1`
	var (
		s          Snapshot
		content    []byte
		templateID sql.NullString
		theme      []byte
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.ResumeID,
		&s.UserID,
		&content,
		&templateID,
		&theme,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	s.Content = json.RawMessage(content)
	if templateID.Valid {
		s.TemplateID = templateID.String
	}
	if len(theme) > 0 {
		s.Theme = json.RawMessage(theme)
	}
	return s, nil
}

// PGResumes reads live resumes from the resumes table.
type PGResumes struct {
	DB *sql.DB
}

var _ ResumeSource = (*PGResumes)(nil)

func (r *PGResumes) GetResume(ctx context.Context, resumeID, userID string) (*Resume, error) {
	const query = `
SELECT id, user_id, content, template_id, theme, updated_at
FROM resumes
WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	var (
		res        Resume
		content    []byte
		templateID sql.NullString
		theme      []byte
	)
	err := r.DB.QueryRowContext(ctx, query, resumeID, userID).Scan(
		&res.ID,
		&res.UserID,
		&content,
		&templateID,
		&theme,
		&res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	res.Content = json.RawMessage(content)
	if templateID.Valid {
		res.TemplateID = templateID.String
	}
	if len(theme) > 0 {
		res.Theme = json.RawMessage(theme)
	}
	return &res, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
