package exports

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const snapshotUniqueConstraint = "export_records_snapshot_id_key"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

// Create inserts a PENDING record.
func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	if rec.Status != StatusPending {
		return ErrInvalidState
	}
	const query = `
INSERT INTO export_records (
    id,
    user_id,
    snapshot_id,
    status,
    storage_key,
    expires_at,
    error,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, NULL, NULL, NULL, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.SnapshotID,
		string(rec.Status),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == snapshotUniqueConstraint {
		return ErrSnapshotTaken
	}
	return err
}

// GetByID returns a record by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Record, error) {
	const query = `
SELECT id, user_id, snapshot_id, status, storage_key, expires_at, error, created_at, updated_at
FROM export_records
WHERE id = $1`
	var (
		rec        Record
		status     string
		storageKey sql.NullString
		expiresAt  sql.NullTime
		errMsg     sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.SnapshotID,
		&status,
		&storageKey,
		&expiresAt,
		&errMsg,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.Status = Status(status)
	if storageKey.Valid {
		rec.StorageKey = &storageKey.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		rec.ExpiresAt = &t
	}
	if errMsg.Valid {
		rec.Error = &errMsg.String
	}
	return rec, nil
}

// CountByUser counts every record the user has ever created.
func (r *PGRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM export_records WHERE user_id = $1`
	var n int64
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkReady moves a PENDING record to READY.
func (r *PGRepo) MarkReady(ctx context.Context, id, storageKey string, expiresAt, now time.Time) (bool, error) {
	const query = `
UPDATE export_records
SET status = 'READY',
    storage_key = $2,
    expires_at = $3,
    error = NULL,
    updated_at = $4
WHERE id = $1 AND status = 'PENDING'`
	res, err := r.DB.ExecContext(ctx, query, id, storageKey, expiresAt.UTC(), now.UTC())
	if err != nil {
		return false, err
	}
	return applied(res)
}

// MarkFailed moves a PENDING record to FAILED.
func (r *PGRepo) MarkFailed(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	const query = `
UPDATE export_records
SET status = 'FAILED',
    error = $2,
    updated_at = $3
WHERE id = $1 AND status = 'PENDING'`
	res, err := r.DB.ExecContext(ctx, query, id, reason, now.UTC())
	if err != nil {
		return false, err
	}
	return applied(res)
}

// CountPendingOlderThan counts records still PENDING since before cutoff.
func (r *PGRepo) CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM export_records WHERE status = 'PENDING' AND created_at < $1`
	var n int64
	if err := r.DB.QueryRowContext(ctx, query, cutoff.UTC()).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FailPendingOlderThan fails abandoned PENDING records in one guarded update.
func (r *PGRepo) FailPendingOlderThan(ctx context.Context, cutoff time.Time, reason string, now time.Time) (int64, error) {
	const query = `
UPDATE export_records
SET status = 'FAILED',
    error = $2,
    updated_at = $3
WHERE status = 'PENDING' AND created_at < $1`
	res, err := r.DB.ExecContext(ctx, query, cutoff.UTC(), reason, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func applied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
