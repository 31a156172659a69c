package exports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusReady, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusPending, false},
		{StatusReady, StatusFailed, false},
		{StatusReady, StatusPending, false},
		{StatusFailed, StatusReady, false},
		{StatusFailed, StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestMarkReadyClearsError(t *testing.T) {
	rec := NewPendingRecord("e1", "u1", "s1", testNow)
	msg := "stale"
	rec.Error = &msg
	if err := rec.markReady("k", testNow.Add(time.Hour), testNow); err != nil {
		t.Fatalf("markReady: %v", err)
	}
	if rec.Error != nil || rec.StorageKey == nil || *rec.StorageKey != "k" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := rec.markFailed("late", testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestMemoryRepoTerminalWritesAreGuarded(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if err := repo.Create(ctx, NewPendingRecord("e1", "u1", "s1", testNow)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := repo.MarkFailed(ctx, "e1", "boom", testNow)
	if err != nil || !ok {
		t.Fatalf("first MarkFailed = %v, %v", ok, err)
	}
	ok, err = repo.MarkReady(ctx, "e1", "k", testNow, testNow)
	if err != nil || ok {
		t.Fatalf("MarkReady after FAILED = %v, %v", ok, err)
	}
	ok, _ = repo.MarkFailed(ctx, "e1", "again", testNow)
	if ok {
		t.Fatalf("second MarkFailed should not apply")
	}
	rec, _ := repo.GetByID(ctx, "e1")
	if rec.Status != StatusFailed || *rec.Error != "boom" || rec.StorageKey != nil {
		t.Fatalf("record changed after terminal: %+v", rec)
	}

	if _, err := repo.MarkReady(ctx, "missing", "k", testNow, testNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	bad := NewPendingRecord("e2", "u1", "s2", testNow)
	bad.Status = StatusReady
	if err := repo.Create(ctx, bad); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for non-PENDING create, got %v", err)
	}
}

func TestPGRepoMarkReadyGuardedOnPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}
	exp := testNow.Add(14 * 24 * time.Hour)

	mock.ExpectExec(`UPDATE export_records\s+SET status = 'READY'.*WHERE id = \$1 AND status = 'PENDING'`).
		WithArgs("e1", "exports/k.pdf", exp, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE export_records\s+SET status = 'READY'.*WHERE id = \$1 AND status = 'PENDING'`).
		WithArgs("e1", "exports/k.pdf", exp, testNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkReady(context.Background(), "e1", "exports/k.pdf", exp, testNow)
	if err != nil || !ok {
		t.Fatalf("first MarkReady = %v, %v", ok, err)
	}
	ok, err = repo.MarkReady(context.Background(), "e1", "exports/k.pdf", exp, testNow)
	if err != nil || ok {
		t.Fatalf("second MarkReady = %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoMarkFailedAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	mock.ExpectExec(`UPDATE export_records\s+SET status = 'FAILED'.*WHERE id = \$1 AND status = 'PENDING'`).
		WithArgs("e1", "Export failed. Please try again.", testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows([]string{"id", "user_id", "snapshot_id", "status", "storage_key", "expires_at", "error", "created_at", "updated_at"}).
		AddRow("e1", "u1", "s1", "FAILED", nil, nil, "Export failed. Please try again.", testNow, testNow)
	mock.ExpectQuery(`SELECT id, user_id, snapshot_id, status`).WithArgs("e1").WillReturnRows(rows)
	mock.ExpectQuery(`SELECT id, user_id, snapshot_id, status`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if ok, err := repo.MarkFailed(context.Background(), "e1", "Export failed. Please try again.", testNow); err != nil || !ok {
		t.Fatalf("MarkFailed = %v, %v", ok, err)
	}
	rec, err := repo.GetByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.Status != StatusFailed || rec.Error == nil || rec.StorageKey != nil {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, err := repo.GetByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoFailPendingOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}
	cutoff := testNow.Add(-2 * time.Hour)

	mock.ExpectExec(`UPDATE export_records\s+SET status = 'FAILED'.*WHERE status = 'PENDING' AND created_at < \$1`).
		WithArgs(cutoff, "Export timed out. Please try again.", testNow).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.FailPendingOlderThan(context.Background(), cutoff, "Export timed out. Please try again.", testNow)
	if err != nil || n != 3 {
		t.Fatalf("FailPendingOlderThan = %d, %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRepoOneRecordPerSnapshot(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if err := repo.Create(ctx, NewPendingRecord("e1", "u1", "s1", testNow)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, NewPendingRecord("e2", "u1", "s1", testNow)); !errors.Is(err, ErrSnapshotTaken) {
		t.Fatalf("memory: expected ErrSnapshotTaken, got %v", err)
	}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectExec(`INSERT INTO export_records`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "export_records_snapshot_id_key"})
	pg := &PGRepo{DB: db}
	if err := pg.Create(ctx, NewPendingRecord("e2", "u1", "s1", testNow)); !errors.Is(err, ErrSnapshotTaken) {
		t.Fatalf("postgres: expected ErrSnapshotTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
