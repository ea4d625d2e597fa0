package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"public-safety-incident-system/internal/incident"
)

func newPostgresHarness(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func freshIncident(t *testing.T) *incident.Incident {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	inc, err := incident.New("Tenant-A", "Flooded underpass", "Water over the roadway", "High", "5th and Main", now, now)
	if err != nil {
		t.Fatalf("new incident: %v", err)
	}
	return inc
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresRepositorySaveInsertsWhenAbsent(t *testing.T) {
	repo, mock := newPostgresHarness(t)
	inc := freshIncident(t)
	snapshot := inc.ToSnapshot()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT version FROM incidents`).
		WithArgs(snapshot.TenantID, snapshot.IncidentID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO incidents`).
		WithArgs(anyArgs(13)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := repo.Save(context.Background(), inc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositorySaveAcceptsNextVersion(t *testing.T) {
	repo, mock := newPostgresHarness(t)
	inc := freshIncident(t)
	if err := inc.AddEvidence("photo.jpg", "tenant/tenant-a/photo.jpg", time.Now().UTC()); err != nil {
		t.Fatalf("add evidence: %v", err)
	}
	if err := inc.MarkQueued(time.Now().UTC()); err != nil {
		t.Fatalf("mark queued: %v", err)
	}
	snapshot := inc.ToSnapshot()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT version FROM incidents`).
		WithArgs(snapshot.TenantID, snapshot.IncidentID).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(snapshot.Version - 1))
	mock.ExpectExec(`UPDATE incidents`).
		WithArgs(anyArgs(12)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM incident_evidence`).
		WithArgs(snapshot.IncidentID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO incident_evidence`).
		WithArgs(anyArgs(6)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := repo.Save(context.Background(), inc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositorySaveRejectsStaleVersion(t *testing.T) {
	repo, mock := newPostgresHarness(t)
	inc := freshIncident(t)
	if err := inc.MarkQueued(time.Now().UTC()); err != nil {
		t.Fatalf("mark queued: %v", err)
	}
	snapshot := inc.ToSnapshot()

	// Stored row is at version 5, the incoming save expects 1. No UPDATE
	// or evidence statement may run; the transaction must roll back.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT version FROM incidents`).
		WithArgs(snapshot.TenantID, snapshot.IncidentID).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(5))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), inc)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositorySaveRejectsVersionOneAgainstExistingRow(t *testing.T) {
	repo, mock := newPostgresHarness(t)
	inc := freshIncident(t)
	snapshot := inc.ToSnapshot()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT version FROM incidents`).
		WithArgs(snapshot.TenantID, snapshot.IncidentID).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), inc)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for a version-1 save over an existing row, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryGetReturnsNilWhenMissing(t *testing.T) {
	repo, mock := newPostgresHarness(t)
	inc := freshIncident(t)

	mock.ExpectQuery(`SELECT incident_id`).
		WithArgs("tenant-a", inc.ID()).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.Get(context.Background(), "tenant-a", inc.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing incident, got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
