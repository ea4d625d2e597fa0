package repos

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"public-safety-incident-system/internal/incident"
)

// Pool is the slice of *pgxpool.Pool behavior the repository uses. Tests
// substitute a pgxmock pool.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository is the only backend that checks the version token: a
// save whose incoming version is not exactly storedVersion+1 is rejected with
// ErrConflict and leaves the stored row untouched. Evidence lives in a child
// table ordered by sort_order and cascades on delete.
type PostgresRepository struct {
	pool Pool
}

func NewPostgresRepository(pool Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) SupportsOptimisticLock() bool { return true }

func (r *PostgresRepository) Save(ctx context.Context, inc *incident.Incident) error {
	snapshot := inc.ToSnapshot()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin save: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var storedVersion int
	err = tx.QueryRow(ctx, `
		SELECT version FROM incidents
		WHERE lower(tenant_id) = lower($1) AND incident_id = $2
		FOR UPDATE
	`, snapshot.TenantID, snapshot.IncidentID).Scan(&storedVersion)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := insertIncident(ctx, tx, snapshot); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("%w: load stored version: %v", ErrUnavailable, err)
	default:
		expected := snapshot.Version - 1
		if expected < 1 || storedVersion != expected {
			return fmt.Errorf("%w: incident %s expected stored version %d, found %d",
				ErrConflict, snapshot.IncidentID, expected, storedVersion)
		}
		if err := updateIncident(ctx, tx, snapshot); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit save: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID string, incidentID uuid.UUID) (*incident.Incident, error) {
	snapshot, err := scanIncident(r.pool.QueryRow(ctx, `
		SELECT incident_id, tenant_id, title, description, priority, location, status,
		       created_at, reported_at, queued_at, processed_at, failure_reason, version
		FROM incidents
		WHERE lower(tenant_id) = lower($1) AND incident_id = $2
	`, tenantID, incidentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get incident: %v", ErrUnavailable, err)
	}

	evidence, err := loadEvidence(ctx, r.pool, []uuid.UUID{snapshot.IncidentID})
	if err != nil {
		return nil, err
	}
	snapshot.Evidence = evidence[snapshot.IncidentID]
	if snapshot.Evidence == nil {
		snapshot.Evidence = []incident.EvidenceSnapshot{}
	}
	return incident.FromSnapshot(snapshot), nil
}

func (r *PostgresRepository) List(ctx context.Context, tenantID string, filter ListFilter) ([]*incident.Incident, error) {
	query := `
		SELECT incident_id, tenant_id, title, description, priority, location, status,
		       created_at, reported_at, queued_at, processed_at, failure_reason, version
		FROM incidents
		WHERE lower(tenant_id) = lower($1)`
	args := []any{tenantID}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += " AND created_at >= $" + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += " AND created_at <= $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list incidents: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	snapshots := make([]incident.Snapshot, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		snapshot, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan incident: %v", ErrUnavailable, err)
		}
		snapshots = append(snapshots, snapshot)
		ids = append(ids, snapshot.IncidentID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list incidents: %v", ErrUnavailable, err)
	}

	evidence, err := loadEvidence(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}

	incidents := make([]*incident.Incident, 0, len(snapshots))
	for _, snapshot := range snapshots {
		snapshot.Evidence = evidence[snapshot.IncidentID]
		if snapshot.Evidence == nil {
			snapshot.Evidence = []incident.EvidenceSnapshot{}
		}
		incidents = append(incidents, incident.FromSnapshot(snapshot))
	}
	return incidents, nil
}

func insertIncident(ctx context.Context, db DBTX, snapshot incident.Snapshot) error {
	_, err := db.Exec(ctx, `
		INSERT INTO incidents (incident_id, tenant_id, title, description, priority, location, status,
		                       created_at, reported_at, queued_at, processed_at, failure_reason, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, snapshot.IncidentID, snapshot.TenantID, snapshot.Title, snapshot.Description, snapshot.Priority,
		snapshot.Location, string(snapshot.Status), snapshot.CreatedAt, snapshot.ReportedAt,
		snapshot.QueuedAt, snapshot.ProcessedAt, nullableReason(snapshot.FailureReason), snapshot.Version)
	if err != nil {
		return fmt.Errorf("%w: insert incident: %v", ErrUnavailable, err)
	}
	return replaceEvidence(ctx, db, snapshot)
}

func updateIncident(ctx context.Context, db DBTX, snapshot incident.Snapshot) error {
	_, err := db.Exec(ctx, `
		UPDATE incidents
		SET title = $3, description = $4, priority = $5, location = $6, status = $7,
		    reported_at = $8, queued_at = $9, processed_at = $10, failure_reason = $11, version = $12
		WHERE lower(tenant_id) = lower($1) AND incident_id = $2
	`, snapshot.TenantID, snapshot.IncidentID, snapshot.Title, snapshot.Description, snapshot.Priority,
		snapshot.Location, string(snapshot.Status), snapshot.ReportedAt, snapshot.QueuedAt,
		snapshot.ProcessedAt, nullableReason(snapshot.FailureReason), snapshot.Version)
	if err != nil {
		return fmt.Errorf("%w: update incident: %v", ErrUnavailable, err)
	}
	if _, err := db.Exec(ctx, `DELETE FROM incident_evidence WHERE incident_id = $1`, snapshot.IncidentID); err != nil {
		return fmt.Errorf("%w: clear evidence: %v", ErrUnavailable, err)
	}
	return replaceEvidence(ctx, db, snapshot)
}

func replaceEvidence(ctx context.Context, db DBTX, snapshot incident.Snapshot) error {
	for index, item := range snapshot.Evidence {
		_, err := db.Exec(ctx, `
			INSERT INTO incident_evidence (evidence_id, incident_id, file_name, object_key, uploaded_at, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), snapshot.IncidentID, item.FileName, item.ObjectKey, item.UploadedAt, index)
		if err != nil {
			return fmt.Errorf("%w: insert evidence: %v", ErrUnavailable, err)
		}
	}
	return nil
}

func loadEvidence(ctx context.Context, db DBTX, incidentIDs []uuid.UUID) (map[uuid.UUID][]incident.EvidenceSnapshot, error) {
	out := make(map[uuid.UUID][]incident.EvidenceSnapshot, len(incidentIDs))
	if len(incidentIDs) == 0 {
		return out, nil
	}
	rows, err := db.Query(ctx, `
		SELECT incident_id, file_name, object_key, uploaded_at
		FROM incident_evidence
		WHERE incident_id = ANY($1)
		ORDER BY incident_id, sort_order
	`, incidentIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: load evidence: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var incidentID uuid.UUID
		var item incident.EvidenceSnapshot
		if err := rows.Scan(&incidentID, &item.FileName, &item.ObjectKey, &item.UploadedAt); err != nil {
			return nil, fmt.Errorf("%w: scan evidence: %v", ErrUnavailable, err)
		}
		out[incidentID] = append(out[incidentID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load evidence: %v", ErrUnavailable, err)
	}
	return out, nil
}

func scanIncident(row pgx.Row) (incident.Snapshot, error) {
	var snapshot incident.Snapshot
	var status string
	var queuedAt, processedAt *time.Time
	var failureReason *string
	err := row.Scan(&snapshot.IncidentID, &snapshot.TenantID, &snapshot.Title, &snapshot.Description,
		&snapshot.Priority, &snapshot.Location, &status, &snapshot.CreatedAt, &snapshot.ReportedAt,
		&queuedAt, &processedAt, &failureReason, &snapshot.Version)
	if err != nil {
		return incident.Snapshot{}, err
	}
	snapshot.Status = incident.Status(status)
	snapshot.QueuedAt = queuedAt
	snapshot.ProcessedAt = processedAt
	if failureReason != nil {
		snapshot.FailureReason = *failureReason
	}
	return snapshot, nil
}

func nullableReason(reason string) *string {
	if reason == "" {
		return nil
	}
	return &reason
}
