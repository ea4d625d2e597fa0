package repos

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"public-safety-incident-system/internal/incident"
)

var (
	// ErrConflict signals a stale-version save on a backend that checks the
	// optimistic-concurrency token. The caller must reload and retry.
	ErrConflict = errors.New("incident version conflict")

	// ErrUnavailable wraps backend failures that are not domain outcomes:
	// unreachable store, timeouts, unrecognized driver errors.
	ErrUnavailable = errors.New("incident store unavailable")
)

type ListFilter struct {
	Status *incident.Status
	From   *time.Time
	To     *time.Time
}

// Repository is the storage port. Get returns (nil, nil) when the incident
// does not exist for the tenant; absence is a normal outcome, not an error.
// List results are ordered descending by createdAt, bounds inclusive, and
// never cross tenants.
type Repository interface {
	Save(ctx context.Context, inc *incident.Incident) error
	Get(ctx context.Context, tenantID string, incidentID uuid.UUID) (*incident.Incident, error)
	List(ctx context.Context, tenantID string, filter ListFilter) ([]*incident.Incident, error)

	// SupportsOptimisticLock reports whether Save rejects stale versions with
	// ErrConflict. Backends without native conditional writes overwrite
	// unconditionally; callers that need strict conflict detection pick a
	// backend where this is true.
	SupportsOptimisticLock() bool
}

type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

func matchesFilter(s incident.Snapshot, filter ListFilter) bool {
	if filter.Status != nil && s.Status != *filter.Status {
		return false
	}
	if filter.From != nil && s.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && s.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}

func sortByCreatedAtDesc(incidents []*incident.Incident) {
	sort.SliceStable(incidents, func(a, b int) bool {
		return incidents[a].CreatedAt().After(incidents[b].CreatedAt())
	})
}
