package repos

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"public-safety-incident-system/internal/incident"
)

// MemoryRepository is a process-scoped store guarded by a mutex. Save is an
// unconditional overwrite: last writer wins, stale versions are not rejected.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]incident.Snapshot
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]incident.Snapshot)}
}

func (r *MemoryRepository) SupportsOptimisticLock() bool { return false }

func (r *MemoryRepository) Save(ctx context.Context, inc *incident.Incident) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := inc.ToSnapshot()
	r.mu.Lock()
	r.items[memoryKey(snapshot.TenantID, snapshot.IncidentID)] = snapshot
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, tenantID string, incidentID uuid.UUID) (*incident.Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	snapshot, ok := r.items[memoryKey(tenantID, incidentID)]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return incident.FromSnapshot(snapshot), nil
}

func (r *MemoryRepository) List(ctx context.Context, tenantID string, filter ListFilter) ([]*incident.Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	matched := make([]*incident.Incident, 0)
	for _, snapshot := range r.items {
		if !strings.EqualFold(snapshot.TenantID, tenantID) {
			continue
		}
		if !matchesFilter(snapshot, filter) {
			continue
		}
		matched = append(matched, incident.FromSnapshot(snapshot))
	}
	r.mu.RUnlock()
	sortByCreatedAtDesc(matched)
	return matched, nil
}

func memoryKey(tenantID string, incidentID uuid.UUID) string {
	return strings.ToLower(strings.TrimSpace(tenantID)) + ":" + incidentID.String()
}
