package incident

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is the flat, serializable projection of the aggregate. It is the
// only shape ever written to or read from storage; aggregates persisted once
// are reconstructed exclusively via FromSnapshot.
type Snapshot struct {
	IncidentID    uuid.UUID          `json:"incidentId"`
	TenantID      string             `json:"tenantId"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Priority      string             `json:"priority"`
	Location      string             `json:"location"`
	Status        Status             `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
	ReportedAt    time.Time          `json:"reportedAt"`
	QueuedAt      *time.Time         `json:"queuedAt,omitempty"`
	ProcessedAt   *time.Time         `json:"processedAt,omitempty"`
	FailureReason string             `json:"failureReason,omitempty"`
	Evidence      []EvidenceSnapshot `json:"evidence"`
	Version       int                `json:"version"`
}

type EvidenceSnapshot struct {
	FileName   string    `json:"fileName"`
	ObjectKey  string    `json:"objectKey"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func (i *Incident) ToSnapshot() Snapshot {
	evidence := make([]EvidenceSnapshot, len(i.evidence))
	for idx, item := range i.evidence {
		evidence[idx] = EvidenceSnapshot{
			FileName:   item.FileName,
			ObjectKey:  item.ObjectKey,
			UploadedAt: item.UploadedAt,
		}
	}
	return Snapshot{
		IncidentID:    i.id,
		TenantID:      i.tenantID,
		Title:         i.title,
		Description:   i.description,
		Priority:      i.priority,
		Location:      i.location,
		Status:        i.status,
		CreatedAt:     i.createdAt,
		ReportedAt:    i.reportedAt,
		QueuedAt:      copyTime(i.queuedAt),
		ProcessedAt:   copyTime(i.processedAt),
		FailureReason: i.failureReason,
		Evidence:      evidence,
		Version:       i.version,
	}
}

// FromSnapshot is the trusted reconstruction path: no re-validation, the
// stored state is taken as-is.
func FromSnapshot(s Snapshot) *Incident {
	evidence := make([]EvidenceItem, len(s.Evidence))
	for idx, item := range s.Evidence {
		evidence[idx] = EvidenceItem{
			FileName:   item.FileName,
			ObjectKey:  item.ObjectKey,
			UploadedAt: item.UploadedAt,
		}
	}
	return &Incident{
		id:            s.IncidentID,
		tenantID:      s.TenantID,
		title:         s.Title,
		description:   s.Description,
		priority:      s.Priority,
		location:      s.Location,
		status:        s.Status,
		createdAt:     s.CreatedAt,
		reportedAt:    s.ReportedAt,
		queuedAt:      copyTime(s.QueuedAt),
		processedAt:   copyTime(s.ProcessedAt),
		failureReason: s.FailureReason,
		evidence:      evidence,
		version:       s.Version,
	}
}
