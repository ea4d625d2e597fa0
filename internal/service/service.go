package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"public-safety-incident-system/internal/evidence"
	"public-safety-incident-system/internal/incident"
	"public-safety-incident-system/internal/queue"
	"public-safety-incident-system/internal/repos"
	"public-safety-incident-system/shared/clockx"
	"public-safety-incident-system/shared/logx"
)

// ErrNotFound signals that the (tenant, incident) pair does not exist. It is
// terminal for the request that raised it.
var ErrNotFound = errors.New("incident not found")

const failureReasonNoEvidence = "No evidence attached."

type IncidentService struct {
	repo      repos.Repository
	storage   evidence.Storage
	publisher queue.Publisher
	clock     clockx.Clock
	logger    logx.Logger
}

func New(repo repos.Repository, storage evidence.Storage, publisher queue.Publisher, clock clockx.Clock, logger logx.Logger) *IncidentService {
	return &IncidentService{
		repo:      repo,
		storage:   storage,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

type CreateIncidentRequest struct {
	Title       string
	Description string
	Priority    string
	Location    string
	ReportedAt  time.Time
}

type UploadEvidenceRequest struct {
	FileName    string
	ContentType string
}

type ListQuery struct {
	Status *incident.Status
	From   *time.Time
	To     *time.Time
}

type EvidenceDetail struct {
	FileName   string
	ObjectKey  string
	UploadedAt time.Time
}

type IncidentDetail struct {
	IncidentID    uuid.UUID
	TenantID      string
	Title         string
	Description   string
	Priority      string
	Location      string
	Status        incident.Status
	CreatedAt     time.Time
	ReportedAt    time.Time
	QueuedAt      *time.Time
	ProcessedAt   *time.Time
	FailureReason string
	Evidence      []EvidenceDetail
	Version       int
}

type IncidentSummary struct {
	IncidentID uuid.UUID
	Title      string
	Priority   string
	Location   string
	Status     incident.Status
	CreatedAt  time.Time
	ReportedAt time.Time
}

func (s *IncidentService) CreateIncident(ctx context.Context, tenantID string, req CreateIncidentRequest) (IncidentDetail, error) {
	inc, err := incident.New(tenantID, req.Title, req.Description, req.Priority, req.Location, req.ReportedAt, s.clock.Now())
	if err != nil {
		return IncidentDetail{}, err
	}
	if err := s.repo.Save(ctx, inc); err != nil {
		return IncidentDetail{}, err
	}
	s.logger.Info(ctx, "incident_created", "incident created",
		slog.String("incident_id", inc.ID().String()),
		slog.String("tenant_id", inc.TenantID()),
		slog.String("priority", inc.Priority()),
	)
	return mapDetail(inc), nil
}

func (s *IncidentService) ListIncidents(ctx context.Context, tenantID string, q ListQuery) ([]IncidentSummary, error) {
	incidents, err := s.repo.List(ctx, tenantID, repos.ListFilter{Status: q.Status, From: q.From, To: q.To})
	if err != nil {
		return nil, err
	}
	summaries := make([]IncidentSummary, 0, len(incidents))
	for _, inc := range incidents {
		summaries = append(summaries, IncidentSummary{
			IncidentID: inc.ID(),
			Title:      inc.Title(),
			Priority:   inc.Priority(),
			Location:   inc.Location(),
			Status:     inc.Status(),
			CreatedAt:  inc.CreatedAt(),
			ReportedAt: inc.ReportedAt(),
		})
	}
	return summaries, nil
}

func (s *IncidentService) GetIncident(ctx context.Context, tenantID string, incidentID uuid.UUID) (IncidentDetail, error) {
	inc, err := s.load(ctx, tenantID, incidentID)
	if err != nil {
		return IncidentDetail{}, err
	}
	return mapDetail(inc), nil
}

func (s *IncidentService) CreateEvidenceUploadURL(ctx context.Context, tenantID string, incidentID uuid.UUID, req UploadEvidenceRequest) (evidence.PresignedUpload, error) {
	inc, err := s.load(ctx, tenantID, incidentID)
	if err != nil {
		return evidence.PresignedUpload{}, err
	}

	upload, err := s.storage.CreateUploadURL(ctx, tenantID, incidentID, req.FileName, req.ContentType)
	if err != nil {
		return evidence.PresignedUpload{}, err
	}
	if err := inc.AddEvidence(req.FileName, upload.ObjectKey, s.clock.Now()); err != nil {
		return evidence.PresignedUpload{}, err
	}
	if err := s.repo.Save(ctx, inc); err != nil {
		return evidence.PresignedUpload{}, err
	}
	return upload, nil
}

// QueueProcessing transitions the incident to Queued, persists it, then
// publishes the processing message. The caller's correlation id is kept when
// present; otherwise a fresh one is generated. Returns the correlation id
// actually published.
func (s *IncidentService) QueueProcessing(ctx context.Context, tenantID string, incidentID uuid.UUID, reason, correlationID string) (string, error) {
	inc, err := s.load(ctx, tenantID, incidentID)
	if err != nil {
		return "", err
	}
	if err := inc.MarkQueued(s.clock.Now()); err != nil {
		return "", err
	}
	if err := s.repo.Save(ctx, inc); err != nil {
		return "", err
	}

	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		correlationID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	msg := queue.Message{
		MessageType:   queue.MessageTypeProcessingRequested,
		TenantID:      tenantID,
		IncidentID:    incidentID,
		CorrelationID: correlationID,
		OccurredAt:    s.clock.Now(),
		Reason:        strings.TrimSpace(reason),
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return "", err
	}
	s.logger.Info(ctx, "incident_queued", "incident queued for processing",
		slog.String("incident_id", incidentID.String()),
		slog.String("tenant_id", tenantID),
		slog.String("correlation_id", correlationID),
	)
	return correlationID, nil
}

// ProcessMessage is the worker entry point. Reprocessing an already-Processed
// incident fails MarkProcessed's Queued-only guard with a validation error;
// callers treat that as an expected duplicate-delivery outcome.
func (s *IncidentService) ProcessMessage(ctx context.Context, msg queue.Message) error {
	inc, err := s.load(ctx, msg.TenantID, msg.IncidentID)
	if err != nil {
		return err
	}

	if len(inc.Evidence()) == 0 {
		err = inc.MarkFailed(failureReasonNoEvidence, s.clock.Now())
	} else {
		err = inc.MarkProcessed(s.clock.Now())
	}
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, inc); err != nil {
		return err
	}
	s.logger.Info(ctx, "incident_processed", "incident processing finished",
		slog.String("incident_id", msg.IncidentID.String()),
		slog.String("tenant_id", msg.TenantID),
		slog.String("status", string(inc.Status())),
		slog.String("correlation_id", msg.CorrelationID),
	)
	return nil
}

func (s *IncidentService) load(ctx context.Context, tenantID string, incidentID uuid.UUID) (*incident.Incident, error) {
	inc, err := s.repo.Get(ctx, tenantID, incidentID)
	if err != nil {
		return nil, err
	}
	if inc == nil {
		return nil, fmt.Errorf("%w: incident %s for tenant %s", ErrNotFound, incidentID, tenantID)
	}
	return inc, nil
}

func mapDetail(inc *incident.Incident) IncidentDetail {
	items := inc.Evidence()
	evidenceDetails := make([]EvidenceDetail, len(items))
	for i, item := range items {
		evidenceDetails[i] = EvidenceDetail{
			FileName:   item.FileName,
			ObjectKey:  item.ObjectKey,
			UploadedAt: item.UploadedAt,
		}
	}
	return IncidentDetail{
		IncidentID:    inc.ID(),
		TenantID:      inc.TenantID(),
		Title:         inc.Title(),
		Description:   inc.Description(),
		Priority:      inc.Priority(),
		Location:      inc.Location(),
		Status:        inc.Status(),
		CreatedAt:     inc.CreatedAt(),
		ReportedAt:    inc.ReportedAt(),
		QueuedAt:      inc.QueuedAt(),
		ProcessedAt:   inc.ProcessedAt(),
		FailureReason: inc.FailureReason(),
		Evidence:      evidenceDetails,
		Version:       inc.Version(),
	}
}
