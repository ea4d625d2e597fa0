package incident

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrValidation marks every rejection of an aggregate operation: blank
// required fields, unknown priorities, and illegal status transitions.
var ErrValidation = errors.New("incident validation")

type Status string

const (
	StatusNew       Status = "New"
	StatusQueued    Status = "Queued"
	StatusProcessed Status = "Processed"
	StatusFailed    Status = "Failed"
)

func ParseStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "new":
		return StatusNew, true
	case "queued":
		return StatusQueued, true
	case "processed":
		return StatusProcessed, true
	case "failed":
		return StatusFailed, true
	default:
		return "", false
	}
}

var allowedPriorities = map[string]struct{}{
	"low":      {},
	"medium":   {},
	"high":     {},
	"critical": {},
}

type EvidenceItem struct {
	FileName   string
	ObjectKey  string
	UploadedAt time.Time
}

// Incident is the tenant-scoped aggregate. Fields are unexported so the
// evidence list, status, and version only change through the methods below;
// the version counter stays a reliable optimistic-concurrency token.
type Incident struct {
	id            uuid.UUID
	tenantID      string
	title         string
	description   string
	priority      string
	location      string
	status        Status
	createdAt     time.Time
	reportedAt    time.Time
	queuedAt      *time.Time
	processedAt   *time.Time
	failureReason string
	evidence      []EvidenceItem
	version       int
}

func New(tenantID, title, description, priority, location string, reportedAt, createdAt time.Time) (*Incident, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: incident title is required", ErrValidation)
	}
	if _, ok := allowedPriorities[strings.ToLower(strings.TrimSpace(priority))]; !ok {
		return nil, fmt.Errorf("%w: priority must be one of Low, Medium, High, Critical", ErrValidation)
	}
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("%w: location is required", ErrValidation)
	}

	return &Incident{
		id:          uuid.New(),
		tenantID:    strings.TrimSpace(tenantID),
		title:       strings.TrimSpace(title),
		description: strings.TrimSpace(description),
		priority:    strings.TrimSpace(priority),
		location:    strings.TrimSpace(location),
		status:      StatusNew,
		createdAt:   createdAt,
		reportedAt:  reportedAt,
		version:     1,
	}, nil
}

func (i *Incident) ID() uuid.UUID           { return i.id }
func (i *Incident) TenantID() string        { return i.tenantID }
func (i *Incident) Title() string           { return i.title }
func (i *Incident) Description() string     { return i.description }
func (i *Incident) Priority() string        { return i.priority }
func (i *Incident) Location() string        { return i.location }
func (i *Incident) Status() Status          { return i.status }
func (i *Incident) CreatedAt() time.Time    { return i.createdAt }
func (i *Incident) ReportedAt() time.Time   { return i.reportedAt }
func (i *Incident) QueuedAt() *time.Time    { return copyTime(i.queuedAt) }
func (i *Incident) ProcessedAt() *time.Time { return copyTime(i.processedAt) }
func (i *Incident) FailureReason() string   { return i.failureReason }
func (i *Incident) Version() int            { return i.version }

func (i *Incident) Evidence() []EvidenceItem {
	out := make([]EvidenceItem, len(i.evidence))
	copy(out, i.evidence)
	return out
}

func (i *Incident) AddEvidence(fileName, objectKey string, uploadedAt time.Time) error {
	if strings.TrimSpace(fileName) == "" {
		return fmt.Errorf("%w: evidence file name is required", ErrValidation)
	}
	if strings.TrimSpace(objectKey) == "" {
		return fmt.Errorf("%w: evidence object key is required", ErrValidation)
	}
	i.evidence = append(i.evidence, EvidenceItem{
		FileName:   strings.TrimSpace(fileName),
		ObjectKey:  strings.TrimSpace(objectKey),
		UploadedAt: uploadedAt,
	})
	i.version++
	return nil
}

// MarkQueued re-queues Failed and already-Queued incidents; only a Processed
// incident is refused.
func (i *Incident) MarkQueued(queuedAt time.Time) error {
	if i.status == StatusProcessed {
		return fmt.Errorf("%w: a processed incident cannot be queued again", ErrValidation)
	}
	i.status = StatusQueued
	i.queuedAt = &queuedAt
	i.failureReason = ""
	i.version++
	return nil
}

func (i *Incident) MarkProcessed(processedAt time.Time) error {
	if i.status != StatusQueued {
		return fmt.Errorf("%w: only queued incidents can be processed", ErrValidation)
	}
	i.status = StatusProcessed
	i.processedAt = &processedAt
	i.failureReason = ""
	i.version++
	return nil
}

// MarkFailed is reachable from every status.
func (i *Incident) MarkFailed(reason string, failedAt time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: a failure reason is required", ErrValidation)
	}
	i.status = StatusFailed
	i.processedAt = &failedAt
	i.failureReason = strings.TrimSpace(reason)
	i.version++
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
