package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnavailable wraps queue backend failures: unreachable broker, rejected
// publish, failed receive. Empty receives are not errors.
var ErrUnavailable = errors.New("incident queue unavailable")

const MessageTypeProcessingRequested = "IncidentProcessingRequested"

type Message struct {
	MessageType   string    `json:"messageType"`
	TenantID      string    `json:"tenantId"`
	IncidentID    uuid.UUID `json:"incidentId"`
	CorrelationID string    `json:"correlationId"`
	OccurredAt    time.Time `json:"occurredAt"`
	Reason        string    `json:"reason,omitempty"`
}

// Envelope is one delivery of a message. The receipt handle identifies this
// delivery, not the message: acknowledging it removes exactly this delivery.
type Envelope struct {
	ReceiptHandle string
	Message       Message
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Consumer provides at-least-once consumption. Receive returns zero to max
// envelopes (clamped to the backend's own limit) without blocking beyond a
// short poll window; Delete is idempotent, unknown handles are a no-op.
type Consumer interface {
	Receive(ctx context.Context, maxMessages int) ([]Envelope, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// decodeBody rejects payloads that cannot be decoded into the message shape
// so one poisoned message never blocks consumption of valid ones.
func decodeBody(body []byte) (Message, bool) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return Message{}, false
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, false
	}
	if msg.IncidentID == uuid.Nil {
		return Message{}, false
	}
	return msg, true
}

func newReceiptHandle() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
