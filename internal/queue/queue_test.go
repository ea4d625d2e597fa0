package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testMessage(tenant string) Message {
	return Message{
		MessageType:   MessageTypeProcessingRequested,
		TenantID:      tenant,
		IncidentID:    uuid.New(),
		CorrelationID: "corr-1",
		OccurredAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryQueuePublishReceiveDelete(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	first := testMessage("tenant-a")
	second := testMessage("tenant-a")
	if err := q.Publish(ctx, first); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := q.Publish(ctx, second); err != nil {
		t.Fatalf("publish: %v", err)
	}

	envs, err := q.Receive(ctx, 10)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(envs) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(envs))
	}
	if envs[0].Message.IncidentID != first.IncidentID {
		t.Fatalf("expected insertion order")
	}

	if err := q.Delete(ctx, envs[0].ReceiptHandle); err != nil {
		t.Fatalf("delete: %v", err)
	}
	remaining, err := q.Receive(ctx, 10)
	if err != nil {
		t.Fatalf("receive after delete: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Message.IncidentID != second.IncidentID {
		t.Fatalf("expected only the second message to remain")
	}
}

func TestMemoryQueueRedeliversUntilDeleted(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	if err := q.Publish(ctx, testMessage("tenant-a")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	firstRead, err := q.Receive(ctx, 1)
	if err != nil || len(firstRead) != 1 {
		t.Fatalf("first receive: %v (%d)", err, len(firstRead))
	}
	secondRead, err := q.Receive(ctx, 1)
	if err != nil || len(secondRead) != 1 {
		t.Fatalf("undeleted message must redeliver: %v (%d)", err, len(secondRead))
	}
	if firstRead[0].ReceiptHandle != secondRead[0].ReceiptHandle {
		t.Fatalf("memory queue reuses the handle for the same stored message")
	}
}

func TestMemoryQueueDeleteIsIdempotent(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	if err := q.Publish(ctx, testMessage("tenant-a")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	envs, err := q.Receive(ctx, 1)
	if err != nil || len(envs) != 1 {
		t.Fatalf("receive: %v", err)
	}
	if err := q.Delete(ctx, envs[0].ReceiptHandle); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := q.Delete(ctx, envs[0].ReceiptHandle); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}
	if err := q.Delete(ctx, "never-issued"); err != nil {
		t.Fatalf("unknown handle must be a no-op: %v", err)
	}
}

func TestMemoryQueueClampsMax(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := q.Publish(ctx, testMessage("tenant-a")); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	envs, err := q.Receive(ctx, 0)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(envs) != 1 {
		t.Fatalf("max below 1 clamps to 1, got %d", len(envs))
	}
	envs, err = q.Receive(ctx, 2)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(envs) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(envs))
	}
}

func TestDecodeBodySkipsMalformedPayloads(t *testing.T) {
	valid, _ := json.Marshal(testMessage("tenant-a"))
	cases := []struct {
		name string
		body []byte
		ok   bool
	}{
		{"valid", valid, true},
		{"empty", []byte(""), false},
		{"whitespace", []byte("   "), false},
		{"not json", []byte("{nope"), false},
		{"missing incident id", []byte(`{"messageType":"IncidentProcessingRequested","tenantId":"tenant-a"}`), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, ok := decodeBody(tc.body)
			if ok != tc.ok {
				t.Fatalf("decodeBody ok=%v, want %v", ok, tc.ok)
			}
			if ok && msg.TenantID != "tenant-a" {
				t.Fatalf("decoded wrong payload: %+v", msg)
			}
		})
	}
}

func TestMessageWireFormat(t *testing.T) {
	msg := testMessage("tenant-a")
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"messageType", "tenantId", "incidentId", "correlationId", "occurredAt"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing wire field %q in %s", key, b)
		}
	}
	if _, ok := raw["reason"]; ok {
		t.Fatalf("blank reason must be omitted")
	}
}
