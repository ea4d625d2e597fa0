package incident

import (
	"errors"
	"testing"
	"time"
)

var (
	reported = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	created  = time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
)

func newIncident(t *testing.T) *Incident {
	t.Helper()
	inc, err := New("tenant-a", "Gas leak", "Smell of gas on 4th floor", "High", "Building 7", reported, created)
	if err != nil {
		t.Fatalf("new incident: %v", err)
	}
	return inc
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name     string
		tenantID string
		title    string
		priority string
		location string
	}{
		{"blank tenant", "  ", "Fire", "High", "Dock 3"},
		{"blank title", "tenant-a", "", "High", "Dock 3"},
		{"unknown priority", "tenant-a", "Fire", "urgent", "Dock 3"},
		{"blank priority", "tenant-a", "Fire", "", "Dock 3"},
		{"blank location", "tenant-a", "Fire", "High", "   "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.tenantID, tc.title, "desc", tc.priority, tc.location, reported, created)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestNewStartsAtVersionOne(t *testing.T) {
	inc := newIncident(t)
	if inc.Version() != 1 {
		t.Fatalf("expected version 1, got %d", inc.Version())
	}
	if inc.Status() != StatusNew {
		t.Fatalf("expected status New, got %s", inc.Status())
	}
	if inc.QueuedAt() != nil || inc.ProcessedAt() != nil {
		t.Fatalf("expected no queue/process timestamps on a fresh incident")
	}
}

func TestPriorityCaseInsensitiveButPreserved(t *testing.T) {
	inc, err := New("tenant-a", "Fire", "desc", "cRiTiCaL", "Dock 3", reported, created)
	if err != nil {
		t.Fatalf("new incident: %v", err)
	}
	if inc.Priority() != "cRiTiCaL" {
		t.Fatalf("expected priority preserved as given, got %q", inc.Priority())
	}
}

func TestEveryMutationIncrementsVersionByOne(t *testing.T) {
	inc := newIncident(t)
	now := created.Add(time.Minute)

	if err := inc.AddEvidence("photo.jpg", "tenant/a/key", now); err != nil {
		t.Fatalf("add evidence: %v", err)
	}
	if inc.Version() != 2 {
		t.Fatalf("after AddEvidence expected version 2, got %d", inc.Version())
	}
	if err := inc.MarkQueued(now); err != nil {
		t.Fatalf("mark queued: %v", err)
	}
	if inc.Version() != 3 {
		t.Fatalf("after MarkQueued expected version 3, got %d", inc.Version())
	}
	if err := inc.MarkProcessed(now); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	if inc.Version() != 4 {
		t.Fatalf("after MarkProcessed expected version 4, got %d", inc.Version())
	}
}

func TestMarkQueuedTransitions(t *testing.T) {
	now := created.Add(time.Minute)

	t.Run("from new", func(t *testing.T) {
		inc := newIncident(t)
		if err := inc.MarkQueued(now); err != nil {
			t.Fatalf("queue from New: %v", err)
		}
		if inc.Status() != StatusQueued || inc.QueuedAt() == nil {
			t.Fatalf("expected Queued with timestamp, got %s", inc.Status())
		}
	})

	t.Run("requeue while queued", func(t *testing.T) {
		inc := newIncident(t)
		if err := inc.MarkQueued(now); err != nil {
			t.Fatalf("first queue: %v", err)
		}
		if err := inc.MarkQueued(now.Add(time.Minute)); err != nil {
			t.Fatalf("requeue: %v", err)
		}
		if inc.Version() != 3 {
			t.Fatalf("requeue must still bump version, got %d", inc.Version())
		}
	})

	t.Run("requeue after failure clears reason", func(t *testing.T) {
		inc := newIncident(t)
		if err := inc.MarkFailed("No evidence attached.", now); err != nil {
			t.Fatalf("fail: %v", err)
		}
		if err := inc.MarkQueued(now.Add(time.Minute)); err != nil {
			t.Fatalf("requeue after failure: %v", err)
		}
		if inc.FailureReason() != "" {
			t.Fatalf("expected failure reason cleared, got %q", inc.FailureReason())
		}
	})

	t.Run("processed is terminal for queueing", func(t *testing.T) {
		inc := newIncident(t)
		if err := inc.MarkQueued(now); err != nil {
			t.Fatalf("queue: %v", err)
		}
		if err := inc.MarkProcessed(now); err != nil {
			t.Fatalf("process: %v", err)
		}
		if err := inc.MarkQueued(now.Add(time.Minute)); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation queueing a processed incident, got %v", err)
		}
	})
}

func TestMarkProcessedRequiresQueued(t *testing.T) {
	inc := newIncident(t)
	if err := inc.MarkProcessed(created.Add(time.Minute)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation processing a New incident, got %v", err)
	}
	if inc.Version() != 1 {
		t.Fatalf("failed transition must not bump version, got %d", inc.Version())
	}
}

func TestMarkFailedFromAnyStatus(t *testing.T) {
	now := created.Add(time.Minute)

	inc := newIncident(t)
	if err := inc.MarkFailed("No evidence attached.", now); err != nil {
		t.Fatalf("fail from New: %v", err)
	}
	if inc.Status() != StatusFailed || inc.FailureReason() != "No evidence attached." {
		t.Fatalf("unexpected state %s / %q", inc.Status(), inc.FailureReason())
	}

	if err := inc.MarkFailed("  ", now); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank reason, got %v", err)
	}
}

func TestEvidenceReturnsCopy(t *testing.T) {
	inc := newIncident(t)
	if err := inc.AddEvidence("photo.jpg", "key-1", created); err != nil {
		t.Fatalf("add evidence: %v", err)
	}
	items := inc.Evidence()
	items[0].FileName = "tampered"
	if inc.Evidence()[0].FileName != "photo.jpg" {
		t.Fatalf("evidence slice must be a copy")
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus(" queued "); !ok || s != StatusQueued {
		t.Fatalf("expected Queued, got %q (ok=%v)", s, ok)
	}
	if _, ok := ParseStatus("done"); ok {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	inc := newIncident(t)
	now := created.Add(time.Minute)
	if err := inc.AddEvidence("photo.jpg", "key-1", now); err != nil {
		t.Fatalf("add evidence: %v", err)
	}
	if err := inc.MarkQueued(now); err != nil {
		t.Fatalf("queue: %v", err)
	}

	restored := FromSnapshot(inc.ToSnapshot())
	if restored.ID() != inc.ID() || restored.TenantID() != inc.TenantID() {
		t.Fatalf("identity lost in round trip")
	}
	if restored.Status() != StatusQueued || restored.Version() != inc.Version() {
		t.Fatalf("state lost in round trip: %s v%d", restored.Status(), restored.Version())
	}
	if len(restored.Evidence()) != 1 || restored.Evidence()[0].ObjectKey != "key-1" {
		t.Fatalf("evidence lost in round trip")
	}
}
