package evidence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"

	"public-safety-incident-system/shared/clockx"
)

func TestLocalCreateUploadURL(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := NewLocalStorage(clockx.Fixed{T: now}, 10*time.Minute)
	incidentID := uuid.New()

	upload, err := store.CreateUploadURL(context.Background(), "tenant-a", incidentID, "photo.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("create upload url: %v", err)
	}

	keyPattern := regexp.MustCompile(
		fmt.Sprintf(`^tenant/tenant-a/incident/%s/evidence/[0-9a-f]{32}-photo\.jpg$`, incidentID),
	)
	if !keyPattern.MatchString(upload.ObjectKey) {
		t.Fatalf("object key %q does not match expected layout", upload.ObjectKey)
	}
	if upload.UploadURL != "https://local-upload.invalid/"+upload.ObjectKey {
		t.Fatalf("unexpected upload url %q", upload.UploadURL)
	}
	if !upload.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("expected expiry at now+10m, got %s", upload.ExpiresAt)
	}
}

func TestObjectKeyStripsDirectoryComponents(t *testing.T) {
	incidentID := uuid.New()
	key := objectKey("tenant-a", incidentID, "  ../../etc/passwd ")
	if regexp.MustCompile(`\.\.`).MatchString(key) {
		t.Fatalf("path traversal survived sanitization: %q", key)
	}
	if !regexp.MustCompile(`-passwd$`).MatchString(key) {
		t.Fatalf("expected base name to survive, got %q", key)
	}
}

func TestObjectKeysAreUniquePerUpload(t *testing.T) {
	incidentID := uuid.New()
	a := objectKey("tenant-a", incidentID, "photo.jpg")
	b := objectKey("tenant-a", incidentID, "photo.jpg")
	if a == b {
		t.Fatalf("two uploads of the same file must not collide")
	}
}

func TestLocalDefaultExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := NewLocalStorage(clockx.Fixed{T: now}, 0)
	upload, err := store.CreateUploadURL(context.Background(), "tenant-a", uuid.New(), "clip.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("create upload url: %v", err)
	}
	if !upload.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expected 15m default expiry, got %s", upload.ExpiresAt)
	}
}
