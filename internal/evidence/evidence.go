package evidence

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PresignedUpload struct {
	UploadURL string
	ObjectKey string
	ExpiresAt time.Time
}

// Storage hands out time-boxed upload credentials scoped to one incident's
// evidence prefix. The core never touches object bytes.
type Storage interface {
	CreateUploadURL(ctx context.Context, tenantID string, incidentID uuid.UUID, fileName, contentType string) (PresignedUpload, error)
}

func objectKey(tenantID string, incidentID uuid.UUID, fileName string) string {
	sanitized := path.Base(strings.TrimSpace(fileName))
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("tenant/%s/incident/%s/evidence/%s-%s", tenantID, incidentID, nonce, sanitized)
}
