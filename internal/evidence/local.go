package evidence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"public-safety-incident-system/shared/clockx"
)

// LocalStorage is the development stand-in: the URL it returns points at a
// reserved domain and is never uploadable, but the object key and expiry have
// the same shape the S3 adapter produces.
type LocalStorage struct {
	clock  clockx.Clock
	expiry time.Duration
}

func NewLocalStorage(clock clockx.Clock, expiry time.Duration) *LocalStorage {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &LocalStorage{clock: clock, expiry: expiry}
}

func (s *LocalStorage) CreateUploadURL(ctx context.Context, tenantID string, incidentID uuid.UUID, fileName, contentType string) (PresignedUpload, error) {
	if err := ctx.Err(); err != nil {
		return PresignedUpload{}, err
	}
	key := objectKey(tenantID, incidentID, fileName)
	return PresignedUpload{
		UploadURL: "https://local-upload.invalid/" + key,
		ObjectKey: key,
		ExpiresAt: s.clock.Now().Add(s.expiry),
	}, nil
}
