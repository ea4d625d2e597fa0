package evidence

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"public-safety-incident-system/shared/clockx"
)

type S3Storage struct {
	presigner *s3.PresignClient
	clock     clockx.Clock
	bucket    string
	expiry    time.Duration
}

func NewS3Storage(client *s3.Client, clock clockx.Clock, bucket string, expiry time.Duration) (*S3Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("EVIDENCE_BUCKET is required")
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3Storage{
		presigner: s3.NewPresignClient(client),
		clock:     clock,
		bucket:    bucket,
		expiry:    expiry,
	}, nil
}

func (s *S3Storage) CreateUploadURL(ctx context.Context, tenantID string, incidentID uuid.UUID, fileName, contentType string) (PresignedUpload, error) {
	key := objectKey(tenantID, incidentID, fileName)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	signed, err := s.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign evidence upload: %w", err)
	}
	return PresignedUpload{
		UploadURL: signed.URL,
		ObjectKey: key,
		ExpiresAt: s.clock.Now().Add(s.expiry),
	}, nil
}
