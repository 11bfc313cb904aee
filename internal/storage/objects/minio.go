package objects

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gravadigital/wishdraw-api/internal/config"
	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/logger"
)

// MinioExporter uploads exports to an S3-compatible bucket and hands out presigned URLs
type MinioExporter struct {
	client *minio.Client
	bucket string
	urlTTL time.Duration
	log    *log.Logger
}

// NewMinioExporter builds an exporter from OBJECT_STORAGE_* settings and
// makes sure the bucket exists
func NewMinioExporter(ctx context.Context, cfg *config.Config) (*MinioExporter, error) {
	oc := cfg.ObjectStorage
	if oc.Endpoint == "" {
		return nil, fmt.Errorf("object storage endpoint is required")
	}
	if oc.Bucket == "" {
		return nil, fmt.Errorf("object storage bucket is required")
	}

	client, err := minio.New(oc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(oc.AccessKey, oc.SecretKey, ""),
		Secure: oc.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	ttl := oc.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	e := &MinioExporter{
		client: client,
		bucket: oc.Bucket,
		urlTTL: ttl,
		log:    logger.Get().With("component", "objects"),
	}
	if err := e.ensureBucket(ctx); err != nil {
		return nil, err
	}

	e.log.Info("Object storage ready", "endpoint", oc.Endpoint, "bucket", oc.Bucket)
	return e, nil
}

func (e *MinioExporter) ensureBucket(ctx context.Context) error {
	exists, err := e.client.BucketExists(ctx, e.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", e.bucket, err)
	}
	if exists {
		return nil
	}
	if err := e.client.MakeBucket(ctx, e.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", e.bucket, err)
	}
	e.log.Info("Created export bucket", "bucket", e.bucket)
	return nil
}

// Export uploads the rendered pick and returns a presigned download URL
func (e *MinioExporter) Export(ctx context.Context, participantID uuid.UUID, pick *draw.Pick) (string, error) {
	body := Render(pick)
	key := ObjectKey(participantID, pick)

	_, err := e.client.PutObject(ctx, e.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:        ContentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", Filename(pick.Name)),
	})
	if err != nil {
		e.log.Error("Failed to upload export", "key", key, "error", err)
		return "", fmt.Errorf("upload export: %w", err)
	}

	u, err := e.client.PresignedGetObject(ctx, e.bucket, key, e.urlTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign export: %w", err)
	}

	e.log.Debug("Export uploaded", "key", key, "participant_id", participantID)
	return u.String(), nil
}

var _ Exporter = (*MinioExporter)(nil)
