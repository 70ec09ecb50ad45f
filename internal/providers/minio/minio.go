package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"retro/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const archivePrefix = "boards/"

// MinioProvider archives snapshots of swept boards. Snapshots are written in
// stored form, so encrypted content stays encrypted in the bucket.
type MinioProvider struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
	now    func() time.Time
}

// NewMinioProvider returns nil, nil when no MinIO URL is configured.
func NewMinioProvider(cfg *config.Config, logger *zap.Logger) (*MinioProvider, error) {
	if cfg.MinioURL == "" {
		return nil, nil
	}

	minioURL := cfg.MinioURL
	if !strings.HasPrefix(minioURL, "http://") && !strings.HasPrefix(minioURL, "https://") {
		minioURL = "https://" + minioURL
	}

	u, err := url.Parse(minioURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse minio URL: %w", err)
	}
	secure := u.Scheme == "https"

	logger.Info("Initializing MinIO", zap.String("endpoint", u.Host), zap.Bool("secure", secure))

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 16

	client, err := minio.New(u.Host, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.MinioUser, cfg.MinioPassword, ""),
		Secure:    secure,
		Region:    cfg.MinioRegion,
		Transport: tr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	provider := &MinioProvider{
		client: client,
		bucket: cfg.MinioBucket,
		logger: logger,
		now:    time.Now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := provider.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return provider, nil
}

func (m *MinioProvider) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	m.logger.Info("Created MinIO bucket", zap.String("bucket", m.bucket))
	return nil
}

// Ping reports whether the archive bucket is reachable.
func (m *MinioProvider) Ping(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("minio is not configured")
	}
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", m.bucket)
	}
	return nil
}

// ObjectName places a board's archive under the month it was swept.
func ObjectName(boardID string, sweptAt time.Time) string {
	return fmt.Sprintf("%s%s/%s.json", archivePrefix, sweptAt.UTC().Format("2006/01"), boardID)
}

func encodeArchive(boardID string, snapshot any, sweptAt time.Time) (string, []byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return ObjectName(boardID, sweptAt), data, nil
}

// ArchiveBoard stores snapshot as JSON and returns the object name.
func (m *MinioProvider) ArchiveBoard(ctx context.Context, boardID string, snapshot any) (string, error) {
	objectName, data, err := encodeArchive(boardID, snapshot, m.now())
	if err != nil {
		return "", err
	}

	_, err = m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	m.logger.Info("Board archived",
		zap.String("board_id", boardID),
		zap.String("object_name", objectName),
		zap.Int("size", len(data)),
	)
	return objectName, nil
}
