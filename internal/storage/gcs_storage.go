package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"chitfund-backend/internal/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorageService stores receipts in a Cloud Storage bucket.
type GCSStorageService struct {
	Client     *storage.Client
	BucketName string
}

// NewGCSStorageService dials Cloud Storage. With an empty credentials file the
// client falls back to application default credentials.
func NewGCSStorageService(ctx context.Context, bucketName, credentialsFile string, opts ...option.ClientOption) (*GCSStorageService, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCSStorageService{Client: client, BucketName: bucketName}, nil
}

func (g *GCSStorageService) Close() error {
	if g.Client == nil {
		return nil
	}
	return g.Client.Close()
}

// Put refuses to overwrite an existing receipt.
func (g *GCSStorageService) Put(ctx context.Context, key, contentType string, body io.Reader, metadata map[string]string) (string, error) {
	logger.ExternalServiceCall("gcs", "Put", "bucket", g.BucketName, "key", key)

	object := g.Client.Bucket(g.BucketName).Object(key)
	writer := object.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = metadata

	if _, err := io.Copy(writer, body); err != nil {
		_ = writer.Close()
		logger.ExternalServiceResult("gcs", "Put", err, "key", key)
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}
	if err := writer.Close(); err != nil {
		logger.ExternalServiceResult("gcs", "Put", err, "key", key)
		return "", fmt.Errorf("failed to finalize receipt upload: %w", err)
	}

	logger.ExternalServiceResult("gcs", "Put", nil, "key", key)
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.BucketName, key), nil
}

func (g *GCSStorageService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.Client.Bucket(g.BucketName).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	return r, err
}

func (g *GCSStorageService) Exists(ctx context.Context, key string) (bool, int64, error) {
	attrs, err := g.Client.Bucket(g.BucketName).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, attrs.Size, nil
}

func (g *GCSStorageService) Delete(ctx context.Context, key string) error {
	err := g.Client.Bucket(g.BucketName).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}
