package storage

import (
	"context"
	"fmt"

	"chitfund-backend/internal/config"
)

// New builds the receipt backend selected by config.
func New(ctx context.Context, cfg config.StorageConfig) (ReceiptStore, error) {
	switch cfg.Type {
	case "", "mock":
		return NewMockStorageService(cfg.BaseURL, cfg.UploadDir)
	case "gcs":
		return NewGCSStorageService(ctx, cfg.Bucket, cfg.CredentialsFile)
	}
	return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
}
