package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"chitfund-backend/internal/logger"
)

// MockStorageService keeps receipts on the local filesystem and serves them
// back through the API's download route. Used for demos and tests.
type MockStorageService struct {
	baseURL     string // Server URL (e.g., "http://localhost:8080")
	receiptsDir string
}

// NewMockStorageService creates a new mock storage service
func NewMockStorageService(baseURL, uploadsDir string) (*MockStorageService, error) {
	receiptsDir := filepath.Join(uploadsDir, "receipts")
	if err := os.MkdirAll(receiptsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create receipts directory: %w", err)
	}
	return &MockStorageService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		receiptsDir: receiptsDir,
	}, nil
}

// metaSuffix marks the sidecar Put writes next to each receipt; sidecars are
// never addressable by key.
const metaSuffix = ".meta.json"

func (m *MockStorageService) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") || strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(m.receiptsDir, clean), nil
}

// Put saves the blob and a sidecar metadata file.
func (m *MockStorageService) Put(ctx context.Context, key, contentType string, body io.Reader, metadata map[string]string) (string, error) {
	logger.ExternalServiceCall("mock-storage", "Put", "key", key)

	fullPath, err := m.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	meta := map[string]string{"content_type": contentType}
	for k, v := range metadata {
		meta[k] = v
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(fullPath+metaSuffix, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	logger.ExternalServiceResult("mock-storage", "Put", nil, "key", key)
	return fmt.Sprintf("%s/api/v1/receipts/download?key=%s", m.baseURL, url.QueryEscape(key)), nil
}

func (m *MockStorageService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := m.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Metadata returns the sidecar metadata written by Put.
func (m *MockStorageService) Metadata(key string) (map[string]string, error) {
	fullPath, err := m.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath + metaSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	meta := map[string]string{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (m *MockStorageService) Exists(ctx context.Context, key string) (bool, int64, error) {
	fullPath, err := m.path(key)
	if err != nil {
		return false, 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, info.Size(), nil
}

func (m *MockStorageService) Delete(ctx context.Context, key string) error {
	fullPath, err := m.path(key)
	if err != nil {
		return err
	}
	for _, p := range []string{fullPath, fullPath + metaSuffix} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	}
	return nil
}
