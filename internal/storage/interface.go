package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

// ReceiptStore is the blob backend for generated receipts. Backends are a
// local directory (mock) or a GCS bucket; callers only see the returned URL.
type ReceiptStore interface {
	// Put writes the object and returns a URL a client can fetch it from.
	// metadata is stored alongside the blob (amount, payer, date).
	Put(ctx context.Context, key, contentType string, body io.Reader, metadata map[string]string) (string, error)

	// Open returns the object's content. Missing objects give ErrObjectNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists and returns its size
	Exists(ctx context.Context, key string) (exists bool, size int64, err error)

	Delete(ctx context.Context, key string) error
}
