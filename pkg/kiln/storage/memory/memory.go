// Package memory is an in-memory implementation of the kiln.FileStore
// interface, intended for tests. It behaves like a cloud backend: presigned
// upload URLs are supported (as fake but stable strings) and download URLs
// carry the expiry they were minted with.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kilnhq/kiln/pkg/kiln"
)

// Backend is an in-memory implementation of the kiln.FileStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// New creates a new in-memory storage backend
func New() kiln.FileStore {
	return &Backend{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (b *Backend) GetUploadURL(ctx context.Context, objectKey string, expiresIn time.Duration) (string, error) {
	return fmt.Sprintf("memory://upload/%s?expires_in=%ds", objectKey, int(expiresIn.Seconds())), nil
}

func (b *Backend) Upload(ctx context.Context, objectKey string, contentType string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read object data: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[objectKey] = data
	b.types[objectKey] = contentType
	return nil
}

func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string, expiresIn time.Duration) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, exists := b.objects[objectKey]; !exists {
		return "", fmt.Errorf("object %q: %w", objectKey, kiln.ErrNotFound)
	}
	return fmt.Sprintf("memory://download/%s?expires_in=%ds", objectKey, int(expiresIn.Seconds())), nil
}

func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, fmt.Errorf("object %q: %w", objectKey, kiln.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, objectKey)
	delete(b.types, objectKey)
	return nil
}

func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.objects[objectKey]
	return exists, nil
}
