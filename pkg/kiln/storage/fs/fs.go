// Package fs is a local-filesystem implementation of the kiln.FileStore
// interface. Uploads must be server-relayed: presigned upload URLs are not
// supported, and download URLs are static routes under the configured
// prefix rather than signed links.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilnhq/kiln/pkg/kiln"
)

// Backend is a filesystem implementation of the kiln.FileStore interface
type Backend struct {
	baseDir      string
	urlPrefix    string
	maxDiskSpace int64
}

// Config options for the filesystem backend
type Config struct {
	BaseDir      string // Base directory for storing files
	URLPrefix    string // URL prefix download URLs are built under
	MaxDiskSpace int64  // Total bytes allowed under BaseDir; 0 disables the quota
}

// New creates a new filesystem storage backend
func New(config Config) (kiln.FileStore, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:      config.BaseDir,
		urlPrefix:    strings.TrimSuffix(config.URLPrefix, "/"),
		maxDiskSpace: config.MaxDiskSpace,
	}, nil
}

func (b *Backend) objectPath(objectKey string) (string, error) {
	path := filepath.Join(b.baseDir, filepath.FromSlash(objectKey))
	// Keys are derived from ids and sanitized names, but never trust them
	// to stay inside the base directory.
	rel, err := filepath.Rel(b.baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("object key %q escapes the storage directory", objectKey)
	}
	return path, nil
}

// GetUploadURL always fails: local uploads are server-relayed.
func (b *Backend) GetUploadURL(ctx context.Context, objectKey string, expiresIn time.Duration) (string, error) {
	return "", fmt.Errorf("local storage has no presigned uploads: %w", kiln.ErrUnsupportedOperation)
}

// Upload writes the object under the base directory, enforcing the disk
// quota by summing the sizes of everything already stored.
func (b *Backend) Upload(ctx context.Context, objectKey string, contentType string, reader io.Reader) error {
	filePath, err := b.objectPath(objectKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if b.maxDiskSpace > 0 {
		used, err := b.usedBytes()
		if err != nil {
			return err
		}
		if used >= b.maxDiskSpace {
			return fmt.Errorf("local storage holds %d of %d allowed bytes; delete files or raise the limit: %w",
				used, b.maxDiskSpace, kiln.ErrQuotaExceeded)
		}
		// Cap the write at the remaining budget; anything longer fails.
		reader = io.LimitReader(reader, b.maxDiskSpace-used+1)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if b.maxDiskSpace > 0 && written > 0 {
		used, err := b.usedBytes()
		if err == nil && used > b.maxDiskSpace {
			os.Remove(filePath)
			return fmt.Errorf("upload would exceed the %d byte disk limit; delete files or raise the limit: %w",
				b.maxDiskSpace, kiln.ErrQuotaExceeded)
		}
	}
	return nil
}

func (b *Backend) usedBytes() (int64, error) {
	var total int64
	err := filepath.WalkDir(b.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure disk usage: %w", err)
	}
	return total, nil
}

// GetDownloadURL returns the static route serving the object. The expiry is
// ignored: local routes do not expire.
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string, expiresIn time.Duration) (string, error) {
	if b.urlPrefix == "" {
		return "", errors.New("url prefix is required for download URLs")
	}
	u := fmt.Sprintf("%s/%s", b.urlPrefix, url.PathEscape(objectKey))
	if downloadFilename != "" {
		u += "?filename=" + url.QueryEscape(downloadFilename)
	}
	return u, nil
}

// Download reads the object back from disk.
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	filePath, err := b.objectPath(objectKey)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("object %q: %w", objectKey, kiln.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the object. A missing object is not an error.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	filePath, err := b.objectPath(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether the object is present on disk.
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	filePath, err := b.objectPath(objectKey)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}
