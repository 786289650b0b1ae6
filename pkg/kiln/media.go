package kiln

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilnhq/kiln/pkg/kiln/objectkey"
)

// Storage limit defaults.
const (
	DefaultMaxFileSize       = int64(20) * 1024 * 1024
	DefaultMaxTotalDiskSpace = int64(1) * 1024 * 1024 * 1024
	DefaultURLExpiry         = 24 * time.Hour
)

// DefaultAllowedMimeTypes is the default comma-separated allow list of MIME
// patterns. A trailing "/*" matches any subtype.
const DefaultAllowedMimeTypes = "text/*,image/*,video/*,audio/*,application/pdf"

// StorageLimits is the explicit limit configuration handed to the service
// at construction. MaxTotalDiskSpace applies only to backends that report
// local usage; cloud backends enforce quota on their own side.
type StorageLimits struct {
	MaxFileSize       int64
	MaxTotalDiskSpace int64
	AllowedMimeTypes  []string
	URLExpiry         time.Duration
}

// DefaultStorageLimits returns the built-in limits: 20 MB per file, 1 GB
// total, the common text/image/video/audio/pdf patterns, 24 hour URLs.
func DefaultStorageLimits() StorageLimits {
	return StorageLimits{
		MaxFileSize:       DefaultMaxFileSize,
		MaxTotalDiskSpace: DefaultMaxTotalDiskSpace,
		AllowedMimeTypes:  ParseMimePatterns(DefaultAllowedMimeTypes),
		URLExpiry:         DefaultURLExpiry,
	}
}

// ParseMimePatterns splits a comma-separated pattern list, trimming blanks.
func ParseMimePatterns(csv string) []string {
	var patterns []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// AllowsMimeType reports whether contentType matches any configured
// pattern. An empty pattern list allows everything.
func (l StorageLimits) AllowsMimeType(contentType string) bool {
	if len(l.AllowedMimeTypes) == 0 {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, pattern := range l.AllowedMimeTypes {
		pattern = strings.ToLower(pattern)
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			if strings.HasPrefix(ct, prefix+"/") {
				return true
			}
			continue
		}
		if ct == pattern {
			return true
		}
	}
	return false
}

// validateUpload applies the size and MIME checks shared by both upload
// flows before any bytes or URLs leave the service.
func (s *service) validateUpload(fileName, contentType string, length int64) error {
	if fileName == "" {
		return fmt.Errorf("file name is required")
	}
	if length < 0 {
		return fmt.Errorf("negative length %d", length)
	}
	if s.limits.MaxFileSize > 0 && length > s.limits.MaxFileSize {
		return fmt.Errorf("file of %d bytes exceeds the %d byte limit: %w", length, s.limits.MaxFileSize, ErrFileTooLarge)
	}
	if !s.limits.AllowsMimeType(contentType) {
		return fmt.Errorf("content type %q is not allowed: %w", contentType, ErrMimeTypeNotAllowed)
	}
	return nil
}

func (s *service) requireFileStore() error {
	if s.fileStore == nil {
		return fmt.Errorf("no file store configured: %w", ErrUnsupportedOperation)
	}
	return nil
}

// checkQuota verifies the incoming length fits under the total disk budget,
// counting what the repository already accounts for.
func (s *service) checkQuota(ctx context.Context, length int64) error {
	if s.limits.MaxTotalDiskSpace <= 0 {
		return nil
	}
	used, err := s.repository.SumMediaLength(ctx)
	if err != nil {
		return fmt.Errorf("compute storage usage: %w", err)
	}
	if used+length > s.limits.MaxTotalDiskSpace {
		return fmt.Errorf("upload of %d bytes would exceed the %d byte budget (%d used): %w",
			length, s.limits.MaxTotalDiskSpace, used, ErrQuotaExceeded)
	}
	return nil
}

// UploadMediaItem is the server-relayed flow: validate, stream the bytes to
// the backend, then record the media item. Validation failures abort before
// any byte is persisted.
// countingReader tracks how many bytes passed through.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *service) UploadMediaItem(ctx context.Context, reader io.Reader, req UploadMediaRequest) (*MediaItem, error) {
	if err := s.requireFileStore(); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, req.Principal, PermMediaWrite); err != nil {
		return nil, err
	}
	if err := s.validateUpload(req.FileName, req.ContentType, req.Length); err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, req.Length); err != nil {
		return nil, err
	}

	id := uuid.New()
	key := objectkey.FromIDAndFileName(id.String(), req.FileName)

	// Store at most the declared length, then verify the stream carried
	// exactly that many bytes. Length and stored bytes must agree.
	counted := &countingReader{r: io.LimitReader(reader, req.Length)}
	if err := s.fileStore.Upload(ctx, key, req.ContentType, counted); err != nil {
		return nil, &StorageError{Provider: s.provider, Key: key, Op: "upload", Err: err}
	}
	extra, _ := io.CopyN(io.Discard, reader, 1)
	if counted.n != req.Length || extra > 0 {
		if delErr := s.fileStore.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "orphan cleanup failed", "object_key", key, "error", delErr)
		}
		return nil, &MediaItemError{MediaItemID: id, Op: "upload",
			Err: fmt.Errorf("stream carried %d bytes, declared %d: %w", counted.n+extra, req.Length, ErrLengthMismatch)}
	}

	item := &MediaItem{
		ID:          id,
		FileName:    req.FileName,
		Length:      req.Length,
		ContentType: req.ContentType,
		Provider:    s.provider,
		ObjectKey:   key,
		CreatedBy:   req.Principal,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repository.CreateMediaItem(ctx, item); err != nil {
		// Keep storage and records consistent when the insert loses.
		if delErr := s.fileStore.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "orphan cleanup failed", "object_key", key, "error", delErr)
		}
		return nil, &MediaItemError{MediaItemID: id, Op: "create", Err: err}
	}

	s.audit(ctx, "media_item.created", func() error {
		return s.auditSink.MediaItemCreated(ctx, item)
	})
	return item, nil
}

// PresignMediaUpload is the issuance half of the direct-to-cloud flow. The
// id and object key are handed out without persisting anything; the client
// uploads to the URL and then calls FinalizeMediaUpload.
func (s *service) PresignMediaUpload(ctx context.Context, req PresignMediaUploadRequest) (*PresignedUpload, error) {
	if err := s.requireFileStore(); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, req.Principal, PermMediaWrite); err != nil {
		return nil, err
	}
	if err := s.validateUpload(req.FileName, req.ContentType, req.Length); err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, req.Length); err != nil {
		return nil, err
	}

	id := uuid.New()
	key := objectkey.FromIDAndFileName(id.String(), req.FileName)

	url, err := s.fileStore.GetUploadURL(ctx, key, s.limits.URLExpiry)
	if err != nil {
		return nil, &StorageError{Provider: s.provider, Key: key, Op: "get_upload_url", Err: err}
	}
	return &PresignedUpload{ID: id, ObjectKey: key, URL: url}, nil
}

// FinalizeMediaUpload records a completed direct-to-cloud upload from the
// client-reported parameters, without re-reading the bytes. It is
// idempotent: a replay for an already-recorded id fails with AlreadyExists
// and never creates a duplicate.
func (s *service) FinalizeMediaUpload(ctx context.Context, req FinalizeMediaUploadRequest) (*MediaItem, error) {
	if err := s.authorize(ctx, req.Principal, PermMediaWrite); err != nil {
		return nil, err
	}
	if err := s.validateUpload(req.FileName, req.ContentType, req.Length); err != nil {
		return nil, err
	}
	if expected := objectkey.FromIDAndFileName(req.ID.String(), req.FileName); req.ObjectKey != expected {
		return nil, fmt.Errorf("object key %q does not match %q derived from id and filename", req.ObjectKey, expected)
	}

	if existing, err := s.repository.GetMediaItem(ctx, req.ID); err == nil && existing != nil {
		return nil, &MediaItemError{MediaItemID: req.ID, Op: "finalize", Err: ErrAlreadyExists}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, &MediaItemError{MediaItemID: req.ID, Op: "finalize", Err: err}
	}

	item := &MediaItem{
		ID:          req.ID,
		FileName:    req.FileName,
		Length:      req.Length,
		ContentType: req.ContentType,
		Provider:    s.provider,
		ObjectKey:   req.ObjectKey,
		CreatedBy:   req.Principal,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repository.CreateMediaItem(ctx, item); err != nil {
		return nil, &MediaItemError{MediaItemID: req.ID, Op: "finalize", Err: err}
	}

	s.audit(ctx, "media_item.created", func() error {
		return s.auditSink.MediaItemCreated(ctx, item)
	})
	return item, nil
}

func (s *service) GetMediaItem(ctx context.Context, id uuid.UUID) (*MediaItem, error) {
	item, err := s.repository.GetMediaItem(ctx, id)
	if err != nil {
		return nil, &MediaItemError{MediaItemID: id, Op: "get", Err: err}
	}
	return item, nil
}

// GetMediaDownloadURL returns a fresh time-limited URL for the item's
// object. URLs are signed per call and never cached: a prior signature may
// already have expired.
func (s *service) GetMediaDownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	if err := s.requireFileStore(); err != nil {
		return "", err
	}
	item, err := s.repository.GetMediaItem(ctx, id)
	if err != nil {
		return "", &MediaItemError{MediaItemID: id, Op: "get_download_url", Err: err}
	}
	url, err := s.fileStore.GetDownloadURL(ctx, item.ObjectKey, item.FileName, s.limits.URLExpiry)
	if err != nil {
		return "", &StorageError{Provider: s.provider, Key: item.ObjectKey, Op: "get_download_url", Err: err}
	}
	return url, nil
}

func (s *service) GetMediaDownloadURLByObjectKey(ctx context.Context, objectKey string) (string, error) {
	if err := s.requireFileStore(); err != nil {
		return "", err
	}
	item, err := s.repository.GetMediaItemByObjectKey(ctx, objectKey)
	if err != nil {
		return "", fmt.Errorf("media item for key %q: %w", objectKey, err)
	}
	url, err := s.fileStore.GetDownloadURL(ctx, item.ObjectKey, item.FileName, s.limits.URLExpiry)
	if err != nil {
		return "", &StorageError{Provider: s.provider, Key: item.ObjectKey, Op: "get_download_url", Err: err}
	}
	return url, nil
}

func (s *service) DownloadMediaItem(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	if err := s.requireFileStore(); err != nil {
		return nil, err
	}
	item, err := s.repository.GetMediaItem(ctx, id)
	if err != nil {
		return nil, &MediaItemError{MediaItemID: id, Op: "download", Err: err}
	}
	rc, err := s.fileStore.Download(ctx, item.ObjectKey)
	if err != nil {
		return nil, &StorageError{Provider: s.provider, Key: item.ObjectKey, Op: "download", Err: err}
	}
	return rc, nil
}

func (s *service) DeleteMediaItem(ctx context.Context, id uuid.UUID) error {
	if err := s.requireFileStore(); err != nil {
		return err
	}
	if err := s.authorize(ctx, "", PermMediaDelete); err != nil {
		return err
	}
	item, err := s.repository.GetMediaItem(ctx, id)
	if err != nil {
		return &MediaItemError{MediaItemID: id, Op: "delete", Err: err}
	}
	if err := s.fileStore.Delete(ctx, item.ObjectKey); err != nil {
		return &StorageError{Provider: s.provider, Key: item.ObjectKey, Op: "delete", Err: err}
	}
	if err := s.repository.DeleteMediaItem(ctx, id); err != nil {
		return &MediaItemError{MediaItemID: id, Op: "delete", Err: err}
	}

	s.audit(ctx, "media_item.deleted", func() error {
		return s.auditSink.MediaItemDeleted(ctx, id)
	})
	return nil
}
