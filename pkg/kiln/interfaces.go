package kiln

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for content and media persistence.
//
// The compound operations (Publish, Revert, MoveToDeleted, Restore) must be
// atomic: either every write they describe lands, or none does.
type Repository interface {
	// Content item operations
	CreateContentItem(ctx context.Context, item *ContentItem) error
	GetContentItem(ctx context.Context, id uuid.UUID) (*ContentItem, error)
	UpdateContentItem(ctx context.Context, item *ContentItem) error
	FindContentItems(ctx context.Context, contentType *ContentType, q FindQuery) ([]*ContentItem, int, error)

	// Revision ledger operations. AppendRevisionAndUpdateItem persists the
	// revision and the mutated item in one atomic step.
	AppendRevisionAndUpdateItem(ctx context.Context, revision *ContentItemRevision, item *ContentItem) error
	ListRevisions(ctx context.Context, contentItemID uuid.UUID) ([]*ContentItemRevision, error)
	GetRevision(ctx context.Context, id uuid.UUID) (*ContentItemRevision, error)

	// Soft delete. MoveToDeleted removes the item and creates its tombstone;
	// Restore does the reverse.
	MoveToDeleted(ctx context.Context, item *ContentItem, tombstone *DeletedContentItem) error
	GetDeletedContentItem(ctx context.Context, contentItemID uuid.UUID) (*DeletedContentItem, error)
	Restore(ctx context.Context, tombstone *DeletedContentItem, item *ContentItem) error

	// Content type operations
	CreateContentType(ctx context.Context, ct *ContentType) error
	GetContentType(ctx context.Context, id uuid.UUID) (*ContentType, error)
	GetContentTypeByDeveloperName(ctx context.Context, developerName string) (*ContentType, error)
	UpdateContentType(ctx context.Context, ct *ContentType) error
	ListContentTypes(ctx context.Context) ([]*ContentType, error)

	// Media item operations
	CreateMediaItem(ctx context.Context, item *MediaItem) error
	GetMediaItem(ctx context.Context, id uuid.UUID) (*MediaItem, error)
	GetMediaItemByObjectKey(ctx context.Context, objectKey string) (*MediaItem, error)
	DeleteMediaItem(ctx context.Context, id uuid.UUID) error
	SumMediaLength(ctx context.Context) (int64, error)
}

// FileStore defines the interface for file storage backends.
//
// Backends that cannot mint presigned URLs (the local filesystem) return
// ErrUnsupportedOperation from GetUploadURL; callers fall back to relayed
// uploads through Upload.
type FileStore interface {
	// GetUploadURL returns a presigned URL a client can PUT the object to.
	GetUploadURL(ctx context.Context, objectKey string, expiresIn time.Duration) (string, error)

	// Upload writes the object through the server.
	Upload(ctx context.Context, objectKey string, contentType string, reader io.Reader) error

	// GetDownloadURL returns a URL serving the object, with a
	// Content-Disposition attachment filename where the backend supports it.
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string, expiresIn time.Duration) (string, error)

	// Download reads the object back.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectKey string) error

	// Exists reports whether the object is present.
	Exists(ctx context.Context, objectKey string) (bool, error)
}

// Authorizer decides whether a principal may perform an operation. The
// service consults it before every mutation; a nil error allows the call.
type Authorizer interface {
	Authorize(ctx context.Context, principal string, operation string) error
}

// AuditSink receives change notifications after successful mutations.
// Sink failures are logged and never fail the operation that fired them.
type AuditSink interface {
	ContentItemCreated(ctx context.Context, item *ContentItem) error
	ContentItemUpdated(ctx context.Context, item *ContentItem) error
	ContentItemPublished(ctx context.Context, item *ContentItem) error
	ContentItemReverted(ctx context.Context, item *ContentItem, revisionID uuid.UUID) error
	ContentItemDeleted(ctx context.Context, item *ContentItem) error
	ContentItemRestored(ctx context.Context, item *ContentItem) error
	MediaItemCreated(ctx context.Context, item *MediaItem) error
	MediaItemDeleted(ctx context.Context, mediaItemID uuid.UUID) error
}
