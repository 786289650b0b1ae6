package kiln

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the main interface for the kiln library.
type Service interface {
	// Content type operations
	CreateContentType(ctx context.Context, req CreateContentTypeRequest) (*ContentType, error)
	GetContentType(ctx context.Context, id uuid.UUID) (*ContentType, error)
	GetContentTypeByDeveloperName(ctx context.Context, developerName string) (*ContentType, error)
	AddContentTypeField(ctx context.Context, contentTypeID uuid.UUID, req CreateFieldRequest) (*ContentType, error)
	ListContentTypes(ctx context.Context) ([]*ContentType, error)

	// Content item operations
	CreateContentItem(ctx context.Context, req CreateContentItemRequest) (*ContentItem, error)
	GetContentItem(ctx context.Context, id uuid.UUID) (*ContentItem, error)
	UpdateDraft(ctx context.Context, req UpdateDraftRequest) (*ContentItem, error)
	Publish(ctx context.Context, req PublishRequest) (*ContentItem, error)
	Unpublish(ctx context.Context, req UnpublishRequest) (*ContentItem, error)
	DeleteContentItem(ctx context.Context, req DeleteContentItemRequest) error
	RestoreContentItem(ctx context.Context, req RestoreContentItemRequest) (*ContentItem, error)

	// Revision ledger operations
	ListRevisions(ctx context.Context, contentItemID uuid.UUID) ([]*ContentItemRevision, error)
	Revert(ctx context.Context, req RevertRequest) (*ContentItem, error)

	// Query operations
	Find(ctx context.Context, req FindRequest) (*Page, error)
	FindOne(ctx context.Context, id uuid.UUID) (*ProjectedItem, error)

	// Media operations
	UploadMediaItem(ctx context.Context, reader io.Reader, req UploadMediaRequest) (*MediaItem, error)
	PresignMediaUpload(ctx context.Context, req PresignMediaUploadRequest) (*PresignedUpload, error)
	FinalizeMediaUpload(ctx context.Context, req FinalizeMediaUploadRequest) (*MediaItem, error)
	GetMediaItem(ctx context.Context, id uuid.UUID) (*MediaItem, error)
	GetMediaDownloadURL(ctx context.Context, id uuid.UUID) (string, error)
	GetMediaDownloadURLByObjectKey(ctx context.Context, objectKey string) (string, error)
	DownloadMediaItem(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
	DeleteMediaItem(ctx context.Context, id uuid.UUID) error
}
