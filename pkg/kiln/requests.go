package kiln

import (
	"github.com/google/uuid"
)

// CreateContentTypeRequest contains parameters for creating a content type.
// DeveloperName is derived from Label when empty.
type CreateContentTypeRequest struct {
	Label         string               `json:"label"`
	DeveloperName string               `json:"developer_name,omitempty"`
	Fields        []CreateFieldRequest `json:"fields,omitempty"`
}

// CreateFieldRequest contains parameters for one field of a content type.
type CreateFieldRequest struct {
	Label         string    `json:"label"`
	DeveloperName string    `json:"developer_name,omitempty"`
	Kind          FieldKind `json:"kind"`
	Required      bool      `json:"required,omitempty"`
}

// CreateContentItemRequest contains parameters for creating a content item.
// The new item starts in the draft-only state.
type CreateContentItemRequest struct {
	ContentTypeID uuid.UUID `json:"content_type_id"`
	Draft         *Document `json:"draft"`
	RoutePath     string    `json:"route_path,omitempty"`
	Principal     string    `json:"principal,omitempty"`
}

// UpdateDraftRequest contains parameters for replacing an item's draft
// document.
type UpdateDraftRequest struct {
	ID        uuid.UUID `json:"id"`
	Draft     *Document `json:"draft"`
	RoutePath string    `json:"route_path,omitempty"`
	Principal string    `json:"principal,omitempty"`
}

// PublishRequest contains parameters for publishing an item's draft.
type PublishRequest struct {
	ID        uuid.UUID `json:"id"`
	Principal string    `json:"principal,omitempty"`
}

// UnpublishRequest contains parameters for taking an item's published
// document back down to a draft.
type UnpublishRequest struct {
	ID        uuid.UUID `json:"id"`
	Principal string    `json:"principal,omitempty"`
}

// RevertRequest contains parameters for reverting an item to a ledger
// revision. The reverted snapshot lands in the draft only; the published
// document is untouched until the caller re-publishes.
type RevertRequest struct {
	RevisionID uuid.UUID `json:"revision_id"`
	Principal  string    `json:"principal,omitempty"`
}

// DeleteContentItemRequest contains parameters for soft-deleting an item.
type DeleteContentItemRequest struct {
	ID        uuid.UUID `json:"id"`
	Principal string    `json:"principal,omitempty"`
}

// RestoreContentItemRequest contains parameters for restoring a
// soft-deleted item from its tombstone.
type RestoreContentItemRequest struct {
	ID        uuid.UUID `json:"id"`
	Principal string    `json:"principal,omitempty"`
}

// FindRequest contains parameters for querying the items of a content type.
// TypeRef is the content type's developer name.
type FindRequest struct {
	TypeRef string    `json:"type_ref"`
	Query   FindQuery `json:"query"`
}

// UploadMediaRequest contains parameters for a server-relayed upload. The
// byte stream travels separately through the Reader argument of
// UploadMediaItem.
type UploadMediaRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Length      int64  `json:"length"`
	Principal   string `json:"principal,omitempty"`
}

// PresignMediaUploadRequest contains parameters for issuing a
// direct-to-cloud presigned upload URL.
type PresignMediaUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Length      int64  `json:"length"`
	Principal   string `json:"principal,omitempty"`
}

// PresignedUpload is the issuance half of the direct-to-cloud flow: the
// client PUTs to URL, then finalizes with the same ID and ObjectKey.
type PresignedUpload struct {
	ID        uuid.UUID `json:"id"`
	ObjectKey string    `json:"object_key"`
	URL       string    `json:"url"`
}

// FinalizeMediaUploadRequest contains the client-reported facts about a
// completed direct-to-cloud upload. The service records them without
// re-reading the bytes.
type FinalizeMediaUploadRequest struct {
	ID          uuid.UUID `json:"id"`
	ObjectKey   string    `json:"object_key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Length      int64     `json:"length"`
	Principal   string    `json:"principal,omitempty"`
}
