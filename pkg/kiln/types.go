package kiln

import (
	"time"

	"github.com/google/uuid"
)

// ItemState is the domain type for the content item lifecycle.
type ItemState string

// Content item states (derived from the draft/published documents, never
// stored directly).
const (
	// StateDraftOnly means no published document exists yet.
	StateDraftOnly ItemState = "draft_only"
	// StatePublished means the published document exists and equals the draft.
	StatePublished ItemState = "published"
	// StatePublishedWithPendingDraft means the published document exists and
	// the draft has diverged from it.
	StatePublishedWithPendingDraft ItemState = "published_with_pending_draft"
	// StateDeleted is terminal (soft); only restore leaves it.
	StateDeleted ItemState = "deleted"
)

// FieldKind is the declared data kind of a content type field. It never
// constrains the stored document shape; the query engine consults it to
// decide how to compare values for a key.
type FieldKind string

// Field kinds.
const (
	FieldKindText     FieldKind = "text"
	FieldKindLongText FieldKind = "long_text"
	FieldKindNumber   FieldKind = "number"
	FieldKindCheckbox FieldKind = "checkbox"
	FieldKindDate     FieldKind = "date"
	FieldKindDropdown FieldKind = "dropdown"
	FieldKindArray    FieldKind = "array"
)

// IsValid reports whether k is a recognized field kind.
func (k FieldKind) IsValid() bool {
	switch k {
	case FieldKindText, FieldKindLongText, FieldKindNumber, FieldKindCheckbox,
		FieldKindDate, FieldKindDropdown, FieldKindArray:
		return true
	}
	return false
}

// ContentItem is the aggregate root for one document-shaped record.
//
// DraftContent always exists; PublishedContent is nil until the first
// publish. IsDraft is derived, not stored: it is true when the item has
// never been published or the draft has diverged from the published
// snapshot.
type ContentItem struct {
	ID               uuid.UUID  `json:"id"`
	ContentTypeID    uuid.UUID  `json:"content_type_id"`
	DraftContent     *Document  `json:"draft_content"`
	PublishedContent *Document  `json:"published_content,omitempty"`
	RoutePath        string     `json:"route_path,omitempty"`
	CreatedBy        string     `json:"created_by,omitempty"`
	UpdatedBy        string     `json:"updated_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

// IsDraft reports whether the item has unpublished changes (or has never
// been published at all).
func (c *ContentItem) IsDraft() bool {
	if c.PublishedContent == nil {
		return true
	}
	return !c.DraftContent.Equal(c.PublishedContent)
}

// State derives the lifecycle state from the documents and the soft-delete
// marker.
func (c *ContentItem) State() ItemState {
	switch {
	case c.DeletedAt != nil:
		return StateDeleted
	case c.PublishedContent == nil:
		return StateDraftOnly
	case c.DraftContent.Equal(c.PublishedContent):
		return StatePublished
	default:
		return StatePublishedWithPendingDraft
	}
}

// ContentItemRevision is one immutable snapshot of a published document.
// Revisions are append-only: they are never mutated or reordered, and the
// newest revision for an item is its last known-good published state.
type ContentItemRevision struct {
	ID               uuid.UUID `json:"id"`
	ContentItemID    uuid.UUID `json:"content_item_id"`
	PublishedContent *Document `json:"published_content"`
	CreatedAt        time.Time `json:"created_at"`
}

// DeletedContentItem is the tombstone a soft-deleted content item moves
// into. It keeps enough to restore the item later, including the original
// creation provenance. CreatedBy and CreatedAt describe the item itself;
// DeletedBy and DeletedAt describe the deletion.
type DeletedContentItem struct {
	ID               uuid.UUID `json:"id"`
	ContentItemID    uuid.UUID `json:"content_item_id"`
	ContentTypeID    uuid.UUID `json:"content_type_id"`
	RoutePath        string    `json:"route_path,omitempty"`
	DraftContent     *Document `json:"draft_content"`
	PublishedContent *Document `json:"published_content,omitempty"`
	CreatedBy        string    `json:"created_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	DeletedBy        string    `json:"deleted_by,omitempty"`
	DeletedAt        time.Time `json:"deleted_at"`
}

// ContentType is a runtime-defined schema descriptor: a label, a
// developer-safe name, and an ordered list of field definitions.
type ContentType struct {
	ID            uuid.UUID          `json:"id"`
	Label         string             `json:"label"`
	DeveloperName string             `json:"developer_name"`
	Fields        []ContentTypeField `json:"fields"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// FieldByDeveloperName returns the field declared under name.
func (t *ContentType) FieldByDeveloperName(name string) (ContentTypeField, bool) {
	for _, f := range t.Fields {
		if f.DeveloperName == name {
			return f, true
		}
	}
	return ContentTypeField{}, false
}

// ContentTypeField describes one declared field of a content type.
// Developer names are unique within a type and immutable once content items
// reference them.
type ContentTypeField struct {
	ID            uuid.UUID `json:"id"`
	Label         string    `json:"label"`
	DeveloperName string    `json:"developer_name"`
	Kind          FieldKind `json:"kind"`
	Required      bool      `json:"required"`
}

// MediaItem records an uploaded file. The object key is derived
// deterministically from the id and the sanitized filename, so re-deriving
// it for URL construction never requires a lookup.
type MediaItem struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	Length      int64     `json:"length"`
	ContentType string    `json:"content_type"`
	Provider    string    `json:"provider"`
	ObjectKey   string    `json:"object_key"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
