// Package memory provides an in-memory kiln.Repository, intended for tests
// and single-process setups. Filters are evaluated in process since there
// is no native JSON predicate engine to push them down to.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kilnhq/kiln/pkg/kiln"
)

// Repository implements kiln.Repository using in-memory storage
type Repository struct {
	mu              sync.RWMutex
	contentItems    map[uuid.UUID]*kiln.ContentItem
	revisions       map[uuid.UUID]*kiln.ContentItemRevision
	revisionsByItem map[uuid.UUID][]uuid.UUID // content_item_id -> revision ids in append order
	deleted         map[uuid.UUID]*kiln.DeletedContentItem // keyed by content_item_id
	contentTypes    map[uuid.UUID]*kiln.ContentType
	typesByName     map[string]uuid.UUID
	mediaItems      map[uuid.UUID]*kiln.MediaItem
	mediaByKey      map[string]uuid.UUID
}

// New creates a new in-memory repository
func New() kiln.Repository {
	return &Repository{
		contentItems:    make(map[uuid.UUID]*kiln.ContentItem),
		revisions:       make(map[uuid.UUID]*kiln.ContentItemRevision),
		revisionsByItem: make(map[uuid.UUID][]uuid.UUID),
		deleted:         make(map[uuid.UUID]*kiln.DeletedContentItem),
		contentTypes:    make(map[uuid.UUID]*kiln.ContentType),
		typesByName:     make(map[string]uuid.UUID),
		mediaItems:      make(map[uuid.UUID]*kiln.MediaItem),
		mediaByKey:      make(map[string]uuid.UUID),
	}
}

// Copies keep callers from mutating repository state through shared
// document pointers.

func copyItem(item *kiln.ContentItem) *kiln.ContentItem {
	cp := *item
	cp.DraftContent = item.DraftContent.Clone()
	cp.PublishedContent = item.PublishedContent.Clone()
	return &cp
}

func copyRevision(rev *kiln.ContentItemRevision) *kiln.ContentItemRevision {
	cp := *rev
	cp.PublishedContent = rev.PublishedContent.Clone()
	return &cp
}

func copyTombstone(t *kiln.DeletedContentItem) *kiln.DeletedContentItem {
	cp := *t
	cp.DraftContent = t.DraftContent.Clone()
	cp.PublishedContent = t.PublishedContent.Clone()
	return &cp
}

func copyType(ct *kiln.ContentType) *kiln.ContentType {
	cp := *ct
	cp.Fields = append([]kiln.ContentTypeField(nil), ct.Fields...)
	return &cp
}

// Content item operations

func (r *Repository) CreateContentItem(ctx context.Context, item *kiln.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contentItems[item.ID]; exists {
		return fmt.Errorf("content item %s: %w", item.ID, kiln.ErrAlreadyExists)
	}
	r.contentItems[item.ID] = copyItem(item)
	return nil
}

func (r *Repository) GetContentItem(ctx context.Context, id uuid.UUID) (*kiln.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.contentItems[id]
	if !exists {
		return nil, fmt.Errorf("content item %s: %w", id, kiln.ErrNotFound)
	}
	return copyItem(item), nil
}

func (r *Repository) UpdateContentItem(ctx context.Context, item *kiln.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.updateContentItemLocked(item)
}

func (r *Repository) updateContentItemLocked(item *kiln.ContentItem) error {
	if _, exists := r.contentItems[item.ID]; !exists {
		return fmt.Errorf("content item %s: %w", item.ID, kiln.ErrNotFound)
	}
	r.contentItems[item.ID] = copyItem(item)
	return nil
}

func (r *Repository) FindContentItems(ctx context.Context, contentType *kiln.ContentType, q kiln.FindQuery) ([]*kiln.ContentItem, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*kiln.ContentItem
	for _, item := range r.contentItems {
		if item.ContentTypeID != contentType.ID {
			continue
		}
		if q.Source == kiln.SourcePublished && item.PublishedContent == nil {
			continue
		}
		if !kiln.MatchesFilter(item, q.Source, q.Filter) {
			continue
		}
		matched = append(matched, item)
	}

	sortClauses := q.Sort
	if len(sortClauses) == 0 {
		// Stable default ordering: newest first.
		sortClauses = []kiln.SortClause{{FieldKey: "created_at", Descending: true}}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		for _, clause := range sortClauses {
			if cmp := kiln.CompareItems(matched[i], matched[j], q.Source, clause); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})

	total := len(matched)
	start := q.PageIndex * q.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	page := make([]*kiln.ContentItem, 0, end-start)
	for _, item := range matched[start:end] {
		page = append(page, copyItem(item))
	}
	return page, total, nil
}

// Revision ledger operations

func (r *Repository) AppendRevisionAndUpdateItem(ctx context.Context, revision *kiln.ContentItemRevision, item *kiln.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check the item first so a failed update leaves no stray revision.
	if err := r.updateContentItemLocked(item); err != nil {
		return err
	}
	r.revisions[revision.ID] = copyRevision(revision)
	r.revisionsByItem[revision.ContentItemID] = append(r.revisionsByItem[revision.ContentItemID], revision.ID)
	return nil
}

func (r *Repository) ListRevisions(ctx context.Context, contentItemID uuid.UUID) ([]*kiln.ContentItemRevision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.revisionsByItem[contentItemID]
	// Newest first.
	out := make([]*kiln.ContentItemRevision, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, copyRevision(r.revisions[ids[i]]))
	}
	return out, nil
}

func (r *Repository) GetRevision(ctx context.Context, id uuid.UUID) (*kiln.ContentItemRevision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rev, exists := r.revisions[id]
	if !exists {
		return nil, fmt.Errorf("revision %s: %w", id, kiln.ErrNotFound)
	}
	return copyRevision(rev), nil
}

// Soft delete

func (r *Repository) MoveToDeleted(ctx context.Context, item *kiln.ContentItem, tombstone *kiln.DeletedContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contentItems[item.ID]; !exists {
		return fmt.Errorf("content item %s: %w", item.ID, kiln.ErrNotFound)
	}
	delete(r.contentItems, item.ID)
	r.deleted[tombstone.ContentItemID] = copyTombstone(tombstone)
	return nil
}

func (r *Repository) GetDeletedContentItem(ctx context.Context, contentItemID uuid.UUID) (*kiln.DeletedContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.deleted[contentItemID]
	if !exists {
		return nil, fmt.Errorf("deleted content item %s: %w", contentItemID, kiln.ErrNotFound)
	}
	return copyTombstone(t), nil
}

func (r *Repository) Restore(ctx context.Context, tombstone *kiln.DeletedContentItem, item *kiln.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.deleted[tombstone.ContentItemID]; !exists {
		return fmt.Errorf("deleted content item %s: %w", tombstone.ContentItemID, kiln.ErrNotFound)
	}
	if _, exists := r.contentItems[item.ID]; exists {
		return fmt.Errorf("content item %s: %w", item.ID, kiln.ErrAlreadyExists)
	}
	delete(r.deleted, tombstone.ContentItemID)
	r.contentItems[item.ID] = copyItem(item)
	return nil
}

// Content type operations

func (r *Repository) CreateContentType(ctx context.Context, ct *kiln.ContentType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.typesByName[ct.DeveloperName]; exists {
		return fmt.Errorf("content type %q: %w", ct.DeveloperName, kiln.ErrAlreadyExists)
	}
	r.contentTypes[ct.ID] = copyType(ct)
	r.typesByName[ct.DeveloperName] = ct.ID
	return nil
}

func (r *Repository) GetContentType(ctx context.Context, id uuid.UUID) (*kiln.ContentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ct, exists := r.contentTypes[id]
	if !exists {
		return nil, fmt.Errorf("content type %s: %w", id, kiln.ErrNotFound)
	}
	return copyType(ct), nil
}

func (r *Repository) GetContentTypeByDeveloperName(ctx context.Context, developerName string) (*kiln.ContentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.typesByName[developerName]
	if !exists {
		return nil, fmt.Errorf("content type %q: %w", developerName, kiln.ErrNotFound)
	}
	return copyType(r.contentTypes[id]), nil
}

func (r *Repository) UpdateContentType(ctx context.Context, ct *kiln.ContentType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.contentTypes[ct.ID]
	if !exists {
		return fmt.Errorf("content type %s: %w", ct.ID, kiln.ErrNotFound)
	}
	if existing.DeveloperName != ct.DeveloperName {
		if _, taken := r.typesByName[ct.DeveloperName]; taken {
			return fmt.Errorf("content type %q: %w", ct.DeveloperName, kiln.ErrAlreadyExists)
		}
		delete(r.typesByName, existing.DeveloperName)
		r.typesByName[ct.DeveloperName] = ct.ID
	}
	r.contentTypes[ct.ID] = copyType(ct)
	return nil
}

func (r *Repository) ListContentTypes(ctx context.Context) ([]*kiln.ContentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*kiln.ContentType, 0, len(r.contentTypes))
	for _, ct := range r.contentTypes {
		out = append(out, copyType(ct))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DeveloperName < out[j].DeveloperName
	})
	return out, nil
}

// Media item operations

func (r *Repository) CreateMediaItem(ctx context.Context, item *kiln.MediaItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mediaItems[item.ID]; exists {
		return fmt.Errorf("media item %s: %w", item.ID, kiln.ErrAlreadyExists)
	}
	if _, exists := r.mediaByKey[item.ObjectKey]; exists {
		return fmt.Errorf("object key %q: %w", item.ObjectKey, kiln.ErrAlreadyExists)
	}
	cp := *item
	r.mediaItems[item.ID] = &cp
	r.mediaByKey[item.ObjectKey] = item.ID
	return nil
}

func (r *Repository) GetMediaItem(ctx context.Context, id uuid.UUID) (*kiln.MediaItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.mediaItems[id]
	if !exists {
		return nil, fmt.Errorf("media item %s: %w", id, kiln.ErrNotFound)
	}
	cp := *item
	return &cp, nil
}

func (r *Repository) GetMediaItemByObjectKey(ctx context.Context, objectKey string) (*kiln.MediaItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.mediaByKey[objectKey]
	if !exists {
		return nil, fmt.Errorf("media item with key %q: %w", objectKey, kiln.ErrNotFound)
	}
	cp := *r.mediaItems[id]
	return &cp, nil
}

func (r *Repository) DeleteMediaItem(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.mediaItems[id]
	if !exists {
		return fmt.Errorf("media item %s: %w", id, kiln.ErrNotFound)
	}
	delete(r.mediaByKey, item.ObjectKey)
	delete(r.mediaItems, id)
	return nil
}

func (r *Repository) SumMediaLength(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, item := range r.mediaItems {
		total += item.Length
	}
	return total, nil
}
