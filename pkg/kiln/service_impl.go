package kiln

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Permission keys handed to the Authorizer before each mutation.
const (
	PermContentTypesManage = "content_types:manage"
	PermContentItemsWrite  = "content_items:write"
	PermContentItemsDelete = "content_items:delete"
	PermMediaWrite         = "media:write"
	PermMediaDelete        = "media:delete"
)

// service implements the Service interface
type service struct {
	repository Repository
	fileStore  FileStore
	provider   string
	authorizer Authorizer
	auditSink  AuditSink
	limits     StorageLimits
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithFileStore sets the file storage backend and the provider name
// recorded on media items stored through it
func WithFileStore(provider string, store FileStore) Option {
	return func(s *service) {
		s.provider = provider
		s.fileStore = store
	}
}

// WithAuthorizer sets the authorization collaborator
func WithAuthorizer(a Authorizer) Option {
	return func(s *service) {
		s.authorizer = a
	}
}

// WithAuditSink sets the audit sink for the service
func WithAuditSink(sink AuditSink) Option {
	return func(s *service) {
		s.auditSink = sink
	}
}

// WithStorageLimits sets the upload size, quota and MIME restrictions
func WithStorageLimits(limits StorageLimits) Option {
	return func(s *service) {
		s.limits = limits
	}
}

// WithLogger sets the structured logger used for audit sink failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		limits: DefaultStorageLimits(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.authorizer == nil {
		s.authorizer = NewAllowAllAuthorizer()
	}
	if s.auditSink == nil {
		s.auditSink = NewNoopAuditSink()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

func (s *service) authorize(ctx context.Context, principal, operation string) error {
	if err := s.authorizer.Authorize(ctx, principal, operation); err != nil {
		return fmt.Errorf("operation %s denied for %q: %w", operation, principal, err)
	}
	return nil
}

// audit runs one sink callback; sink failures are logged, never propagated.
func (s *service) audit(ctx context.Context, event string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.WarnContext(ctx, "audit sink failed", "event", event, "error", err)
	}
}

// Content type operations

func (s *service) CreateContentType(ctx context.Context, req CreateContentTypeRequest) (*ContentType, error) {
	if err := s.authorize(ctx, "", PermContentTypesManage); err != nil {
		return nil, err
	}
	if req.Label == "" {
		return nil, fmt.Errorf("content type label is required")
	}

	devName := req.DeveloperName
	if devName == "" {
		devName = ToDeveloperName(req.Label)
	}
	if existing, err := s.repository.GetContentTypeByDeveloperName(ctx, devName); err == nil && existing != nil {
		return nil, fmt.Errorf("content type %q: %w", devName, ErrAlreadyExists)
	}

	now := time.Now().UTC()
	ct := &ContentType{
		ID:            uuid.New(),
		Label:         req.Label,
		DeveloperName: devName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, f := range req.Fields {
		field, err := buildField(ct, f)
		if err != nil {
			return nil, err
		}
		ct.Fields = append(ct.Fields, field)
	}

	if err := s.repository.CreateContentType(ctx, ct); err != nil {
		return nil, fmt.Errorf("create content type %q: %w", devName, err)
	}
	return ct, nil
}

func buildField(ct *ContentType, req CreateFieldRequest) (ContentTypeField, error) {
	if req.Label == "" {
		return ContentTypeField{}, fmt.Errorf("field label is required")
	}
	if !req.Kind.IsValid() {
		return ContentTypeField{}, fmt.Errorf("unknown field kind %q", req.Kind)
	}
	devName := req.DeveloperName
	if devName == "" {
		devName = ToDeveloperName(req.Label)
	}
	if _, exists := ct.FieldByDeveloperName(devName); exists {
		return ContentTypeField{}, fmt.Errorf("field %q on %q: %w", devName, ct.DeveloperName, ErrAlreadyExists)
	}
	return ContentTypeField{
		ID:            uuid.New(),
		Label:         req.Label,
		DeveloperName: devName,
		Kind:          req.Kind,
		Required:      req.Required,
	}, nil
}

func (s *service) GetContentType(ctx context.Context, id uuid.UUID) (*ContentType, error) {
	ct, err := s.repository.GetContentType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get content type %s: %w", id, err)
	}
	return ct, nil
}

func (s *service) GetContentTypeByDeveloperName(ctx context.Context, developerName string) (*ContentType, error) {
	ct, err := s.repository.GetContentTypeByDeveloperName(ctx, developerName)
	if err != nil {
		return nil, fmt.Errorf("get content type %q: %w", developerName, err)
	}
	return ct, nil
}

func (s *service) AddContentTypeField(ctx context.Context, contentTypeID uuid.UUID, req CreateFieldRequest) (*ContentType, error) {
	if err := s.authorize(ctx, "", PermContentTypesManage); err != nil {
		return nil, err
	}
	ct, err := s.repository.GetContentType(ctx, contentTypeID)
	if err != nil {
		return nil, fmt.Errorf("get content type %s: %w", contentTypeID, err)
	}

	field, err := buildField(ct, req)
	if err != nil {
		return nil, err
	}
	ct.Fields = append(ct.Fields, field)
	ct.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateContentType(ctx, ct); err != nil {
		return nil, fmt.Errorf("add field to content type %s: %w", contentTypeID, err)
	}
	return ct, nil
}

func (s *service) ListContentTypes(ctx context.Context) ([]*ContentType, error) {
	return s.repository.ListContentTypes(ctx)
}

// Content item operations

func (s *service) CreateContentItem(ctx context.Context, req CreateContentItemRequest) (*ContentItem, error) {
	if err := s.authorize(ctx, req.Principal, PermContentItemsWrite); err != nil {
		return nil, err
	}
	if _, err := s.repository.GetContentType(ctx, req.ContentTypeID); err != nil {
		return nil, fmt.Errorf("content type %s: %w", req.ContentTypeID, err)
	}

	draft := req.Draft
	if draft == nil {
		draft = NewDocument()
	}

	now := time.Now().UTC()
	item := &ContentItem{
		ID:            uuid.New(),
		ContentTypeID: req.ContentTypeID,
		DraftContent:  draft.Clone(),
		RoutePath:     req.RoutePath,
		CreatedBy:     req.Principal,
		UpdatedBy:     req.Principal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repository.CreateContentItem(ctx, item); err != nil {
		return nil, &ContentItemError{ContentItemID: item.ID, Op: "create", Err: err}
	}

	s.audit(ctx, "content_item.created", func() error {
		return s.auditSink.ContentItemCreated(ctx, item)
	})
	return item, nil
}

func (s *service) GetContentItem(ctx context.Context, id uuid.UUID) (*ContentItem, error) {
	item, err := s.repository.GetContentItem(ctx, id)
	if err != nil {
		return nil, &ContentItemError{ContentItemID: id, Op: "get", Err: err}
	}
	return item, nil
}

func (s *service) UpdateDraft(ctx context.Context, req UpdateDraftRequest) (*ContentItem, error) {
	if err := s.authorize(ctx, req.Principal, PermContentItemsWrite); err != nil {
		return nil, err
	}
	item, err := s.repository.GetContentItem(ctx, req.ID)
	if err != nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "update_draft", Err: err}
	}
	if _, err := canEdit(item.State()); err != nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "update_draft", Err: err}
	}
	if req.Draft == nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "update_draft", Err: fmt.Errorf("draft document is required")}
	}

	item.DraftContent = req.Draft.Clone()
	if req.RoutePath != "" {
		item.RoutePath = req.RoutePath
	}
	item.UpdatedBy = req.Principal
	item.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateContentItem(ctx, item); err != nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "update_draft", Err: err}
	}

	s.audit(ctx, "content_item.updated", func() error {
		return s.auditSink.ContentItemUpdated(ctx, item)
	})
	return item, nil
}

// Publish promotes the draft document to published. When a previous
// published document exists and differs from the draft, that previous
// snapshot is appended to the revision ledger in the same transaction. The
// first publish of an item appends nothing: there is no prior published
// state to preserve.
func (s *service) Publish(ctx context.Context, req PublishRequest) (*ContentItem, error) {
	if err := s.authorize(ctx, req.Principal, PermContentItemsWrite); err != nil {
		return nil, err
	}
	item, err := s.repository.GetContentItem(ctx, req.ID)
	if err != nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "publish", Err: err}
	}
	if _, err := canPublish(item.State()); err != nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "publish", Err: err}
	}
	if item.State() == StatePublished {
		// Draft already matches published; nothing to promote.
		return item, nil
	}

	now := time.Now().UTC()
	previous := item.PublishedContent
	item.PublishedContent = item.DraftContent.Clone()
	item.UpdatedBy = req.Principal
	item.UpdatedAt = now

	if previous == nil {
		if err := s.repository.UpdateContentItem(ctx, item); err != nil {
			return nil, &ContentItemError{ContentItemID: req.ID, Op: "publish", Err: err}
		}
	} else {
		revision := &ContentItemRevision{
			ID:               uuid.New(),
			ContentItemID:    item.ID,
			PublishedContent: previous,
			CreatedAt:        now,
		}
		if err := s.repository.AppendRevisionAndUpdateItem(ctx, revision, item); err != nil {
			return nil, &ContentItemError{ContentItemID: req.ID, Op: "publish", Err: err}
		}
	}

	s.audit(ctx, "content_item.published", func() error {
		return s.auditSink.ContentItemPublished(ctx, item)
	})
	return item, nil
}

// Unpublish withdraws the published document. The withdrawn snapshot is
// appended to the ledger so it stays recoverable through Revert.
func (s *service) Unpublish(ctx context.Context, req UnpublishRequest) (*ContentItem, error) {
	if err := s.authorize(ctx, req.Principal, PermContentItemsWrite); err != nil {
		return nil, err
	}
	item, err := s.repository.GetContentItem(ctx, req.ID)
	if err != nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "unpublish", Err: err}
	}
	if _, err := canUnpublish(item.State()); err != nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "unpublish", Err: err}
	}

	now := time.Now().UTC()
	revision := &ContentItemRevision{
		ID:               uuid.New(),
		ContentItemID:    item.ID,
		PublishedContent: item.PublishedContent,
		CreatedAt:        now,
	}
	item.PublishedContent = nil
	item.UpdatedBy = req.Principal
	item.UpdatedAt = now

	if err := s.repository.AppendRevisionAndUpdateItem(ctx, revision, item); err != nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "unpublish", Err: err}
	}

	s.audit(ctx, "content_item.updated", func() error {
		return s.auditSink.ContentItemUpdated(ctx, item)
	})
	return item, nil
}

// Revision ledger operations

func (s *service) ListRevisions(ctx context.Context, contentItemID uuid.UUID) ([]*ContentItemRevision, error) {
	if _, err := s.repository.GetContentItem(ctx, contentItemID); err != nil {
		return nil, &ContentItemError{ContentItemID: contentItemID, Op: "list_revisions", Err: err}
	}
	return s.repository.ListRevisions(ctx, contentItemID)
}

// Revert copies a ledger revision back into the item's draft. The current
// published document, when present, is first appended to the ledger so the
// revert itself can be undone; the published document is otherwise left
// untouched. The caller re-publishes when the reverted draft should go
// live.
func (s *service) Revert(ctx context.Context, req RevertRequest) (*ContentItem, error) {
	if err := s.authorize(ctx, req.Principal, PermContentItemsWrite); err != nil {
		return nil, err
	}
	revision, err := s.repository.GetRevision(ctx, req.RevisionID)
	if err != nil {
		return nil, fmt.Errorf("get revision %s: %w", req.RevisionID, err)
	}

	item, err := s.repository.GetContentItem(ctx, revision.ContentItemID)
	if err != nil {
		// A revision pointing at a missing item means the ledger and the
		// aggregate have desynced.
		return nil, &ContentItemError{
			ContentItemID: revision.ContentItemID,
			Op:            "revert",
			Err:           fmt.Errorf("revision %s references missing content item: %w", revision.ID, ErrInvariantViolation),
		}
	}
	if _, err := canRevert(item.State()); err != nil {
		return nil, &ContentItemError{ContentItemID: item.ID, Op: "revert", Err: err}
	}

	now := time.Now().UTC()
	current := item.PublishedContent
	item.DraftContent = revision.PublishedContent.Clone()
	item.UpdatedBy = req.Principal
	item.UpdatedAt = now

	if current == nil {
		if err := s.repository.UpdateContentItem(ctx, item); err != nil {
			return nil, &ContentItemError{ContentItemID: item.ID, Op: "revert", Err: err}
		}
	} else {
		undo := &ContentItemRevision{
			ID:               uuid.New(),
			ContentItemID:    item.ID,
			PublishedContent: current,
			CreatedAt:        now,
		}
		if err := s.repository.AppendRevisionAndUpdateItem(ctx, undo, item); err != nil {
			return nil, &ContentItemError{ContentItemID: item.ID, Op: "revert", Err: err}
		}
	}

	s.audit(ctx, "content_item.reverted", func() error {
		return s.auditSink.ContentItemReverted(ctx, item, revision.ID)
	})
	return item, nil
}

// Soft delete

func (s *service) DeleteContentItem(ctx context.Context, req DeleteContentItemRequest) error {
	if err := s.authorize(ctx, req.Principal, PermContentItemsDelete); err != nil {
		return err
	}
	item, err := s.repository.GetContentItem(ctx, req.ID)
	if err != nil {
		return &ContentItemError{ContentItemID: req.ID, Op: "delete", Err: err}
	}
	if _, err := canSoftDelete(item.State()); err != nil {
		return &ContentItemError{ContentItemID: req.ID, Op: "delete", Err: err}
	}

	now := time.Now().UTC()
	tombstone := &DeletedContentItem{
		ID:               uuid.New(),
		ContentItemID:    item.ID,
		ContentTypeID:    item.ContentTypeID,
		RoutePath:        item.RoutePath,
		DraftContent:     item.DraftContent,
		PublishedContent: item.PublishedContent,
		CreatedBy:        item.CreatedBy,
		CreatedAt:        item.CreatedAt,
		DeletedBy:        req.Principal,
		DeletedAt:        now,
	}
	if err := s.repository.MoveToDeleted(ctx, item, tombstone); err != nil {
		return &ContentItemError{ContentItemID: req.ID, Op: "delete", Err: err}
	}

	// The audited snapshot carries the soft-delete marker.
	item.DeletedAt = &now
	s.audit(ctx, "content_item.deleted", func() error {
		return s.auditSink.ContentItemDeleted(ctx, item)
	})
	return nil
}

func (s *service) RestoreContentItem(ctx context.Context, req RestoreContentItemRequest) (*ContentItem, error) {
	if err := s.authorize(ctx, req.Principal, PermContentItemsWrite); err != nil {
		return nil, err
	}
	tombstone, err := s.repository.GetDeletedContentItem(ctx, req.ID)
	if err != nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "restore", Err: err}
	}

	now := time.Now().UTC()
	item := &ContentItem{
		ID:               tombstone.ContentItemID,
		ContentTypeID:    tombstone.ContentTypeID,
		DraftContent:     tombstone.DraftContent,
		PublishedContent: tombstone.PublishedContent,
		RoutePath:        tombstone.RoutePath,
		CreatedBy:        tombstone.CreatedBy,
		CreatedAt:        tombstone.CreatedAt,
		UpdatedBy:        req.Principal,
		UpdatedAt:        now,
	}
	if err := s.repository.Restore(ctx, tombstone, item); err != nil {
		return nil, &ContentItemError{ContentItemID: req.ID, Op: "restore", Err: err}
	}

	s.audit(ctx, "content_item.restored", func() error {
		return s.auditSink.ContentItemRestored(ctx, item)
	})
	return item, nil
}

// Query operations

func (s *service) Find(ctx context.Context, req FindRequest) (*Page, error) {
	ct, err := s.repository.GetContentTypeByDeveloperName(ctx, req.TypeRef)
	if err != nil {
		return nil, fmt.Errorf("content type %q: %w", req.TypeRef, err)
	}

	q := req.Query.Normalize()
	if err := q.Validate(ct); err != nil {
		return nil, err
	}

	items, total, err := s.repository.FindContentItems(ctx, ct, q)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", req.TypeRef, err)
	}

	page := &Page{
		Items:      make([]*ProjectedItem, 0, len(items)),
		PageIndex:  q.PageIndex,
		PageSize:   q.PageSize,
		TotalCount: total,
		TotalPages: (total + q.PageSize - 1) / q.PageSize,
	}
	for _, item := range items {
		page.Items = append(page.Items, Project(ct, item, q.Source))
	}
	return page, nil
}

func (s *service) FindOne(ctx context.Context, id uuid.UUID) (*ProjectedItem, error) {
	item, err := s.repository.GetContentItem(ctx, id)
	if err != nil {
		return nil, &ContentItemError{ContentItemID: id, Op: "find_one", Err: err}
	}
	ct, err := s.repository.GetContentType(ctx, item.ContentTypeID)
	if err != nil {
		return nil, &ContentItemError{ContentItemID: id, Op: "find_one", Err: err}
	}
	return Project(ct, item, SourceDraft), nil
}
