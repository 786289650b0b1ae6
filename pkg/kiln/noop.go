package kiln

import (
	"context"

	"github.com/google/uuid"
)

// NoopAuditSink is an audit sink that does nothing.
type NoopAuditSink struct{}

// NewNoopAuditSink creates a new no-op audit sink.
func NewNoopAuditSink() *NoopAuditSink {
	return &NoopAuditSink{}
}

func (s *NoopAuditSink) ContentItemCreated(ctx context.Context, item *ContentItem) error { return nil }
func (s *NoopAuditSink) ContentItemUpdated(ctx context.Context, item *ContentItem) error { return nil }
func (s *NoopAuditSink) ContentItemPublished(ctx context.Context, item *ContentItem) error {
	return nil
}
func (s *NoopAuditSink) ContentItemReverted(ctx context.Context, item *ContentItem, revisionID uuid.UUID) error {
	return nil
}
func (s *NoopAuditSink) ContentItemDeleted(ctx context.Context, item *ContentItem) error {
	return nil
}
func (s *NoopAuditSink) ContentItemRestored(ctx context.Context, item *ContentItem) error {
	return nil
}
func (s *NoopAuditSink) MediaItemCreated(ctx context.Context, item *MediaItem) error { return nil }
func (s *NoopAuditSink) MediaItemDeleted(ctx context.Context, mediaItemID uuid.UUID) error {
	return nil
}

// AllowAllAuthorizer permits every operation. It is the default when no
// authorizer is configured.
type AllowAllAuthorizer struct{}

// NewAllowAllAuthorizer creates an authorizer that allows everything.
func NewAllowAllAuthorizer() *AllowAllAuthorizer {
	return &AllowAllAuthorizer{}
}

func (a *AllowAllAuthorizer) Authorize(ctx context.Context, principal, operation string) error {
	return nil
}
