package kiln_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnhq/kiln/pkg/kiln"
	"github.com/kilnhq/kiln/pkg/kiln/repo/memory"
	memorystorage "github.com/kilnhq/kiln/pkg/kiln/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []kiln.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []kiln.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []kiln.Option{
				kiln.WithRepository(memory.New()),
			},
			expectError: false,
		},
		{
			name: "with repository and file store should succeed",
			options: []kiln.Option{
				kiln.WithRepository(memory.New()),
				kiln.WithFileStore("memory", memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := kiln.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func setupTestService(t *testing.T) kiln.Service {
	t.Helper()

	svc, err := kiln.New(
		kiln.WithRepository(memory.New()),
		kiln.WithFileStore("memory", memorystorage.New()),
		kiln.WithAuditSink(kiln.NewNoopAuditSink()),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return svc
}

func setupArticleType(t *testing.T, svc kiln.Service) *kiln.ContentType {
	t.Helper()

	ct, err := svc.CreateContentType(context.Background(), kiln.CreateContentTypeRequest{
		Label: "Article",
		Fields: []kiln.CreateFieldRequest{
			{Label: "Title", Kind: kiln.FieldKindText},
			{Label: "Views", Kind: kiln.FieldKindNumber},
			{Label: "Featured", Kind: kiln.FieldKindCheckbox},
		},
	})
	require.NoError(t, err)
	return ct
}

func TestCreateContentType(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	ct := setupArticleType(t, svc)
	assert.Equal(t, "article", ct.DeveloperName)
	require.Len(t, ct.Fields, 3)
	assert.Equal(t, "title", ct.Fields[0].DeveloperName)
	assert.Equal(t, "views", ct.Fields[1].DeveloperName)

	t.Run("duplicate developer name fails", func(t *testing.T) {
		_, err := svc.CreateContentType(ctx, kiln.CreateContentTypeRequest{Label: "Article"})
		assert.ErrorIs(t, err, kiln.ErrAlreadyExists)
	})

	t.Run("lookup by developer name", func(t *testing.T) {
		got, err := svc.GetContentTypeByDeveloperName(ctx, "article")
		require.NoError(t, err)
		assert.Equal(t, ct.ID, got.ID)
	})

	t.Run("duplicate field fails", func(t *testing.T) {
		_, err := svc.AddContentTypeField(ctx, ct.ID, kiln.CreateFieldRequest{
			Label: "Title", Kind: kiln.FieldKindText,
		})
		assert.ErrorIs(t, err, kiln.ErrAlreadyExists)
	})

	t.Run("add new field", func(t *testing.T) {
		updated, err := svc.AddContentTypeField(ctx, ct.ID, kiln.CreateFieldRequest{
			Label: "Published On", Kind: kiln.FieldKindDate,
		})
		require.NoError(t, err)
		field, ok := updated.FieldByDeveloperName("published_on")
		require.True(t, ok)
		assert.Equal(t, kiln.FieldKindDate, field.Kind)
	})
}

func TestContentItemLifecycle(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	ct := setupArticleType(t, svc)

	item, err := svc.CreateContentItem(ctx, kiln.CreateContentItemRequest{
		ContentTypeID: ct.ID,
		Draft:         kiln.DocumentFromPairs("title", "Hello"),
	})
	require.NoError(t, err)

	assert.Equal(t, kiln.StateDraftOnly, item.State())
	assert.True(t, item.IsDraft())
	assert.Nil(t, item.PublishedContent)

	t.Run("first publish appends no revision", func(t *testing.T) {
		published, err := svc.Publish(ctx, kiln.PublishRequest{ID: item.ID})
		require.NoError(t, err)
		assert.Equal(t, kiln.StatePublished, published.State())
		assert.False(t, published.IsDraft())

		revisions, err := svc.ListRevisions(ctx, item.ID)
		require.NoError(t, err)
		assert.Empty(t, revisions)
	})

	t.Run("edit diverges draft from published", func(t *testing.T) {
		updated, err := svc.UpdateDraft(ctx, kiln.UpdateDraftRequest{
			ID:    item.ID,
			Draft: kiln.DocumentFromPairs("title", "Hello v2"),
		})
		require.NoError(t, err)
		assert.Equal(t, kiln.StatePublishedWithPendingDraft, updated.State())
		assert.True(t, updated.IsDraft())

		title, _ := updated.PublishedContent.Get("title")
		assert.Equal(t, "Hello", title)
	})

	t.Run("second publish preserves old published in ledger", func(t *testing.T) {
		published, err := svc.Publish(ctx, kiln.PublishRequest{ID: item.ID})
		require.NoError(t, err)
		assert.Equal(t, kiln.StatePublished, published.State())

		revisions, err := svc.ListRevisions(ctx, item.ID)
		require.NoError(t, err)
		require.Len(t, revisions, 1)
		title, _ := revisions[0].PublishedContent.Get("title")
		assert.Equal(t, "Hello", title)
	})

	t.Run("publish with no pending draft is a no-op", func(t *testing.T) {
		_, err := svc.Publish(ctx, kiln.PublishRequest{ID: item.ID})
		require.NoError(t, err)

		revisions, err := svc.ListRevisions(ctx, item.ID)
		require.NoError(t, err)
		assert.Len(t, revisions, 1)
	})

	t.Run("unpublish withdraws and preserves the snapshot", func(t *testing.T) {
		withdrawn, err := svc.Unpublish(ctx, kiln.UnpublishRequest{ID: item.ID})
		require.NoError(t, err)
		assert.Equal(t, kiln.StateDraftOnly, withdrawn.State())
		assert.Nil(t, withdrawn.PublishedContent)

		revisions, err := svc.ListRevisions(ctx, item.ID)
		require.NoError(t, err)
		require.Len(t, revisions, 2)
		title, _ := revisions[0].PublishedContent.Get("title")
		assert.Equal(t, "Hello v2", title)
	})

	t.Run("unpublish of a draft-only item conflicts", func(t *testing.T) {
		_, err := svc.Unpublish(ctx, kiln.UnpublishRequest{ID: item.ID})
		assert.ErrorIs(t, err, kiln.ErrConflict)
	})
}

// deleteRecorder captures the snapshot audited on soft delete.
type deleteRecorder struct {
	*kiln.NoopAuditSink
	deleted *kiln.ContentItem
}

func (r *deleteRecorder) ContentItemDeleted(ctx context.Context, item *kiln.ContentItem) error {
	r.deleted = item
	return nil
}

func TestSoftDeleteAndRestore(t *testing.T) {
	sink := &deleteRecorder{NoopAuditSink: kiln.NewNoopAuditSink()}
	svc, err := kiln.New(
		kiln.WithRepository(memory.New()),
		kiln.WithFileStore("memory", memorystorage.New()),
		kiln.WithAuditSink(sink),
	)
	require.NoError(t, err)
	ctx := context.Background()
	ct := setupArticleType(t, svc)

	item, err := svc.CreateContentItem(ctx, kiln.CreateContentItemRequest{
		ContentTypeID: ct.ID,
		Draft:         kiln.DocumentFromPairs("title", "Gone soon"),
		Principal:     "author",
	})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, kiln.PublishRequest{ID: item.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteContentItem(ctx, kiln.DeleteContentItemRequest{ID: item.ID, Principal: "janitor"}))

	t.Run("audited snapshot reports the deleted state", func(t *testing.T) {
		require.NotNil(t, sink.deleted)
		assert.Equal(t, item.ID, sink.deleted.ID)
		assert.Equal(t, kiln.StateDeleted, sink.deleted.State())
	})

	t.Run("deleted item is gone", func(t *testing.T) {
		_, err := svc.GetContentItem(ctx, item.ID)
		assert.ErrorIs(t, err, kiln.ErrNotFound)
	})

	t.Run("deleting twice fails", func(t *testing.T) {
		err := svc.DeleteContentItem(ctx, kiln.DeleteContentItemRequest{ID: item.ID})
		assert.ErrorIs(t, err, kiln.ErrNotFound)
	})

	t.Run("restore brings the item back intact", func(t *testing.T) {
		restored, err := svc.RestoreContentItem(ctx, kiln.RestoreContentItemRequest{ID: item.ID, Principal: "restorer"})
		require.NoError(t, err)
		assert.Equal(t, item.ID, restored.ID)
		assert.Equal(t, kiln.StatePublished, restored.State())

		title, _ := restored.PublishedContent.Get("title")
		assert.Equal(t, "Gone soon", title)

		// original provenance survives the round trip
		assert.Equal(t, "author", restored.CreatedBy)
		assert.True(t, restored.CreatedAt.Equal(item.CreatedAt))
		assert.Equal(t, "restorer", restored.UpdatedBy)
	})

	t.Run("restore is single-shot", func(t *testing.T) {
		_, err := svc.RestoreContentItem(ctx, kiln.RestoreContentItemRequest{ID: item.ID})
		assert.ErrorIs(t, err, kiln.ErrNotFound)
	})
}

func TestRevert(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	ct := setupArticleType(t, svc)

	// create {A} -> publish -> edit {B} -> publish: one ledger entry for {A}
	item, err := svc.CreateContentItem(ctx, kiln.CreateContentItemRequest{
		ContentTypeID: ct.ID,
		Draft:         kiln.DocumentFromPairs("title", "A"),
	})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, kiln.PublishRequest{ID: item.ID})
	require.NoError(t, err)
	_, err = svc.UpdateDraft(ctx, kiln.UpdateDraftRequest{
		ID: item.ID, Draft: kiln.DocumentFromPairs("title", "B"),
	})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, kiln.PublishRequest{ID: item.ID})
	require.NoError(t, err)

	revisions, err := svc.ListRevisions(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, revisions, 1)
	revA := revisions[0]
	title, _ := revA.PublishedContent.Get("title")
	require.Equal(t, "A", title)

	t.Run("revert lands in draft and preserves current published", func(t *testing.T) {
		reverted, err := svc.Revert(ctx, kiln.RevertRequest{RevisionID: revA.ID})
		require.NoError(t, err)

		assert.Equal(t, kiln.StatePublishedWithPendingDraft, reverted.State())
		draftTitle, _ := reverted.DraftContent.Get("title")
		assert.Equal(t, "A", draftTitle)
		pubTitle, _ := reverted.PublishedContent.Get("title")
		assert.Equal(t, "B", pubTitle)

		revisions, err := svc.ListRevisions(ctx, item.ID)
		require.NoError(t, err)
		require.Len(t, revisions, 2)
		undoTitle, _ := revisions[0].PublishedContent.Get("title")
		assert.Equal(t, "B", undoTitle)
	})

	t.Run("revert of the revert restores the pre-revert draft", func(t *testing.T) {
		revisions, err := svc.ListRevisions(ctx, item.ID)
		require.NoError(t, err)
		require.Len(t, revisions, 2)
		revB := revisions[0]

		back, err := svc.Revert(ctx, kiln.RevertRequest{RevisionID: revB.ID})
		require.NoError(t, err)

		draftTitle, _ := back.DraftContent.Get("title")
		assert.Equal(t, "B", draftTitle)
		pubTitle, _ := back.PublishedContent.Get("title")
		assert.Equal(t, "B", pubTitle)
	})

	t.Run("revert of a missing revision is not found", func(t *testing.T) {
		_, err := svc.Revert(ctx, kiln.RevertRequest{RevisionID: uuid.New()})
		assert.ErrorIs(t, err, kiln.ErrNotFound)
	})
}

// Applies random edit/publish/revert/unpublish sequences and checks the
// derived-state invariant: a non-draft item always has a published
// document.
func TestIsDraftInvariantUnderRandomTransitions(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	ct := setupArticleType(t, svc)

	rng := rand.New(rand.NewSource(1))

	for run := 0; run < 10; run++ {
		item, err := svc.CreateContentItem(ctx, kiln.CreateContentItemRequest{
			ContentTypeID: ct.ID,
			Draft:         kiln.DocumentFromPairs("title", "seed"),
		})
		require.NoError(t, err)

		for step := 0; step < 30; step++ {
			switch rng.Intn(4) {
			case 0:
				_, err = svc.UpdateDraft(ctx, kiln.UpdateDraftRequest{
					ID:    item.ID,
					Draft: kiln.DocumentFromPairs("title", "edit", "views", float64(step)),
				})
				require.NoError(t, err)
			case 1:
				_, err = svc.Publish(ctx, kiln.PublishRequest{ID: item.ID})
				require.NoError(t, err)
			case 2:
				revisions, err := svc.ListRevisions(ctx, item.ID)
				require.NoError(t, err)
				if len(revisions) > 0 {
					_, err = svc.Revert(ctx, kiln.RevertRequest{
						RevisionID: revisions[rng.Intn(len(revisions))].ID,
					})
					require.NoError(t, err)
				}
			case 3:
				current, err := svc.GetContentItem(ctx, item.ID)
				require.NoError(t, err)
				if current.PublishedContent != nil {
					_, err = svc.Unpublish(ctx, kiln.UnpublishRequest{ID: item.ID})
					require.NoError(t, err)
				}
			}

			current, err := svc.GetContentItem(ctx, item.ID)
			require.NoError(t, err)
			if !current.IsDraft() {
				require.NotNil(t, current.PublishedContent)
			}
			require.NotNil(t, current.DraftContent)
		}
	}
}

type denyAuthorizer struct{}

func (denyAuthorizer) Authorize(ctx context.Context, principal, operation string) error {
	return assert.AnError
}

func TestAuthorizerGatesMutations(t *testing.T) {
	svc, err := kiln.New(
		kiln.WithRepository(memory.New()),
		kiln.WithAuthorizer(denyAuthorizer{}),
	)
	require.NoError(t, err)

	_, err = svc.CreateContentType(context.Background(), kiln.CreateContentTypeRequest{Label: "Blocked"})
	assert.ErrorIs(t, err, assert.AnError)
}
