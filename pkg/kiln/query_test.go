package kiln_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnhq/kiln/pkg/kiln"
)

// seedArticles creates n items of the article type, publishing the even
// ones, and returns the service.
func seedArticles(t *testing.T, n int) (kiln.Service, *kiln.ContentType) {
	t.Helper()

	svc := setupTestService(t)
	ctx := context.Background()
	ct := setupArticleType(t, svc)

	for i := 0; i < n; i++ {
		doc := kiln.DocumentFromPairs(
			"title", fmt.Sprintf("Article %02d", i),
			"views", float64(i*10),
			"featured", i%3 == 0,
			"note", fmt.Sprintf("undeclared %d", i),
		)
		item, err := svc.CreateContentItem(ctx, kiln.CreateContentItemRequest{
			ContentTypeID: ct.ID,
			Draft:         doc,
		})
		require.NoError(t, err)
		if i%2 == 0 {
			_, err = svc.Publish(ctx, kiln.PublishRequest{ID: item.ID})
			require.NoError(t, err)
		}
	}
	return svc, ct
}

func TestFindFilters(t *testing.T) {
	svc, _ := seedArticles(t, 10)
	ctx := context.Background()

	t.Run("eq on a declared field", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Filter: kiln.Condition{FieldKey: "title", Op: kiln.OpEq, Value: "Article 03"},
			},
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		title, _ := page.Items[0].Fields.Get("title")
		assert.Equal(t, "Article 03", title)
	})

	t.Run("numeric range", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Filter: kiln.And{Filters: []kiln.Filter{
					kiln.Condition{FieldKey: "views", Op: kiln.OpGte, Value: float64(30)},
					kiln.Condition{FieldKey: "views", Op: kiln.OpLt, Value: float64(60)},
				}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, page.TotalCount)
	})

	t.Run("or combines branches", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Filter: kiln.Or{Filters: []kiln.Filter{
					kiln.Condition{FieldKey: "views", Op: kiln.OpEq, Value: float64(0)},
					kiln.Condition{FieldKey: "views", Op: kiln.OpEq, Value: float64(90)},
				}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, page.TotalCount)
	})

	t.Run("contains is case-insensitive", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Filter: kiln.Condition{FieldKey: "title", Op: kiln.OpContains, Value: "ARTICLE 0"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 10, page.TotalCount)
	})

	t.Run("in matches a value set", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Filter: kiln.Condition{
					FieldKey: "title",
					Op:       kiln.OpIn,
					Value:    []any{"Article 01", "Article 02", "No Such"},
				},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, page.TotalCount)
	})

	t.Run("checkbox eq", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Filter: kiln.Condition{FieldKey: "featured", Op: kiln.OpEq, Value: true},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 4, page.TotalCount)
	})

	t.Run("undeclared filter key is rejected", func(t *testing.T) {
		_, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Filter: kiln.Condition{FieldKey: "note", Op: kiln.OpEq, Value: "x"},
			},
		})
		assert.ErrorIs(t, err, kiln.ErrInvalidQuery)
	})

	t.Run("unknown operator is rejected", func(t *testing.T) {
		_, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Filter: kiln.Condition{FieldKey: "title", Op: "like", Value: "x"},
			},
		})
		assert.ErrorIs(t, err, kiln.ErrInvalidQuery)
	})

	t.Run("unknown type ref is not found", func(t *testing.T) {
		_, err := svc.Find(ctx, kiln.FindRequest{TypeRef: "nope"})
		assert.ErrorIs(t, err, kiln.ErrNotFound)
	})
}

func TestFindSortAndPagination(t *testing.T) {
	svc, _ := seedArticles(t, 10)
	ctx := context.Background()

	t.Run("sort ascending by declared field", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Sort: []kiln.SortClause{{FieldKey: "views"}},
			},
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 10)
		first, _ := page.Items[0].Fields.Get("views")
		last, _ := page.Items[9].Fields.Get("views")
		assert.Equal(t, float64(0), first)
		assert.Equal(t, float64(90), last)
	})

	t.Run("sort descending", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Sort: []kiln.SortClause{{FieldKey: "views", Descending: true}},
			},
		})
		require.NoError(t, err)
		first, _ := page.Items[0].Fields.Get("views")
		assert.Equal(t, float64(90), first)
	})

	t.Run("undeclared sort key is rejected", func(t *testing.T) {
		_, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Sort: []kiln.SortClause{{FieldKey: "note"}},
			},
		})
		assert.ErrorIs(t, err, kiln.ErrInvalidQuery)
	})

	t.Run("page boundaries", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Sort:     []kiln.SortClause{{FieldKey: "views"}},
				PageSize: 4,
			},
		})
		require.NoError(t, err)
		assert.Len(t, page.Items, 4)
		assert.Equal(t, 10, page.TotalCount)
		assert.Equal(t, 3, page.TotalPages)

		page, err = svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query: kiln.FindQuery{
				Sort:      []kiln.SortClause{{FieldKey: "views"}},
				PageIndex: 2,
				PageSize:  4,
			},
		})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
	})

	t.Run("page beyond the end is empty, not an error", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query:   kiln.FindQuery{PageIndex: 50, PageSize: 4},
		})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 10, page.TotalCount)
	})

	t.Run("oversized page size is clamped", func(t *testing.T) {
		q := kiln.FindQuery{PageSize: 100000}.Normalize()
		assert.Equal(t, kiln.MaxPageSize, q.PageSize)

		q = kiln.FindQuery{PageSize: -5, PageIndex: -1}.Normalize()
		assert.Equal(t, kiln.DefaultPageSize, q.PageSize)
		assert.Equal(t, 0, q.PageIndex)
		assert.Equal(t, kiln.SourceDraft, q.Source)
	})
}

func TestFindSources(t *testing.T) {
	svc, _ := seedArticles(t, 10)
	ctx := context.Background()

	t.Run("published source skips never-published items", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query:   kiln.FindQuery{Source: kiln.SourcePublished},
		})
		require.NoError(t, err)
		assert.Equal(t, 5, page.TotalCount)
	})

	t.Run("draft source sees everything", func(t *testing.T) {
		page, err := svc.Find(ctx, kiln.FindRequest{
			TypeRef: "article",
			Query:   kiln.FindQuery{Source: kiln.SourceDraft},
		})
		require.NoError(t, err)
		assert.Equal(t, 10, page.TotalCount)
	})
}

func TestProjection(t *testing.T) {
	svc, ct := seedArticles(t, 1)
	ctx := context.Background()

	page, err := svc.Find(ctx, kiln.FindRequest{TypeRef: ct.DeveloperName})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	item := page.Items[0]

	// declared fields land in Fields in declaration order
	assert.Equal(t, []string{"title", "views", "featured"}, item.Fields.Keys())

	// undeclared keys survive in the passthrough bag
	note, ok := item.Extra.Get("note")
	require.True(t, ok)
	assert.Equal(t, "undeclared 0", note)
}
