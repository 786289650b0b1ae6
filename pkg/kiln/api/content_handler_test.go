package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnhq/kiln/pkg/kiln"
	"github.com/kilnhq/kiln/pkg/kiln/api"
	memoryrepo "github.com/kilnhq/kiln/pkg/kiln/repo/memory"
	memorystorage "github.com/kilnhq/kiln/pkg/kiln/storage/memory"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc, err := kiln.New(
		kiln.WithRepository(memoryrepo.New()),
		kiln.WithFileStore("memory", memorystorage.New()),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/content", api.NewContentHandler(svc).Routes())
	r.Mount("/media", api.NewMediaHandler(svc).Routes())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createArticleType(t *testing.T, srv *httptest.Server) map[string]any {
	t.Helper()

	resp := postJSON(t, srv.URL+"/content/types", map[string]any{
		"label": "Article",
		"fields": []map[string]any{
			{"label": "Title", "kind": "text"},
			{"label": "Views", "kind": "number"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ct map[string]any
	decodeBody(t, resp, &ct)
	return ct
}

func TestContentTypeEndpoints(t *testing.T) {
	srv := setupServer(t)

	ct := createArticleType(t, srv)
	assert.Equal(t, "article", ct["developer_name"])

	t.Run("get by developer name", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/content/types/article")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("missing type is 404", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/content/types/nope")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("duplicate type is 409", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/content/types", map[string]any{"label": "Article"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestContentItemEndpoints(t *testing.T) {
	srv := setupServer(t)
	ct := createArticleType(t, srv)

	resp := postJSON(t, srv.URL+"/content/items", map[string]any{
		"content_type_id": ct["id"],
		"draft":           map[string]any{"title": "Hello", "views": 1},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var item map[string]any
	decodeBody(t, resp, &item)
	itemURL := fmt.Sprintf("%s/content/items/%s", srv.URL, item["id"])

	t.Run("publish then revisions", func(t *testing.T) {
		resp := postJSON(t, itemURL+"/publish", map[string]any{})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp, err := http.Get(itemURL + "/revisions")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var revisions []map[string]any
		decodeBody(t, resp, &revisions)
		assert.Empty(t, revisions)
	})

	t.Run("projected read", func(t *testing.T) {
		resp, err := http.Get(itemURL)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var projected map[string]any
		decodeBody(t, resp, &projected)
		fields, ok := projected["fields"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Hello", fields["title"])
	})

	t.Run("search with a filter", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/content/types/article/search", map[string]any{
			"filter": map[string]any{"field": "title", "op": "eq", "value": "Hello"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var page map[string]any
		decodeBody(t, resp, &page)
		assert.Equal(t, float64(1), page["total_count"])
	})

	t.Run("undeclared filter key is 400", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/content/types/article/search", map[string]any{
			"filter": map[string]any{"field": "bogus", "op": "eq", "value": "x"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("delete then act on deleted", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, itemURL, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()

		resp = postJSON(t, itemURL+"/publish", map[string]any{})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()

		resp = postJSON(t, itemURL+"/restore", map[string]any{})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestMediaEndpoints(t *testing.T) {
	srv := setupServer(t)

	t.Run("presign and finalize", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/media/presign", map[string]any{
			"file_name":    "photo.jpg",
			"content_type": "image/jpeg",
			"length":       128,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var grant map[string]any
		decodeBody(t, resp, &grant)
		require.NotEmpty(t, grant["url"])

		resp = postJSON(t, srv.URL+"/media/finalize", map[string]any{
			"id":           grant["id"],
			"object_key":   grant["object_key"],
			"file_name":    "photo.jpg",
			"content_type": "image/jpeg",
			"length":       128,
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()

		// replay
		resp = postJSON(t, srv.URL+"/media/finalize", map[string]any{
			"id":           grant["id"],
			"object_key":   grant["object_key"],
			"file_name":    "photo.jpg",
			"content_type": "image/jpeg",
			"length":       128,
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("disallowed mime type is 415", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/media/presign", map[string]any{
			"file_name":    "archive.zip",
			"content_type": "application/zip",
			"length":       128,
		})
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
		resp.Body.Close()
	})
}
