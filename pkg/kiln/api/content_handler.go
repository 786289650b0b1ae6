package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/kilnhq/kiln/pkg/kiln"
)

// principalHeader carries the caller identity handed to the authorizer.
const principalHeader = "X-Principal"

// ContentHandler handles HTTP requests for content types, items and
// revisions using pkg/kiln
type ContentHandler struct {
	service kiln.Service
}

// NewContentHandler creates a new content handler
func NewContentHandler(service kiln.Service) *ContentHandler {
	return &ContentHandler{service: service}
}

// Routes returns the routes for content
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/types", h.CreateContentType)
	r.Get("/types", h.ListContentTypes)
	r.Get("/types/{developerName}", h.GetContentType)
	r.Post("/types/{id}/fields", h.AddContentTypeField)
	r.Post("/types/{developerName}/search", h.Find)

	r.Post("/items", h.CreateContentItem)
	r.Get("/items/{id}", h.FindOne)
	r.Put("/items/{id}/draft", h.UpdateDraft)
	r.Post("/items/{id}/publish", h.Publish)
	r.Post("/items/{id}/unpublish", h.Unpublish)
	r.Delete("/items/{id}", h.DeleteContentItem)
	r.Post("/items/{id}/restore", h.RestoreContentItem)
	r.Get("/items/{id}/revisions", h.ListRevisions)

	r.Post("/revisions/{revisionId}/revert", h.Revert)

	return r
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// Content type endpoints

func (h *ContentHandler) CreateContentType(w http.ResponseWriter, r *http.Request) {
	var req kiln.CreateContentTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	ct, err := h.service.CreateContentType(r.Context(), req)
	if err != nil {
		slog.Error("Failed to create content type", "label", req.Label, "error", err)
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, ct)
}

func (h *ContentHandler) ListContentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListContentTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, types)
}

func (h *ContentHandler) GetContentType(w http.ResponseWriter, r *http.Request) {
	developerName := chi.URLParam(r, "developerName")
	ct, err := h.service.GetContentTypeByDeveloperName(r.Context(), developerName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, ct)
}

func (h *ContentHandler) AddContentTypeField(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req kiln.CreateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	ct, err := h.service.AddContentTypeField(r.Context(), id, req)
	if err != nil {
		slog.Error("Failed to add field", "content_type_id", id, "error", err)
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, ct)
}

// Content item endpoints

// createItemRequest is the request body for creating a content item
type createItemRequest struct {
	ContentTypeID string         `json:"content_type_id"`
	Draft         *kiln.Document `json:"draft"`
	RoutePath     string         `json:"route_path,omitempty"`
}

func (h *ContentHandler) CreateContentItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	contentTypeID, err := uuid.Parse(req.ContentTypeID)
	if err != nil {
		badRequest(w, r, "invalid content type id")
		return
	}

	item, err := h.service.CreateContentItem(r.Context(), kiln.CreateContentItemRequest{
		ContentTypeID: contentTypeID,
		Draft:         req.Draft,
		RoutePath:     req.RoutePath,
		Principal:     r.Header.Get(principalHeader),
	})
	if err != nil {
		slog.Error("Failed to create content item", "error", err)
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

func (h *ContentHandler) FindOne(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	projected, err := h.service.FindOne(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, projected)
}

// updateDraftRequest is the request body for replacing a draft document
type updateDraftRequest struct {
	Draft     *kiln.Document `json:"draft"`
	RoutePath string         `json:"route_path,omitempty"`
}

func (h *ContentHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req updateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	item, err := h.service.UpdateDraft(r.Context(), kiln.UpdateDraftRequest{
		ID:        id,
		Draft:     req.Draft,
		RoutePath: req.RoutePath,
		Principal: r.Header.Get(principalHeader),
	})
	if err != nil {
		slog.Error("Failed to update draft", "content_item_id", id, "error", err)
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

func (h *ContentHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	item, err := h.service.Publish(r.Context(), kiln.PublishRequest{
		ID:        id,
		Principal: r.Header.Get(principalHeader),
	})
	if err != nil {
		slog.Error("Failed to publish content item", "content_item_id", id, "error", err)
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

func (h *ContentHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	item, err := h.service.Unpublish(r.Context(), kiln.UnpublishRequest{
		ID:        id,
		Principal: r.Header.Get(principalHeader),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

func (h *ContentHandler) DeleteContentItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	err = h.service.DeleteContentItem(r.Context(), kiln.DeleteContentItemRequest{
		ID:        id,
		Principal: r.Header.Get(principalHeader),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandler) RestoreContentItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	item, err := h.service.RestoreContentItem(r.Context(), kiln.RestoreContentItemRequest{
		ID:        id,
		Principal: r.Header.Get(principalHeader),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

func (h *ContentHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	revisions, err := h.service.ListRevisions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, revisions)
}

func (h *ContentHandler) Revert(w http.ResponseWriter, r *http.Request) {
	revisionID, err := pathUUID(r, "revisionId")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	item, err := h.service.Revert(r.Context(), kiln.RevertRequest{
		RevisionID: revisionID,
		Principal:  r.Header.Get(principalHeader),
	})
	if err != nil {
		slog.Error("Failed to revert content item", "revision_id", revisionID, "error", err)
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

// Query endpoint

// filterNode is the wire form of one filter tree node. Exactly one of And,
// Or or Field should be set.
type filterNode struct {
	And   []filterNode `json:"and,omitempty"`
	Or    []filterNode `json:"or,omitempty"`
	Field string       `json:"field,omitempty"`
	Op    string       `json:"op,omitempty"`
	Value any          `json:"value,omitempty"`
}

func (n filterNode) toFilter() (kiln.Filter, error) {
	set := 0
	if len(n.And) > 0 {
		set++
	}
	if len(n.Or) > 0 {
		set++
	}
	if n.Field != "" {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("filter node must set exactly one of and, or, field")
	}

	switch {
	case len(n.And) > 0:
		children, err := toFilters(n.And)
		if err != nil {
			return nil, err
		}
		return kiln.And{Filters: children}, nil
	case len(n.Or) > 0:
		children, err := toFilters(n.Or)
		if err != nil {
			return nil, err
		}
		return kiln.Or{Filters: children}, nil
	default:
		return kiln.Condition{
			FieldKey: n.Field,
			Op:       kiln.FilterOp(n.Op),
			Value:    n.Value,
		}, nil
	}
}

func toFilters(nodes []filterNode) ([]kiln.Filter, error) {
	out := make([]kiln.Filter, 0, len(nodes))
	for _, n := range nodes {
		f, err := n.toFilter()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// searchRequest is the request body for querying a content type's items
type searchRequest struct {
	Filter    *filterNode `json:"filter,omitempty"`
	Sort      []sortNode  `json:"sort,omitempty"`
	PageIndex int         `json:"page_index,omitempty"`
	PageSize  int         `json:"page_size,omitempty"`
	Source    string      `json:"source,omitempty"` // "draft" (default) or "published"
}

type sortNode struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

func (h *ContentHandler) Find(w http.ResponseWriter, r *http.Request) {
	developerName := chi.URLParam(r, "developerName")

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	query := kiln.FindQuery{
		PageIndex: req.PageIndex,
		PageSize:  req.PageSize,
		Source:    kiln.DocumentSource(req.Source),
	}
	if req.Filter != nil {
		filter, err := req.Filter.toFilter()
		if err != nil {
			badRequest(w, r, err.Error())
			return
		}
		query.Filter = filter
	}
	for _, s := range req.Sort {
		query.Sort = append(query.Sort, kiln.SortClause{FieldKey: s.Field, Descending: s.Descending})
	}

	page, err := h.service.Find(r.Context(), kiln.FindRequest{TypeRef: developerName, Query: query})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}
