package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/kilnhq/kiln/pkg/kiln"
)

// MediaHandler handles HTTP requests for media uploads and downloads using
// pkg/kiln
type MediaHandler struct {
	service kiln.Service
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service kiln.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// Routes returns the routes for media
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Upload)
	r.Post("/presign", h.Presign)
	r.Post("/finalize", h.Finalize)
	r.Get("/{id}", h.GetMediaItem)
	r.Get("/{id}/url", h.GetDownloadURL)
	r.Get("/{id}/download", h.Download)
	r.Delete("/{id}", h.Delete)
	r.Get("/objectkey/{objectKey}", h.RedirectToFile)

	return r
}

// Upload is the server-relayed flow: a multipart form with a "file" part.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "multipart form with a file part is required")
		return
	}
	defer file.Close()

	item, err := h.service.UploadMediaItem(r.Context(), file, kiln.UploadMediaRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Length:      header.Size,
		Principal:   r.Header.Get(principalHeader),
	})
	if err != nil {
		slog.Error("Failed to upload media item", "file_name", header.Filename, "error", err)
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

// presignRequest is the request body for issuing a direct-to-cloud upload URL
type presignRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Length      int64  `json:"length"`
}

func (h *MediaHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	presigned, err := h.service.PresignMediaUpload(r.Context(), kiln.PresignMediaUploadRequest{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Length:      req.Length,
		Principal:   r.Header.Get(principalHeader),
	})
	if err != nil {
		slog.Error("Failed to presign media upload", "file_name", req.FileName, "error", err)
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, presigned)
}

// finalizeRequest is the request body completing a direct-to-cloud upload
type finalizeRequest struct {
	ID          string `json:"id"`
	ObjectKey   string `json:"object_key"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Length      int64  `json:"length"`
}

func (h *MediaHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		badRequest(w, r, "invalid media item id")
		return
	}

	item, err := h.service.FinalizeMediaUpload(r.Context(), kiln.FinalizeMediaUploadRequest{
		ID:          id,
		ObjectKey:   req.ObjectKey,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Length:      req.Length,
		Principal:   r.Header.Get(principalHeader),
	})
	if err != nil {
		slog.Error("Failed to finalize media upload", "media_item_id", id, "error", err)
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

func (h *MediaHandler) GetMediaItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	item, err := h.service.GetMediaItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

func (h *MediaHandler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	url, err := h.service.GetMediaDownloadURL(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"url": url})
}

// Download streams the bytes through the server.
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	item, err := h.service.GetMediaItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rc, err := h.service.DownloadMediaItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	if item.ContentType != "" {
		w.Header().Set("Content-Type", item.ContentType)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+item.FileName+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("Failed to stream media item", "media_item_id", id, "error", err)
	}
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if err := h.service.DeleteMediaItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RedirectToFile resolves an object key to a fresh download URL and
// redirects, so stored links stay stable while signatures rotate.
func (h *MediaHandler) RedirectToFile(w http.ResponseWriter, r *http.Request) {
	objectKey := chi.URLParam(r, "objectKey")
	url, err := h.service.GetMediaDownloadURLByObjectKey(r.Context(), objectKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
