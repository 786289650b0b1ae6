package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/kilnhq/kiln/pkg/kiln"
)

// ErrorResponse is the JSON error body every handler returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError maps service errors onto HTTP statuses and renders the body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, kiln.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, kiln.ErrInvalidQuery), errors.Is(err, kiln.ErrLengthMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, kiln.ErrConflict), errors.Is(err, kiln.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, kiln.ErrFileTooLarge), errors.Is(err, kiln.ErrQuotaExceeded):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, kiln.ErrMimeTypeNotAllowed):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, kiln.ErrUnsupportedOperation):
		status = http.StatusNotImplemented
	case errors.Is(err, kiln.ErrTimeout):
		status = http.StatusGatewayTimeout
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: msg})
}
