package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/outreach-agent/internal/orchestrator"
	"github.com/jonathan/outreach-agent/internal/schemas"
	"github.com/jonathan/outreach-agent/internal/store"
)

// HTTPStatus maps domain errors to HTTP status codes.
func HTTPStatus(err error) int {
	var validationErr *schemas.ValidationError
	var disqualifiedErr *orchestrator.DisqualifiedError

	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &disqualifiedErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
