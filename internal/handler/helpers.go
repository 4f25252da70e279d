package handler

import (
	"errors"
	"net/http"

	"chatrelay/internal/domain"
	"chatrelay/internal/httputil"
)

// handleError converts domain errors to HTTP responses.
// Unexpected errors become a generic 500; the internal detail is included
// only when debug is set.
func handleError(w http.ResponseWriter, err error, debug bool) {
	var validationErr *domain.ValidationError
	var conflictErr *domain.ConflictError

	switch {
	case errors.As(err, &validationErr):
		httputil.RespondError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, domain.CredentialMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondError(w, http.StatusConflict, conflictErr.Error())
	default:
		detail := ""
		if debug {
			detail = err.Error()
		}
		httputil.RespondErrorWithDetail(w, http.StatusInternalServerError, "Internal server error", detail)
	}
}
