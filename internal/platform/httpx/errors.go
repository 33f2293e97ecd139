package httpx

import (
	"errors"
	"net/http"

	"github.com/postboard/postboard/internal/shared"
)

// Sentinel errors for domain layer. They alias the shared sentinels so
// services and handlers can use either package.
var (
	ErrNotFound     = shared.ErrNotFound
	ErrDuplicate    = shared.ErrDuplicateIdentity
	ErrValidation   = shared.ErrValidation
	ErrForbidden    = shared.ErrForbidden
	ErrUnauthorized = shared.ErrInvalidCredentials
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(err))
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", shared.UserSafeMessage(err))
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// StatusFor reports the status code RespondError would write for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
