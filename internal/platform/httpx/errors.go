package httpx

import (
	"errors"
	"net/http"

	"github.com/stockline-erp/stockline/internal/shared"
)

// RespondError maps shared domain errors to HTTP responses using RFC7807.
// Module-specific errors (the stock taxonomy) are mapped by their own
// handlers before falling back here.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrInUse):
		Problem(w, http.StatusConflict, "In Use", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Already Processed", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
