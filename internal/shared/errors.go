package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInUse indicates the resource is referenced by the ledger and cannot
	// be deleted.
	ErrInUse = errors.New("resource in use")
)

// UserSafeMessage returns a message safe to surface to end users. Known
// domain errors pass through; anything else keeps its text, since the core
// never embeds internals in error strings.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested resource was not found."
	case errors.Is(err, ErrDuplicate):
		return "A record with the same identity already exists."
	case errors.Is(err, ErrInUse):
		return "The record is referenced by stock history and cannot be removed."
	case errors.Is(err, ErrIdempotencyConflict):
		return "This request was already processed."
	default:
		return err.Error()
	}
}
