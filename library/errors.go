package library

import (
	"errors"
	"fmt"
)

var (
	// ErrBookNotFound is returned by Reserve when the book id is not in the
	// current catalog, and by single-book fetches that 404.
	ErrBookNotFound = errors.New("book not found")

	// ErrBookUnavailable is returned by Reserve when the catalog shows no
	// available copies. The collaborator is still authoritative and may
	// reject a reservation that passes this check.
	ErrBookUnavailable = errors.New("no available copies")

	// ErrRecordNotFound is returned by single-record fetches that 404.
	ErrRecordNotFound = errors.New("borrow record not found")

	// ErrOperationInFlight is returned when a reserve, pickup or return is
	// already running for the same record or book.
	ErrOperationInFlight = errors.New("operation already in flight")

	// ErrParseResponse wraps malformed response bodies, distinct from
	// HTTP-status errors.
	ErrParseResponse = errors.New("failed to parse response data")
)

// APIError carries the collaborator's HTTP status and its message (or a
// per-operation fallback when the body had none). Read operations swallow it
// into the per-collection error field; mutations re-throw it to the caller.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}
