package webui

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"library-catalog/internal/library"
)

// statusFor maps an error kind to its HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrNotAvailable), errors.Is(err, library.ErrNotBorrowed):
		return http.StatusConflict
	case errors.Is(err, library.ErrConnectivity):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor turns an error kind into a user-facing message. invalid is the
// message shown for validation failures of the operation at hand.
func messageFor(err error, invalid string) string {
	switch {
	case errors.Is(err, library.ErrValidation):
		return invalid
	case errors.Is(err, library.ErrNotFound):
		return "No book exists with that ID."
	case errors.Is(err, library.ErrNotAvailable):
		return "Book is not available for borrowing."
	case errors.Is(err, library.ErrNotBorrowed):
		return "Book is not currently borrowed."
	case errors.Is(err, library.ErrConnectivity):
		return "Cannot connect to the database. Please check your connection and credentials."
	default:
		return "Something went wrong. Please try again."
	}
}

// parseBookID converts raw input into a positive book id
func parseBookID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, library.ErrValidation
	}
	return id, nil
}
