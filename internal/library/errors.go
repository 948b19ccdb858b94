package library

import (
	"errors"

	"library-catalog/internal/storage"
)

// Error kinds returned by Service. Compare with errors.Is.
var (
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = storage.ErrNotFound
	ErrNotAvailable = errors.New("book is not available")
	ErrNotBorrowed  = errors.New("book is not borrowed")
	ErrConnectivity = storage.ErrConnectivity
)
