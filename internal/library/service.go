// Package library holds the catalog operations and the borrow/return workflow
// shared by every front-end.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"library-catalog/internal/models"
	"library-catalog/internal/storage"
)

// Service exposes the catalog and loan operations over a Storage
type Service struct {
	db     storage.Storage
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the source of the current date
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service backed by db
func NewService(db storage.Storage, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListBooks returns every book ordered by identifier
func (s *Service) ListBooks(ctx context.Context) ([]models.Book, error) {
	return s.db.ListBooks(ctx)
}

// AddBook registers an available book and returns its identifier
func (s *Service) AddBook(ctx context.Context, title, author string) (int64, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return 0, fmt.Errorf("%w: title and author are required", ErrValidation)
	}

	id, err := s.db.CreateBook(ctx, title, author)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Book added",
		zap.Int64("book_id", id),
		zap.String("title", title),
		zap.String("author", author),
	)
	return id, nil
}

// SearchBooks returns books whose title or author contains term, ignoring case
func (s *Service) SearchBooks(ctx context.Context, term string) ([]models.Book, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrValidation)
	}
	return s.db.SearchBooks(ctx, term)
}

// GetBook returns a single book
func (s *Service) GetBook(ctx context.Context, id int64) (models.Book, error) {
	if err := validateID(id); err != nil {
		return models.Book{}, err
	}
	return s.db.GetBook(ctx, id)
}

// BookLoans returns the loan history of a book, newest first
func (s *Service) BookLoans(ctx context.Context, id int64) ([]models.Loan, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.db.ListLoans(ctx, id)
}

// MostBorrowed returns up to limit books ordered by how often they were borrowed
func (s *Service) MostBorrowed(ctx context.Context, limit int) ([]models.BookStat, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}
	return s.db.GetMostBorrowed(ctx, limit)
}

// Ping reports whether the underlying storage is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func validateID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: book id must be a positive integer", ErrValidation)
	}
	return nil
}

// today returns the current calendar date
func (s *Service) today() time.Time {
	return models.DateOf(s.now())
}

// isConflict reports errors that mean another writer got there first
func isConflict(err error) bool {
	return errors.Is(err, storage.ErrOpenLoanExists)
}
