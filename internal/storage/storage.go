package storage

import (
	"context"
	"errors"
	"time"

	"library-catalog/internal/models"
)

var (
	// ErrNotFound is returned when a referenced book does not exist
	ErrNotFound = errors.New("book not found")
	// ErrConnectivity is returned when the underlying database cannot be reached
	ErrConnectivity = errors.New("storage unreachable")
	// ErrOpenLoanExists is returned when a second open loan would be recorded for a book
	ErrOpenLoanExists = errors.New("book already has an open loan")
	// ErrNoOpenLoan is returned when a loan is closed for a book that has none open
	ErrNoOpenLoan = errors.New("book has no open loan")
)

// Storage defines the interface for catalog data operations
type Storage interface {
	// Book operations
	CreateBook(ctx context.Context, title, author string) (int64, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, id int64) (models.Book, error)

	// SearchBooks returns books whose title or author contains term, ignoring case.
	// LIKE metacharacters in term match literally.
	SearchBooks(ctx context.Context, term string) ([]models.Book, error)

	// Loan operations

	// ListLoans returns the loans of a book, newest first
	ListLoans(ctx context.Context, bookID int64) ([]models.Loan, error)
	// GetMostBorrowed returns up to limit books ordered by number of loans.
	// Books that were never borrowed are omitted.
	GetMostBorrowed(ctx context.Context, limit int) ([]models.BookStat, error)

	// InTx runs fn in a single transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of operations available inside a transaction
type Tx interface {
	// LockBook reads a book and holds it against concurrent transitions until
	// the transaction ends.
	LockBook(ctx context.Context, id int64) (models.Book, error)
	SetAvailable(ctx context.Context, id int64, available bool) error
	OpenLoan(ctx context.Context, bookID int64, borrowDate time.Time) (models.Loan, error)
	// CloseLoan sets the return date of the open loan of a book. It returns
	// ErrNoOpenLoan when the book has no open loan.
	CloseLoan(ctx context.Context, bookID int64, returnDate time.Time) (models.Loan, error)
}
