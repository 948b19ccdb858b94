package stubs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"library-catalog/internal/models"
	"library-catalog/internal/storage"
)

// MockDB is an in-memory implementation of the Storage interface for testing
// and for running the shells without a database.
type MockDB struct {
	mu         sync.RWMutex
	books      map[int64]models.Book
	loans      []models.Loan
	nextBookID int64
	nextLoanID int64
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		books:      make(map[int64]models.Book),
		loans:      make([]models.Loan, 0),
		nextBookID: 1,
		nextLoanID: 1,
	}
}

// Initialize is a no-op; the mock starts with an empty catalog
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// Ping always succeeds
func (m *MockDB) Ping(ctx context.Context) error {
	return nil
}

// CreateBook creates a new available book and returns its identifier
func (m *MockDB) CreateBook(ctx context.Context, title, author string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextBookID
	m.nextBookID++
	m.books[id] = models.Book{
		ID:        id,
		Title:     title,
		Author:    author,
		Available: true,
	}
	return id, nil
}

// ListBooks returns all books ordered by identifier
func (m *MockDB) ListBooks(ctx context.Context) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedBooks(func(models.Book) bool { return true }), nil
}

// GetBook returns a single book
func (m *MockDB) GetBook(ctx context.Context, id int64) (models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	book, ok := m.books[id]
	if !ok {
		return models.Book{}, fmt.Errorf("book %d: %w", id, storage.ErrNotFound)
	}
	return book, nil
}

// SearchBooks returns books whose title or author contains term, ignoring case
func (m *MockDB) SearchBooks(ctx context.Context, term string) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(term)
	return m.sortedBooks(func(b models.Book) bool {
		return strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.Author), needle)
	}), nil
}

// ListLoans returns the loans of a book, newest first
func (m *MockDB) ListLoans(ctx context.Context, bookID int64) ([]models.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.books[bookID]; !ok {
		return nil, fmt.Errorf("book %d: %w", bookID, storage.ErrNotFound)
	}

	loans := make([]models.Loan, 0)
	for _, loan := range m.loans {
		if loan.BookID == bookID {
			loans = append(loans, loan)
		}
	}

	// Loan ids grow with time, so the highest id is the newest loan
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].ID > loans[j].ID
	})

	return loans, nil
}

// GetMostBorrowed returns up to limit books ordered by loan count
func (m *MockDB) GetMostBorrowed(ctx context.Context, limit int) ([]models.BookStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[int64]int)
	for _, loan := range m.loans {
		counts[loan.BookID]++
	}

	stats := make([]models.BookStat, 0, len(counts))
	for bookID, count := range counts {
		stats = append(stats, models.BookStat{
			Book:        m.books[bookID],
			BorrowCount: count,
		})
	}

	// Sort by count descending, then by id
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].BorrowCount != stats[j].BorrowCount {
			return stats[i].BorrowCount > stats[j].BorrowCount
		}
		return stats[i].Book.ID < stats[j].Book.ID
	})

	if limit > 0 && limit < len(stats) {
		stats = stats[:limit]
	}

	return stats, nil
}

// InTx runs fn while holding the write lock. Changes made by fn are discarded
// when it returns an error.
func (m *MockDB) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	books := make(map[int64]models.Book, len(m.books))
	for id, book := range m.books {
		books[id] = book
	}
	loans := make([]models.Loan, len(m.loans))
	copy(loans, m.loans)
	nextLoanID := m.nextLoanID

	if err := fn(&mockTx{db: m}); err != nil {
		m.books = books
		m.loans = loans
		m.nextLoanID = nextLoanID
		return err
	}
	return nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}

// sortedBooks must be called with the lock held
func (m *MockDB) sortedBooks(keep func(models.Book) bool) []models.Book {
	books := make([]models.Book, 0, len(m.books))
	for _, book := range m.books {
		if keep(book) {
			books = append(books, book)
		}
	}

	sort.Slice(books, func(i, j int) bool {
		return books[i].ID < books[j].ID
	})

	return books
}

// mockTx operates on the MockDB while InTx holds its lock
type mockTx struct {
	db *MockDB
}

func (t *mockTx) LockBook(ctx context.Context, id int64) (models.Book, error) {
	book, ok := t.db.books[id]
	if !ok {
		return models.Book{}, fmt.Errorf("book %d: %w", id, storage.ErrNotFound)
	}
	return book, nil
}

func (t *mockTx) SetAvailable(ctx context.Context, id int64, available bool) error {
	book, ok := t.db.books[id]
	if !ok {
		return fmt.Errorf("book %d: %w", id, storage.ErrNotFound)
	}
	book.Available = available
	t.db.books[id] = book
	return nil
}

func (t *mockTx) OpenLoan(ctx context.Context, bookID int64, borrowDate time.Time) (models.Loan, error) {
	for _, loan := range t.db.loans {
		if loan.BookID == bookID && loan.IsOpen() {
			return models.Loan{}, fmt.Errorf("book %d: %w", bookID, storage.ErrOpenLoanExists)
		}
	}

	loan := models.Loan{
		ID:         t.db.nextLoanID,
		BookID:     bookID,
		BorrowDate: borrowDate,
	}
	t.db.nextLoanID++
	t.db.loans = append(t.db.loans, loan)
	return loan, nil
}

func (t *mockTx) CloseLoan(ctx context.Context, bookID int64, returnDate time.Time) (models.Loan, error) {
	for i, loan := range t.db.loans {
		if loan.BookID == bookID && loan.IsOpen() {
			date := returnDate
			t.db.loans[i].ReturnDate = &date
			return t.db.loans[i], nil
		}
	}
	return models.Loan{}, fmt.Errorf("book %d: %w", bookID, storage.ErrNoOpenLoan)
}
