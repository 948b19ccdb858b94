package library

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"library-catalog/internal/models"
	"library-catalog/internal/storage"
	"library-catalog/internal/storage/stubs"
)

var fixedNow = time.Date(2024, 3, 9, 15, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *stubs.MockDB) {
	t.Helper()
	db := stubs.NewMockDB()
	require.NoError(t, db.Initialize(context.Background()))
	svc := NewService(db, zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
	return svc, db
}

func openLoans(t *testing.T, svc *Service, id int64) int {
	t.Helper()
	loans, err := svc.BookLoans(context.Background(), id)
	require.NoError(t, err)
	open := 0
	for _, loan := range loans {
		if loan.IsOpen() {
			open++
		}
	}
	return open
}

func TestService_AddBook(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddBook(ctx, "  The Hobbit ", " J.R.R. Tolkien")
	require.NoError(t, err)
	assert.Positive(t, id)

	books, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, id, books[0].ID)
	assert.Equal(t, "The Hobbit", books[0].Title)
	assert.Equal(t, "J.R.R. Tolkien", books[0].Author)
	assert.True(t, books[0].Available)

	other, err := svc.AddBook(ctx, "Dune", "Frank Herbert")
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestService_AddBookValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	testCases := []struct {
		name   string
		title  string
		author string
	}{
		{"empty title", "", "Author"},
		{"empty author", "Title", ""},
		{"whitespace title", "   ", "Author"},
		{"whitespace author", "Title", "\t\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddBook(ctx, tc.title, tc.author)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	books, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestService_SearchBooks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, "The Hobbit", "J.R.R. Tolkien")
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, "Tolkien and the Great War", "John Garth")
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, "Dune", "Frank Herbert")
	require.NoError(t, err)

	books, err := svc.SearchBooks(ctx, "tolkien")
	require.NoError(t, err)
	require.Len(t, books, 2)
	for _, book := range books {
		assert.NotEqual(t, "Dune", book.Title)
	}

	books, err = svc.SearchBooks(ctx, "nothing like this")
	require.NoError(t, err)
	assert.Empty(t, books)

	_, err = svc.SearchBooks(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.SearchBooks(ctx, "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_Borrow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddBook(ctx, "Test Book", "Test Author")
	require.NoError(t, err)

	loan, err := svc.Borrow(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, loan.BookID)
	assert.True(t, loan.IsOpen())
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), loan.BorrowDate)

	book, err := svc.GetBook(ctx, id)
	require.NoError(t, err)
	assert.False(t, book.Available)
	assert.Equal(t, 1, openLoans(t, svc, id))

	// Second borrow fails without creating another loan
	_, err = svc.Borrow(ctx, id)
	assert.ErrorIs(t, err, ErrNotAvailable)

	loans, err := svc.BookLoans(ctx, id)
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}

func TestService_Return(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddBook(ctx, "Test Book", "Test Author")
	require.NoError(t, err)

	// Returning an available book is rejected
	_, err = svc.Return(ctx, id)
	assert.ErrorIs(t, err, ErrNotBorrowed)

	_, err = svc.Borrow(ctx, id)
	require.NoError(t, err)

	loan, err := svc.Return(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, loan.ReturnDate)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), *loan.ReturnDate)

	book, err := svc.GetBook(ctx, id)
	require.NoError(t, err)
	assert.True(t, book.Available)
	assert.Equal(t, 0, openLoans(t, svc, id))

	// Second return fails with no state change
	_, err = svc.Return(ctx, id)
	assert.ErrorIs(t, err, ErrNotBorrowed)

	book, err = svc.GetBook(ctx, id)
	require.NoError(t, err)
	assert.True(t, book.Available)
}

func TestService_BorrowReturnRoundTrip(t *testing.T) {
	db := stubs.NewMockDB()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(db, zap.NewNop(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	id, err := svc.AddBook(ctx, "Test Book", "Test Author")
	require.NoError(t, err)

	_, err = svc.Borrow(ctx, id)
	require.NoError(t, err)

	now = now.AddDate(0, 0, 12)
	_, err = svc.Return(ctx, id)
	require.NoError(t, err)

	book, err := svc.GetBook(ctx, id)
	require.NoError(t, err)
	assert.True(t, book.Available)

	loans, err := svc.BookLoans(ctx, id)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.NotNil(t, loans[0].ReturnDate)
	assert.False(t, loans[0].ReturnDate.Before(loans[0].BorrowDate))
	assert.Equal(t, 12*24*time.Hour, loans[0].ReturnDate.Sub(loans[0].BorrowDate))
}

func TestService_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Borrow(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Return(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetBook(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.BookLoans(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_InvalidIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []int64{0, -1} {
		t.Run(fmt.Sprintf("id %d", id), func(t *testing.T) {
			_, err := svc.Borrow(ctx, id)
			assert.ErrorIs(t, err, ErrValidation)
			_, err = svc.Return(ctx, id)
			assert.ErrorIs(t, err, ErrValidation)
			_, err = svc.GetBook(ctx, id)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := svc.MostBorrowed(ctx, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_ConcurrentBorrow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddBook(ctx, "Concurrent Book", "Author")
	require.NoError(t, err)

	numGoroutines := 2
	var wg sync.WaitGroup
	errs := make([]error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = svc.Borrow(ctx, id)
		}(i)
	}
	wg.Wait()

	successes, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, ErrNotAvailable):
			rejected++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, openLoans(t, svc, id))
}

func TestService_MostBorrowed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.AddBook(ctx, "Book A", "Author")
	b, _ := svc.AddBook(ctx, "Book B", "Author")

	for _, id := range []int64{b, a, b} {
		_, err := svc.Borrow(ctx, id)
		require.NoError(t, err)
		_, err = svc.Return(ctx, id)
		require.NoError(t, err)
	}

	stats, err := svc.MostBorrowed(ctx, 5)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, b, stats[0].Book.ID)
	assert.Equal(t, 2, stats[0].BorrowCount)
}

// conflictDB simulates a concurrent writer winning the race after the lock check
type conflictDB struct {
	*stubs.MockDB
}

func (c conflictDB) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return c.MockDB.InTx(ctx, func(tx storage.Tx) error {
		return fn(conflictTx{Tx: tx})
	})
}

type conflictTx struct {
	storage.Tx
}

func (conflictTx) OpenLoan(ctx context.Context, bookID int64, date time.Time) (models.Loan, error) {
	return models.Loan{}, fmt.Errorf("book %d: %w", bookID, storage.ErrOpenLoanExists)
}

func TestService_BorrowConflictIsNotAvailable(t *testing.T) {
	mock := stubs.NewMockDB()
	svc := NewService(conflictDB{MockDB: mock}, zap.NewNop())
	ctx := context.Background()

	id, err := svc.AddBook(ctx, "Test Book", "Test Author")
	require.NoError(t, err)

	_, err = svc.Borrow(ctx, id)
	assert.ErrorIs(t, err, ErrNotAvailable)

	// The availability flip was rolled back
	book, err := svc.GetBook(ctx, id)
	require.NoError(t, err)
	assert.True(t, book.Available)
}

// offlineDB fails every operation as an unreachable database would
type offlineDB struct {
	*stubs.MockDB
}

func (offlineDB) ListBooks(ctx context.Context) ([]models.Book, error) {
	return nil, fmt.Errorf("failed to list books: %w", storage.ErrConnectivity)
}

func (offlineDB) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return fmt.Errorf("failed to begin transaction: %w", storage.ErrConnectivity)
}

func TestService_Connectivity(t *testing.T) {
	svc := NewService(offlineDB{MockDB: stubs.NewMockDB()}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.ListBooks(ctx)
	assert.ErrorIs(t, err, ErrConnectivity)

	_, err = svc.Borrow(ctx, 1)
	assert.ErrorIs(t, err, ErrConnectivity)

	_, err = svc.Return(ctx, 1)
	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestService_ReturnWithoutOpenLoan(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddBook(ctx, "Test Book", "Test Author")
	require.NoError(t, err)

	// Flag the book as borrowed without recording a loan
	err = db.InTx(ctx, func(tx storage.Tx) error {
		return tx.SetAvailable(ctx, id, false)
	})
	require.NoError(t, err)

	_, err = svc.Return(ctx, id)
	assert.ErrorIs(t, err, ErrNotBorrowed)
	assert.NotErrorIs(t, err, ErrNotFound)

	// The availability flip was rolled back
	book, err := svc.GetBook(ctx, id)
	require.NoError(t, err)
	assert.False(t, book.Available)
}
