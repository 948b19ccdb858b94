package stubs

import (
	"context"
	"errors"
	"testing"
	"time"

	"library-catalog/internal/storage"
)

func TestMockDB_CreateBook(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	id, err := db.CreateBook(ctx, "Test Book", "Test Author")
	if err != nil {
		t.Fatalf("Failed to create book: %v", err)
	}

	if id <= 0 {
		t.Fatalf("Expected positive book ID, got %d", id)
	}

	books, err := db.ListBooks(ctx)
	if err != nil {
		t.Fatalf("Failed to list books: %v", err)
	}

	if len(books) != 1 {
		t.Fatalf("Expected 1 book, got %d", len(books))
	}

	if books[0].ID != id || books[0].Title != "Test Book" || books[0].Author != "Test Author" {
		t.Errorf("Unexpected book: %+v", books[0])
	}

	if !books[0].Available {
		t.Error("Expected book to be available by default")
	}
}

func TestMockDB_ListBooks(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	books, err := db.ListBooks(ctx)
	if err != nil {
		t.Fatalf("Failed to list books: %v", err)
	}
	if len(books) != 0 {
		t.Errorf("Expected empty catalog, got %d books", len(books))
	}

	_, _ = db.CreateBook(ctx, "Book C", "Author")
	_, _ = db.CreateBook(ctx, "Book A", "Author")
	_, _ = db.CreateBook(ctx, "Book B", "Author")

	books, err = db.ListBooks(ctx)
	if err != nil {
		t.Fatalf("Failed to list books: %v", err)
	}

	if len(books) != 3 {
		t.Fatalf("Expected 3 books, got %d", len(books))
	}

	// Books should be sorted by id, i.e. in insertion order
	for i := 0; i < len(books)-1; i++ {
		if books[i].ID >= books[i+1].ID {
			t.Error("Expected books to be sorted by id")
			break
		}
	}
	if books[0].Title != "Book C" {
		t.Errorf("Expected first book to be 'Book C', got %s", books[0].Title)
	}
}

func TestMockDB_SearchBooks(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	_, _ = db.CreateBook(ctx, "The Hobbit", "J.R.R. Tolkien")
	_, _ = db.CreateBook(ctx, "Tolkien: A Biography", "Humphrey Carpenter")
	_, _ = db.CreateBook(ctx, "Dune", "Frank Herbert")

	books, err := db.SearchBooks(ctx, "TOLKIEN")
	if err != nil {
		t.Fatalf("Failed to search books: %v", err)
	}

	if len(books) != 2 {
		t.Fatalf("Expected 2 books, got %d", len(books))
	}
	if books[0].Title != "The Hobbit" || books[1].Title != "Tolkien: A Biography" {
		t.Errorf("Unexpected search results: %+v", books)
	}

	books, err = db.SearchBooks(ctx, "asimov")
	if err != nil {
		t.Fatalf("Failed to search books: %v", err)
	}
	if len(books) != 0 {
		t.Errorf("Expected no results, got %d", len(books))
	}
}

func TestMockDB_InTxCommit(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	id, _ := db.CreateBook(ctx, "Test Book", "Test Author")
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	err := db.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.SetAvailable(ctx, id, false); err != nil {
			return err
		}
		_, err := tx.OpenLoan(ctx, id, date)
		return err
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	book, err := db.GetBook(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get book: %v", err)
	}
	if book.Available {
		t.Error("Expected book to be borrowed after commit")
	}

	loans, err := db.ListLoans(ctx, id)
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if len(loans) != 1 || !loans[0].IsOpen() {
		t.Errorf("Expected one open loan, got %+v", loans)
	}
}

func TestMockDB_InTxRollback(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	id, _ := db.CreateBook(ctx, "Test Book", "Test Author")
	boom := errors.New("boom")

	err := db.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.SetAvailable(ctx, id, false); err != nil {
			return err
		}
		if _, err := tx.OpenLoan(ctx, id, time.Now()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom error, got %v", err)
	}

	book, _ := db.GetBook(ctx, id)
	if !book.Available {
		t.Error("Expected availability change to be rolled back")
	}

	loans, _ := db.ListLoans(ctx, id)
	if len(loans) != 0 {
		t.Errorf("Expected loan insert to be rolled back, got %d loans", len(loans))
	}
}

func TestMockDB_OpenLoanTwice(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	id, _ := db.CreateBook(ctx, "Test Book", "Test Author")

	err := db.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.OpenLoan(ctx, id, time.Now()); err != nil {
			return err
		}
		_, err := tx.OpenLoan(ctx, id, time.Now())
		return err
	})
	if !errors.Is(err, storage.ErrOpenLoanExists) {
		t.Errorf("Expected ErrOpenLoanExists, got %v", err)
	}
}

func TestMockDB_CloseLoanWithoutOpenLoan(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	id, _ := db.CreateBook(ctx, "Test Book", "Test Author")

	err := db.InTx(ctx, func(tx storage.Tx) error {
		_, err := tx.CloseLoan(ctx, id, time.Now())
		return err
	})
	if !errors.Is(err, storage.ErrNoOpenLoan) {
		t.Errorf("Expected ErrNoOpenLoan, got %v", err)
	}
}

func TestMockDB_GetBookNotFound(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	if _, err := db.GetBook(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := db.ListLoans(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMockDB_GetMostBorrowed_Limit(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	a, _ := db.CreateBook(ctx, "Book A", "Author")
	b, _ := db.CreateBook(ctx, "Book B", "Author")
	_, _ = db.CreateBook(ctx, "Book C", "Author")

	// Book B borrowed twice, Book A once, Book C never
	cycle := func(id int64) {
		err := db.InTx(ctx, func(tx storage.Tx) error {
			if _, err := tx.OpenLoan(ctx, id, time.Now()); err != nil {
				return err
			}
			_, err := tx.CloseLoan(ctx, id, time.Now())
			return err
		})
		if err != nil {
			t.Fatalf("Failed to record loan: %v", err)
		}
	}
	cycle(b)
	cycle(a)
	cycle(b)

	stats, err := db.GetMostBorrowed(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Expected 2 stats, got %d", len(stats))
	}
	if stats[0].Book.ID != b || stats[0].BorrowCount != 2 {
		t.Errorf("Expected Book B with 2 loans first, got %+v", stats[0])
	}
	if stats[1].Book.ID != a || stats[1].BorrowCount != 1 {
		t.Errorf("Expected Book A with 1 loan second, got %+v", stats[1])
	}

	stats, err = db.GetMostBorrowed(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if len(stats) != 1 {
		t.Errorf("Expected 1 stat, got %d", len(stats))
	}
}

func TestMockDB_EmptyResultsAreNotNil(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	stats, err := db.GetMostBorrowed(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats == nil {
		t.Error("Expected empty stats slice, got nil")
	}

	id, _ := db.CreateBook(ctx, "Test Book", "Test Author")
	loans, err := db.ListLoans(ctx, id)
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if loans == nil {
		t.Error("Expected empty loans slice, got nil")
	}
}
