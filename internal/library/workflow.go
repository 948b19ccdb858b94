package library

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"library-catalog/internal/models"
	"library-catalog/internal/storage"
)

// Borrow marks an available book as borrowed and opens a loan dated today.
// Both changes commit together or not at all.
func (s *Service) Borrow(ctx context.Context, bookID int64) (models.Loan, error) {
	if err := validateID(bookID); err != nil {
		return models.Loan{}, err
	}

	var loan models.Loan
	err := s.db.InTx(ctx, func(tx storage.Tx) error {
		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if !book.Available {
			return fmt.Errorf("book %d: %w", bookID, ErrNotAvailable)
		}

		if err := tx.SetAvailable(ctx, bookID, false); err != nil {
			return err
		}
		loan, err = tx.OpenLoan(ctx, bookID, s.today())
		return err
	})
	if isConflict(err) {
		err = fmt.Errorf("book %d: %w", bookID, ErrNotAvailable)
	}
	if err != nil {
		s.logger.Debug("Borrow rejected", zap.Int64("book_id", bookID), zap.Error(err))
		return models.Loan{}, err
	}

	s.logger.Info("Book borrowed",
		zap.Int64("book_id", bookID),
		zap.Int64("loan_id", loan.ID),
		zap.Time("borrow_date", loan.BorrowDate),
	)
	return loan, nil
}

// Return marks a borrowed book as available and closes its open loan with
// today's date. Both changes commit together or not at all.
func (s *Service) Return(ctx context.Context, bookID int64) (models.Loan, error) {
	if err := validateID(bookID); err != nil {
		return models.Loan{}, err
	}

	var loan models.Loan
	err := s.db.InTx(ctx, func(tx storage.Tx) error {
		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if book.Available {
			return fmt.Errorf("book %d: %w", bookID, ErrNotBorrowed)
		}

		if err := tx.SetAvailable(ctx, bookID, true); err != nil {
			return err
		}
		loan, err = tx.CloseLoan(ctx, bookID, s.today())
		return err
	})
	if errors.Is(err, storage.ErrNoOpenLoan) {
		// Flagged as borrowed with no open loan on record; nothing to close
		s.logger.Error("Borrowed book has no open loan", zap.Int64("book_id", bookID))
		err = fmt.Errorf("book %d: %w", bookID, ErrNotBorrowed)
	}
	if err != nil {
		s.logger.Debug("Return rejected", zap.Int64("book_id", bookID), zap.Error(err))
		return models.Loan{}, err
	}

	s.logger.Info("Book returned",
		zap.Int64("book_id", bookID),
		zap.Int64("loan_id", loan.ID),
		zap.Time("return_date", *loan.ReturnDate),
	)
	return loan, nil
}
