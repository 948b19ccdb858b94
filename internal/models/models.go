package models

import "time"

// Book represents a catalog entry
type Book struct {
	ID        int64  `gorm:"column:book_id;primaryKey;autoIncrement" json:"id"`
	Title     string `gorm:"column:title;not null" json:"title"`
	Author    string `gorm:"column:author;not null" json:"author"`
	Available bool   `gorm:"column:available;default:true" json:"available"`
}

func (Book) TableName() string { return "books" }

// Status returns the display status derived from the availability flag
func (b Book) Status() string {
	if b.Available {
		return "Available"
	}
	return "Borrowed"
}

// Loan represents one borrow-to-return cycle of a book
type Loan struct {
	ID         int64      `gorm:"column:borrow_id;primaryKey;autoIncrement" json:"id"`
	BookID     int64      `gorm:"column:book_id" json:"book_id"`
	BorrowDate time.Time  `gorm:"column:borrow_date;type:date" json:"borrow_date"`
	ReturnDate *time.Time `gorm:"column:return_date;type:date" json:"return_date,omitempty"`
}

func (Loan) TableName() string { return "borrow" }

// IsOpen reports whether the book has not been returned yet
func (l Loan) IsOpen() bool {
	return l.ReturnDate == nil
}

// BookStat represents book borrowing statistics
type BookStat struct {
	Book        Book `json:"book"`
	BorrowCount int  `json:"borrow_count"`
}

// DateOf truncates t to its calendar date, expressed as midnight UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
