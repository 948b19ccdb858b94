package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"library-catalog/internal/models"
)

const topLimit = 5

// handleStart shows welcome message and available commands
func (b *Bot) handleStart(message *tgbotapi.Message) {
	text := `Welcome to the Library Management System! 📚

Available commands:
/books - Display all books
/add - Add a new book
/borrow [id] - Borrow a book
/return [id] - Return a book
/search [term] - Search books by title or author
/history <id> - Show the loans of a book
/top - Most borrowed books`

	b.reply(message.Chat.ID, text)
}

// handleBooks lists the whole catalog
func (b *Bot) handleBooks(ctx context.Context, message *tgbotapi.Message) {
	books, err := b.svc.ListBooks(ctx)
	if err != nil {
		b.replyError(message.Chat.ID, err, "")
		return
	}

	if len(books) == 0 {
		b.reply(message.Chat.ID, "No books found in the library.")
		return
	}

	b.reply(message.Chat.ID, "All books:\n\n"+formatBooks(books))
}

// handleAddStart initiates the add book conversation
func (b *Bot) handleAddStart(message *tgbotapi.Message) {
	b.setState(message.From.ID, &ConversationState{
		Command: commandAdd,
		Step:    1,
		Data:    make(map[string]string),
	})

	b.reply(message.Chat.ID, "Please enter the book title:")
}

// handleBorrowStart borrows the given book, or offers the available ones
func (b *Bot) handleBorrowStart(ctx context.Context, message *tgbotapi.Message, args string) {
	if args != "" {
		b.borrow(ctx, message.Chat.ID, args)
		return
	}

	b.offerBooks(ctx, message.Chat.ID, true)
}

// handleReturnStart returns the given book, or offers the borrowed ones
func (b *Bot) handleReturnStart(ctx context.Context, message *tgbotapi.Message, args string) {
	if args != "" {
		b.returnBook(ctx, message.Chat.ID, args)
		return
	}

	b.offerBooks(ctx, message.Chat.ID, false)
}

// handleSearchStart searches right away or asks for a search term
func (b *Bot) handleSearchStart(ctx context.Context, message *tgbotapi.Message, args string) {
	if args != "" {
		b.search(ctx, message.Chat.ID, args)
		return
	}

	b.setState(message.From.ID, &ConversationState{
		Command: commandSearch,
		Step:    1,
		Data:    make(map[string]string),
	})
	b.reply(message.Chat.ID, "Enter book title or author:")
}

// handleHistory shows the loans of one book
func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message, args string) {
	id, err := parseBookID(args)
	var book models.Book
	if err == nil {
		book, err = b.svc.GetBook(ctx, id)
	}
	var loans []models.Loan
	if err == nil {
		loans, err = b.svc.BookLoans(ctx, id)
	}
	if err != nil {
		b.replyError(message.Chat.ID, err, "Usage: /history <book id>")
		return
	}

	if len(loans) == 0 {
		b.reply(message.Chat.ID, fmt.Sprintf("%q has never been borrowed.", book.Title))
		return
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("Loans of %q:\n\n", book.Title))
	for i, loan := range loans {
		returned := "on loan"
		if loan.ReturnDate != nil {
			returned = loan.ReturnDate.Format("2006-01-02")
		}
		text.WriteString(fmt.Sprintf("%d. %s → %s\n", i+1, loan.BorrowDate.Format("2006-01-02"), returned))
	}

	b.reply(message.Chat.ID, text.String())
}

// handleTop shows the most borrowed books
func (b *Bot) handleTop(ctx context.Context, message *tgbotapi.Message) {
	stats, err := b.svc.MostBorrowed(ctx, topLimit)
	if err != nil {
		b.replyError(message.Chat.ID, err, "")
		return
	}

	if len(stats) == 0 {
		b.reply(message.Chat.ID, "No books have been borrowed yet.")
		return
	}

	var text strings.Builder
	text.WriteString("📊 Most borrowed books:\n\n")
	for i, stat := range stats {
		text.WriteString(fmt.Sprintf("%d. %s by %s (%d loans)\n",
			i+1, stat.Book.Title, stat.Book.Author, stat.BorrowCount))
	}

	b.reply(message.Chat.ID, text.String())
}

// offerBooks shows an inline keyboard of the books that can be borrowed
// (available) or returned (!available)
func (b *Bot) offerBooks(ctx context.Context, chatID int64, available bool) {
	books, err := b.svc.ListBooks(ctx)
	if err != nil {
		b.replyError(chatID, err, "")
		return
	}

	action, prompt, none := "return", "📚 Select a book to return:", "No books are currently borrowed."
	if available {
		action, prompt, none = "borrow", "📚 Select a book to borrow:", "No books are available for borrowing."
	}

	var candidates []models.Book
	for _, book := range books {
		if book.Available == available {
			candidates = append(candidates, book)
		}
	}

	if len(candidates) == 0 {
		b.reply(chatID, none)
		return
	}

	msg := tgbotapi.NewMessage(chatID, prompt)
	msg.ReplyMarkup = bookKeyboard(candidates, action)
	b.sendMessage(msg)
}

func (b *Bot) borrow(ctx context.Context, chatID int64, rawID string) {
	id, err := parseBookID(rawID)
	if err == nil {
		_, err = b.svc.Borrow(ctx, id)
	}
	if err != nil {
		b.replyError(chatID, err, invalidBookID)
		return
	}

	b.reply(chatID, "Book borrowed successfully!")
}

func (b *Bot) returnBook(ctx context.Context, chatID int64, rawID string) {
	id, err := parseBookID(rawID)
	if err == nil {
		_, err = b.svc.Return(ctx, id)
	}
	if err != nil {
		b.replyError(chatID, err, invalidBookID)
		return
	}

	b.reply(chatID, "Book returned successfully!")
}

func (b *Bot) search(ctx context.Context, chatID int64, term string) {
	books, err := b.svc.SearchBooks(ctx, term)
	if err != nil {
		b.replyError(chatID, err, "Search term cannot be empty.")
		return
	}

	if len(books) == 0 {
		b.reply(chatID, "No books found matching the search criteria.")
		return
	}

	b.reply(chatID, "Search results:\n\n"+formatBooks(books))
}
