package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"library-catalog/internal/library"
	"library-catalog/internal/models"
)

const invalidBookID = "Book ID must be a positive whole number."

// sendMessage sends a message, logging failures
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if b.client == nil {
		return // For testing
	}

	if _, err := b.client.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Error(err), zap.Int64("chat_id", msg.ChatID))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// replyError tells the user why an operation failed. invalid is shown for
// validation failures of the operation at hand.
func (b *Bot) replyError(chatID int64, err error, invalid string) {
	var text string
	switch {
	case errors.Is(err, library.ErrValidation):
		text = invalid
	case errors.Is(err, library.ErrNotFound):
		text = "No book exists with that ID."
	case errors.Is(err, library.ErrNotAvailable):
		text = "Book is not available for borrowing."
	case errors.Is(err, library.ErrNotBorrowed):
		text = "Book is not currently borrowed."
	case errors.Is(err, library.ErrConnectivity):
		b.logger.Error("Storage unreachable", zap.Error(err))
		text = "Cannot connect to the database. Please try again later."
	default:
		b.logger.Error("Operation failed", zap.Error(err))
		text = "An error occurred while processing your request. Please try again."
	}
	b.reply(chatID, text)
}

// parseBookID converts raw input into a positive book id
func parseBookID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, library.ErrValidation
	}
	return id, nil
}

func formatBooks(books []models.Book) string {
	var text strings.Builder
	for _, book := range books {
		text.WriteString(fmt.Sprintf("#%d %s by %s (%s)\n", book.ID, book.Title, book.Author, book.Status()))
	}
	return text.String()
}

// bookKeyboard builds an inline keyboard with one button per book, 2 columns
func bookKeyboard(books []models.Book, action string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var currentRow []tgbotapi.InlineKeyboardButton
	for i, book := range books {
		button := tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("#%d %s", book.ID, book.Title),
			fmt.Sprintf("%s:%d", action, book.ID),
		)
		currentRow = append(currentRow, button)

		// Add row when we have 2 buttons or it's the last book
		if len(currentRow) == 2 || i == len(books)-1 {
			rows = append(rows, currentRow)
			currentRow = []tgbotapi.InlineKeyboardButton{}
		}
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
