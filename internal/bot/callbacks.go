package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleBorrowCallback processes book selection from the borrow keyboard
func (b *Bot) handleBorrowCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	rawID := strings.TrimPrefix(query.Data, "borrow:")
	b.logger.Debug("Borrow selected",
		zap.Int64("user_id", query.From.ID),
		zap.String("book_id", rawID),
	)
	b.borrow(ctx, query.Message.Chat.ID, rawID)
}

// handleReturnCallback processes book selection from the return keyboard
func (b *Bot) handleReturnCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	rawID := strings.TrimPrefix(query.Data, "return:")
	b.logger.Debug("Return selected",
		zap.Int64("user_id", query.From.ID),
		zap.String("book_id", rawID),
	)
	b.returnBook(ctx, query.Message.Chat.ID, rawID)
}
