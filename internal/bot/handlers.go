package bot

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	userLock := b.userLock(message.From.ID)
	userLock.Lock()
	defer userLock.Unlock()

	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.reply(message.Chat.ID, "An error occurred while processing your request. Please try again.")
		}
	}()

	userID := message.From.ID
	ctx := context.Background()

	if message.IsCommand() {
		// Any command interrupts an ongoing conversation
		b.clearState(userID)
		b.handleCommand(ctx, message)
		return
	}

	if state := b.getState(userID); state != nil {
		b.handleConversation(ctx, message, state)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start", "help":
		b.handleStart(message)
	case "books":
		b.handleBooks(ctx, message)
	case commandAdd:
		b.handleAddStart(message)
	case "borrow":
		b.handleBorrowStart(ctx, message, args)
	case "return":
		b.handleReturnStart(ctx, message, args)
	case commandSearch:
		b.handleSearchStart(ctx, message, args)
	case "history":
		b.handleHistory(ctx, message, args)
	case "top":
		b.handleTop(ctx, message)
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /start to see available commands.")
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	ctx := context.Background()

	// Answer the callback query to remove loading state
	if b.client != nil {
		if _, err := b.client.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			b.logger.Warn("Failed to answer callback query", zap.Error(err))
		}
	}

	if query.Message == nil {
		return
	}

	data := query.Data
	switch {
	case strings.HasPrefix(data, "borrow:"):
		b.handleBorrowCallback(ctx, query)
	case strings.HasPrefix(data, "return:"):
		b.handleReturnCallback(ctx, query)
	default:
		b.logger.Debug("Ignoring unknown callback", zap.String("callback_data", data))
	}
}

// userLock returns the lock held while a message of userID is handled
func (b *Bot) userLock(userID int64) *sync.Mutex {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()

	if b.userLocks == nil {
		b.userLocks = make(map[int64]*sync.Mutex)
	}
	mu, ok := b.userLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		b.userLocks[userID] = mu
	}
	return mu
}

func (b *Bot) getState(userID int64) *ConversationState {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	return b.states[userID]
}

func (b *Bot) setState(userID int64, state *ConversationState) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	b.states[userID] = state
}

func (b *Bot) clearState(userID int64) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	delete(b.states, userID)
}
