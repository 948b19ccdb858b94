package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleConversation processes multi-step conversations
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	switch state.Command {
	case commandAdd:
		b.handleAddConversation(ctx, message, state)
	case commandSearch:
		b.handleSearchConversation(ctx, message, state)
	}

	// Clean up completed conversations
	if state.Step == stepDone {
		b.clearState(message.From.ID)
	}
}

// handleAddConversation collects the title and then the author of a new book
func (b *Bot) handleAddConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	text := strings.TrimSpace(message.Text)

	switch state.Step {
	case 1: // Waiting for title
		if text == "" {
			b.reply(message.Chat.ID, "Title cannot be empty. Please enter the book title:")
			return
		}
		state.Data["title"] = text
		state.Step = 2
		b.reply(message.Chat.ID, "Please enter the author:")

	case 2: // Waiting for author
		if text == "" {
			b.reply(message.Chat.ID, "Author cannot be empty. Please enter the author:")
			return
		}

		id, err := b.svc.AddBook(ctx, state.Data["title"], text)
		if err != nil {
			b.replyError(message.Chat.ID, err, "Title and Author cannot be empty.")
		} else {
			b.reply(message.Chat.ID, fmt.Sprintf("Book added successfully!\nID: %d\nTitle: %s\nAuthor: %s",
				id, state.Data["title"], text))
		}

		state.Step = stepDone
	}
}

// handleSearchConversation runs the search once the term arrives
func (b *Bot) handleSearchConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	if strings.TrimSpace(message.Text) == "" {
		b.reply(message.Chat.ID, "Search term cannot be empty. Enter book title or author:")
		return
	}

	b.search(ctx, message.Chat.ID, message.Text)
	state.Step = stepDone
}
