package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"library-catalog/internal/library"
)

// sender is the part of the Telegram API used to reply to users
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api      *tgbotapi.BotAPI
	client   sender
	svc      *library.Service
	states   map[int64]*ConversationState
	statesMu sync.Mutex

	// userLocks serializes the messages of each user so a conversation
	// never advances from two goroutines at once
	userLocks map[int64]*sync.Mutex
	logger   *zap.Logger
}

// ConversationState tracks the state of multi-step commands
type ConversationState struct {
	Command string
	Step    int
	Data    map[string]string
}

const (
	commandAdd    = "add"
	commandSearch = "search"

	stepDone = -1
)
