package bot

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"library-catalog/internal/library"
)

// NewBot creates a new Telegram bot
func NewBot(token string, svc *library.Service, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return &Bot{
		api:    api,
		client: api,
		svc:    svc,
		states:    make(map[int64]*ConversationState),
		userLocks: make(map[int64]*sync.Mutex),
		logger:    logger,
	}, nil
}
