package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/songzhibin97/trendsignal/internal/models"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramSender implements dispatch.Sender on top of the Telegram Bot API
type TelegramSender struct {
	client messageSender
	mu     sync.Mutex
}

// NewBot creates the Telegram bot client shared by the sender and the command handler
func NewBot(token string, debug bool) (*telego.Bot, error) {
	var opts []telego.BotOption
	if debug {
		opts = append(opts, telego.WithDefaultDebugLogger())
	}

	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

// NewTelegramSender creates a new TelegramSender instance
func NewTelegramSender(bot *telego.Bot) *TelegramSender {
	return &TelegramSender{client: bot}
}

// Send implements dispatch.Sender. A zero ThreadID posts to the chat's general topic.
func (s *TelegramSender) Send(ctx context.Context, dest models.Destination, text, parseMode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params := &telego.SendMessageParams{
		ChatID:          tu.ID(dest.ChatID),
		MessageThreadID: dest.ThreadID,
		Text:            text,
		ParseMode:       parseMode,
	}

	if _, err := s.client.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}
