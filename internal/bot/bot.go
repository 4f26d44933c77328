package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

// WelcomeText is the MarkdownV2 reply to /start.
const WelcomeText = "🚀 *Welcome to ELUUP Signal Bot\\!* Your personal AI trading assistant, here to organize and streamline your trading life\\.\n" +
	"🧠 For more information, please join the groups below to start receiving signals\\:"

type replier interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// CommandBot answers the /start command. It holds no per-chat state.
type CommandBot struct {
	bot     *telego.Bot
	client  replier
	welcome string
	logger  *zap.Logger
}

func NewCommandBot(bot *telego.Bot, welcome string, logger *zap.Logger) *CommandBot {
	if welcome == "" {
		welcome = WelcomeText
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandBot{
		bot:     bot,
		client:  bot,
		welcome: welcome,
		logger:  logger,
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *CommandBot) Run(ctx context.Context) error {
	updates, err := b.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	b.logger.Info("command bot started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.handleUpdate(ctx, update); err != nil {
				b.logger.Error("failed to handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
			}
		}
	}
}

func (b *CommandBot) handleUpdate(ctx context.Context, update telego.Update) error {
	msg := update.Message
	if msg == nil || command(msg.Text) != "start" {
		return nil
	}

	_, err := b.client.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          tu.ID(msg.Chat.ID),
		MessageThreadID: msg.MessageThreadID,
		Text:            b.welcome,
		ParseMode:       telego.ModeMarkdownV2,
	})
	return err
}

// command extracts "start" from "/start", "/start@SomeBot" or "/start payload".
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	return strings.ToLower(name)
}
