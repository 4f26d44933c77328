package bot

import (
	"context"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeReplier struct {
	params []*telego.SendMessageParams
}

func (f *fakeReplier) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.params = append(f.params, params)
	return &telego.Message{}, nil
}

func newTestBot(t *testing.T) (*CommandBot, *fakeReplier) {
	r := &fakeReplier{}
	return &CommandBot{client: r, welcome: WelcomeText, logger: zaptest.NewLogger(t)}, r
}

func TestCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "/start", want: "start"},
		{in: "/start@EluupSignalBot", want: "start"},
		{in: "/START payload", want: "start"},
		{in: "  /help", want: "help"},
		{in: "start", want: ""},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, command(tt.in))
		})
	}
}

func TestCommandBot_ReplyToStart(t *testing.T) {
	b, r := newTestBot(t)

	update := telego.Update{
		UpdateID: 1,
		Message: &telego.Message{
			Text:            "/start",
			Chat:            telego.Chat{ID: 42},
			MessageThreadID: 7,
		},
	}
	require.NoError(t, b.handleUpdate(context.Background(), update))

	require.Len(t, r.params, 1)
	assert.Equal(t, int64(42), r.params[0].ChatID.ID)
	assert.Equal(t, 7, r.params[0].MessageThreadID)
	assert.Equal(t, WelcomeText, r.params[0].Text)
	assert.Equal(t, telego.ModeMarkdownV2, r.params[0].ParseMode)
}

func TestCommandBot_IgnoresOtherUpdates(t *testing.T) {
	b, r := newTestBot(t)

	updates := []telego.Update{
		{UpdateID: 1},
		{UpdateID: 2, Message: &telego.Message{Text: "hello", Chat: telego.Chat{ID: 1}}},
		{UpdateID: 3, Message: &telego.Message{Text: "/help", Chat: telego.Chat{ID: 1}}},
	}
	for _, u := range updates {
		require.NoError(t, b.handleUpdate(context.Background(), u))
	}
	assert.Empty(t, r.params)
}
