package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/trendsignal/internal/dispatch"
	"github.com/songzhibin97/trendsignal/internal/models"
)

var _ dispatch.Sender = (*TelegramSender)(nil)

type fakeClient struct {
	params []*telego.SendMessageParams
	err    error
}

func (f *fakeClient) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return &telego.Message{MessageID: len(f.params)}, nil
}

func TestTelegramSender_Send(t *testing.T) {
	client := &fakeClient{}
	s := &TelegramSender{client: client}

	err := s.Send(context.Background(), models.Destination{ChatID: -1002106189523, ThreadID: 6}, `hi\!`, telego.ModeMarkdownV2)
	require.NoError(t, err)

	require.Len(t, client.params, 1)
	p := client.params[0]
	assert.Equal(t, int64(-1002106189523), p.ChatID.ID)
	assert.Equal(t, 6, p.MessageThreadID)
	assert.Equal(t, `hi\!`, p.Text)
	assert.Equal(t, telego.ModeMarkdownV2, p.ParseMode)
}

func TestTelegramSender_SendError(t *testing.T) {
	apiErr := errors.New("Bad Request: can't parse entities")
	s := &TelegramSender{client: &fakeClient{err: apiErr}}

	err := s.Send(context.Background(), models.Destination{ChatID: 1}, "x", "")
	assert.ErrorIs(t, err, apiErr)
}

func TestNewBot_InvalidToken(t *testing.T) {
	_, err := NewBot("not-a-token", false)
	assert.Error(t, err)
}
