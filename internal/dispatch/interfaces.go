package dispatch

import (
	"context"
	"errors"

	"github.com/songzhibin97/trendsignal/internal/models"
)

var (
	// ErrUnknownNetwork the network has no destination configured
	ErrUnknownNetwork = errors.New("unknown network")
	// ErrDelivery the transport failed to deliver the message
	ErrDelivery = errors.New("delivery failed")
)

// Dispatcher defines methods for routing alerts to their destination
type Dispatcher interface {
	// Dispatch delivers an alert to the destination mapped to network
	Dispatch(ctx context.Context, alert *models.Alert, network string) error
}

// Sender delivers text to a chat destination
type Sender interface {
	// Send posts text with the given markup mode
	Send(ctx context.Context, dest models.Destination, text, parseMode string) error
}
