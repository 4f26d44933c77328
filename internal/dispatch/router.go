package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/songzhibin97/trendsignal/internal/models"
)

// NetworkDispatcher implements Dispatcher with a static network -> destination table.
// The table is read-only after construction.
type NetworkDispatcher struct {
	routes map[string]models.Destination
	sender Sender
	logger *zap.Logger
}

func NewNetworkDispatcher(routes map[string]models.Destination, sender Sender, logger *zap.Logger) *NetworkDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	table := make(map[string]models.Destination, len(routes))
	for network, dest := range routes {
		table[network] = dest
	}
	return &NetworkDispatcher{
		routes: table,
		sender: sender,
		logger: logger,
	}
}

// Destination resolves the destination configured for network.
func (d *NetworkDispatcher) Destination(network string) (models.Destination, error) {
	dest, ok := d.routes[network]
	if !ok {
		return models.Destination{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
	return dest, nil
}

// Dispatch implements Dispatcher
func (d *NetworkDispatcher) Dispatch(ctx context.Context, alert *models.Alert, network string) error {
	dest, err := d.Destination(network)
	if err != nil {
		return err
	}

	if err := d.sender.Send(ctx, dest, alert.Text, alert.ParseMode); err != nil {
		return fmt.Errorf("%w: network %s chat %d thread %d: %w", ErrDelivery, network, dest.ChatID, dest.ThreadID, err)
	}

	d.logger.Info("alert dispatched",
		zap.String("network", network),
		zap.String("pool", alert.PoolAddress),
		zap.Int64("chat_id", dest.ChatID),
		zap.Int("thread_id", dest.ThreadID))

	return nil
}
