package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/songzhibin97/trendsignal/internal/data"
	"github.com/songzhibin97/trendsignal/internal/models"
)

// MultiSourceCollector implements data.PoolSource and data.SeriesProvider by
// trying each configured source in order until one succeeds.
type MultiSourceCollector struct {
	sources []DataSource
	logger  *zap.Logger
}

type DataSource interface {
	Name() string
	GetTopPools(ctx context.Context, network string) ([]models.PoolRecord, error)
	FetchSeries(ctx context.Context, pool models.PoolRecord, timeframe time.Duration) (models.PriceSeries, error)
}

func NewMultiSourceCollector(sources []DataSource, logger *zap.Logger) *MultiSourceCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiSourceCollector{
		sources: sources,
		logger:  logger,
	}
}

// GetTopPools implements data.PoolSource
func (c *MultiSourceCollector) GetTopPools(ctx context.Context, network string) ([]models.PoolRecord, error) {
	lastErr := fmt.Errorf("no sources configured: %w", data.ErrDataUnavailable)

	for _, source := range c.sources {
		pools, err := source.GetTopPools(ctx, network)
		if err == nil {
			c.logger.Debug("collected top pools",
				zap.String("source", source.Name()),
				zap.String("network", network),
				zap.Int("count", len(pools)))
			return pools, nil
		}
		c.logger.Warn("failed to collect top pools",
			zap.String("source", source.Name()),
			zap.String("network", network),
			zap.Error(err))
		lastErr = err
	}

	return nil, fmt.Errorf("failed to collect top pools from all sources: %w", lastErr)
}

// FetchSeries implements data.SeriesProvider
func (c *MultiSourceCollector) FetchSeries(ctx context.Context, pool models.PoolRecord, timeframe time.Duration) (models.PriceSeries, error) {
	lastErr := fmt.Errorf("no sources configured: %w", data.ErrDataUnavailable)

	for _, source := range c.sources {
		series, err := source.FetchSeries(ctx, pool, timeframe)
		if err == nil {
			c.logger.Debug("collected price series",
				zap.String("source", source.Name()),
				zap.String("network", pool.Network),
				zap.String("pool", pool.Address),
				zap.Int("points", len(series.Points)))
			return series, nil
		}
		c.logger.Warn("failed to collect price series",
			zap.String("source", source.Name()),
			zap.String("network", pool.Network),
			zap.String("pool", pool.Address),
			zap.Error(err))
		lastErr = err
	}

	return models.PriceSeries{}, fmt.Errorf("failed to collect price series from all sources: %w", lastErr)
}
