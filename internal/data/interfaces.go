package data

import (
	"context"
	"errors"
	"time"

	"github.com/songzhibin97/trendsignal/internal/models"
)

var (
	// ErrDataUnavailable upstream has no data for the pool/timeframe combination
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrTransientFetch network, timeout or upstream overload failure
	ErrTransientFetch = errors.New("transient fetch error")
)

// PoolSource 负责获取网络上的热门流动性池
type PoolSource interface {
	// GetTopPools retrieves the current top pools of a network
	GetTopPools(ctx context.Context, network string) ([]models.PoolRecord, error)
}

// SeriesProvider 负责获取流动性池的历史价格序列
type SeriesProvider interface {
	// FetchSeries retrieves the close-price history of a pool, oldest first
	FetchSeries(ctx context.Context, pool models.PoolRecord, timeframe time.Duration) (models.PriceSeries, error)
}

// AlertJournal 处理已投递告警的持久化
type AlertJournal interface {
	// SaveAlert stores a delivered alert
	SaveAlert(ctx context.Context, record *models.AlertRecord) error

	// GetRecentAlerts retrieves alerts sent for a network since the given time
	GetRecentAlerts(ctx context.Context, network string, since time.Time) ([]models.AlertRecord, error)
}
