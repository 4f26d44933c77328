package geckoterminal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/songzhibin97/trendsignal/internal/data"
	"github.com/songzhibin97/trendsignal/internal/models"
	"github.com/songzhibin97/trendsignal/internal/utils/request"
)

const (
	DefaultBaseURL    = "https://api.geckoterminal.com/api/v2"
	defaultOHLCVLimit = 300
)

type GeckoTerminalDataSource struct {
	baseURL    string
	ohlcvLimit int
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewGeckoTerminalDataSource(baseURL string, ohlcvLimit int, httpClient *resty.Client, logger *zap.Logger) *GeckoTerminalDataSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if ohlcvLimit <= 0 {
		ohlcvLimit = defaultOHLCVLimit
	}
	if httpClient == nil {
		httpClient = request.Request
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeckoTerminalDataSource{
		baseURL:    baseURL,
		ohlcvLimit: ohlcvLimit,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (g *GeckoTerminalDataSource) Name() string {
	return "geckoterminal"
}

type poolAttributes struct {
	Address           string              `json:"address"`
	Name              string              `json:"name"`
	BaseTokenPriceUSD decimal.Decimal     `json:"base_token_price_usd"`
	FDVUSD            decimal.NullDecimal `json:"fdv_usd"`
	MarketCapUSD      decimal.NullDecimal `json:"market_cap_usd"`
	ReserveInUSD      decimal.Decimal     `json:"reserve_in_usd"`
	PoolCreatedAt     time.Time           `json:"pool_created_at"`
	VolumeUSD         struct {
		H24 decimal.Decimal `json:"h24"`
	} `json:"volume_usd"`
	Transactions struct {
		H24 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h24"`
	} `json:"transactions"`
}

type poolItem struct {
	ID            string         `json:"id"`
	Attributes    poolAttributes `json:"attributes"`
	Relationships struct {
		Dex struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"dex"`
	} `json:"relationships"`
}

// GetTopPools implements data.PoolSource
func (g *GeckoTerminalDataSource) GetTopPools(ctx context.Context, network string) ([]models.PoolRecord, error) {
	url := fmt.Sprintf("%s/networks/%s/pools", g.baseURL, network)

	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err := classify(resp, err); err != nil {
		return nil, fmt.Errorf("top pools for %s: %w", network, err)
	}

	var result struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	pools := make([]models.PoolRecord, 0, len(result.Data))
	for _, raw := range result.Data {
		var item poolItem
		if err := json.Unmarshal(raw, &item); err != nil {
			// one malformed pool must not hide the rest of the batch
			g.logger.Warn("skipping malformed pool", zap.String("network", network), zap.Error(err))
			continue
		}
		if item.Attributes.PoolCreatedAt.IsZero() {
			g.logger.Warn("skipping pool without creation time", zap.String("network", network), zap.String("pool", item.ID))
			continue
		}
		pools = append(pools, item.toRecord(network))
	}

	return pools, nil
}

func (p poolItem) toRecord(network string) models.PoolRecord {
	a := p.Attributes
	record := models.PoolRecord{
		Network:       network,
		Address:       a.Address,
		Name:          a.Name,
		DexID:         p.Relationships.Dex.Data.ID,
		Volume24h:     a.VolumeUSD.H24.InexactFloat64(),
		ReserveUSD:    a.ReserveInUSD.InexactFloat64(),
		BaseTokenUSD:  a.BaseTokenPriceUSD.InexactFloat64(),
		Buys24h:       a.Transactions.H24.Buys,
		Sells24h:      a.Transactions.H24.Sells,
		PoolCreatedAt: a.PoolCreatedAt,
	}
	if a.FDVUSD.Valid {
		record.FDV = a.FDVUSD.Decimal.InexactFloat64()
	}
	if a.MarketCapUSD.Valid {
		mc := a.MarketCapUSD.Decimal.InexactFloat64()
		record.MarketCap = &mc
	}
	return record
}

// FetchSeries implements data.SeriesProvider
func (g *GeckoTerminalDataSource) FetchSeries(ctx context.Context, pool models.PoolRecord, timeframe time.Duration) (models.PriceSeries, error) {
	period, aggregate, err := TimeframeParams(timeframe)
	if err != nil {
		return models.PriceSeries{}, err
	}

	url := fmt.Sprintf("%s/networks/%s/pools/%s/ohlcv/%s", g.baseURL, pool.Network, pool.Address, period)

	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("aggregate", fmt.Sprint(aggregate)).
		SetQueryParam("limit", fmt.Sprint(g.ohlcvLimit)).
		Get(url)
	if err := classify(resp, err); err != nil {
		return models.PriceSeries{}, fmt.Errorf("ohlcv for %s/%s: %w", pool.Network, pool.Address, err)
	}

	var result struct {
		Data struct {
			Attributes struct {
				OHLCVList [][]float64 `json:"ohlcv_list"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return models.PriceSeries{}, fmt.Errorf("failed to decode response: %w", err)
	}

	candles := result.Data.Attributes.OHLCVList
	if len(candles) == 0 {
		return models.PriceSeries{}, fmt.Errorf("ohlcv for %s/%s: %w", pool.Network, pool.Address, data.ErrDataUnavailable)
	}

	points := make([]models.PricePoint, 0, len(candles))
	for _, c := range candles {
		// [timestamp, open, high, low, close, volume]
		if len(c) < 5 {
			continue
		}
		points = append(points, models.PricePoint{
			Timestamp: time.Unix(int64(c[0]), 0).UTC(),
			Close:     c[4],
		})
	}
	// upstream returns newest first
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	return models.PriceSeries{
		Network:   pool.Network,
		Address:   pool.Address,
		Timeframe: timeframe,
		Points:    points,
	}, nil
}

// TimeframeParams maps a candle duration onto the upstream timeframe/aggregate pair.
func TimeframeParams(d time.Duration) (string, int, error) {
	switch d {
	case 24 * time.Hour:
		return "day", 1, nil
	case 12 * time.Hour, 4 * time.Hour, time.Hour:
		return "hour", int(d / time.Hour), nil
	case 15 * time.Minute, 5 * time.Minute, time.Minute:
		return "minute", int(d / time.Minute), nil
	default:
		return "", 0, fmt.Errorf("unsupported timeframe: %s", d)
	}
}

func classify(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %w", data.ErrTransientFetch, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: unexpected status code: %d", data.ErrTransientFetch, code)
	default:
		return fmt.Errorf("%w: unexpected status code: %d", data.ErrDataUnavailable, code)
	}
}
