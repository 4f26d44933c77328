package geckoterminal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/songzhibin97/trendsignal/internal/data"
	"github.com/songzhibin97/trendsignal/internal/models"
)

func setupTestServer(t *testing.T, path string, status int, body string) (*httptest.Server, *GeckoTerminalDataSource) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, path, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, err := w.Write([]byte(body))
		require.NoError(t, err)
	}))

	ds := NewGeckoTerminalDataSource(server.URL, 200, resty.NewWithClient(server.Client()), zaptest.NewLogger(t))

	return server, ds
}

const topPoolsBody = `{
  "data": [
    {
      "id": "eth_0xaaa",
      "type": "pool",
      "attributes": {
        "address": "0xaaa",
        "name": "WETH / USDC 0.05%",
        "base_token_price_usd": "3012.55",
        "fdv_usd": "9000000.5",
        "market_cap_usd": null,
        "reserve_in_usd": "250000.75",
        "pool_created_at": "2023-01-02T03:04:05Z",
        "volume_usd": {"h24": "1500000.1"},
        "transactions": {"h24": {"buys": 120, "sells": 95}}
      },
      "relationships": {"dex": {"data": {"id": "uniswap_v3", "type": "dex"}}}
    },
    {
      "id": "eth_0xbad",
      "type": "pool",
      "attributes": {
        "address": "0xbad",
        "name": "BROKEN",
        "reserve_in_usd": "not-a-number",
        "pool_created_at": "2023-01-02T03:04:05Z"
      }
    },
    {
      "id": "eth_0xccc",
      "type": "pool",
      "attributes": {
        "address": "0xccc",
        "name": "PEPE / WETH",
        "base_token_price_usd": "0.0000012",
        "fdv_usd": "500000",
        "market_cap_usd": "420000.42",
        "reserve_in_usd": "80000",
        "pool_created_at": "2024-05-06T07:08:09Z",
        "volume_usd": {"h24": "200000"},
        "transactions": {"h24": {"buys": 10, "sells": 4}}
      },
      "relationships": {"dex": {"data": {"id": "uniswap_v2", "type": "dex"}}}
    }
  ]
}`

func TestGeckoTerminalDataSource_Name(t *testing.T) {
	ds := NewGeckoTerminalDataSource("", 0, nil, nil)
	assert.Equal(t, "geckoterminal", ds.Name())
	assert.Equal(t, DefaultBaseURL, ds.baseURL)
	assert.Equal(t, defaultOHLCVLimit, ds.ohlcvLimit)
}

func TestGeckoTerminalDataSource_GetTopPools(t *testing.T) {
	server, ds := setupTestServer(t, "/networks/eth/pools", http.StatusOK, topPoolsBody)
	defer server.Close()

	pools, err := ds.GetTopPools(context.Background(), "eth")
	require.NoError(t, err)
	require.Len(t, pools, 2, "malformed pool is skipped")

	first := pools[0]
	assert.Equal(t, "eth", first.Network)
	assert.Equal(t, "0xaaa", first.Address)
	assert.Equal(t, "WETH / USDC 0.05%", first.Name)
	assert.Equal(t, "uniswap_v3", first.DexID)
	assert.InDelta(t, 1500000.1, first.Volume24h, 1e-6)
	assert.InDelta(t, 250000.75, first.ReserveUSD, 1e-6)
	assert.InDelta(t, 9000000.5, first.FDV, 1e-6)
	assert.InDelta(t, 3012.55, first.BaseTokenUSD, 1e-9)
	assert.Nil(t, first.MarketCap)
	assert.Equal(t, 120, first.Buys24h)
	assert.Equal(t, 95, first.Sells24h)
	assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), first.PoolCreatedAt.UTC())

	second := pools[1]
	assert.Equal(t, "0xccc", second.Address)
	require.NotNil(t, second.MarketCap)
	assert.InDelta(t, 420000.42, *second.MarketCap, 1e-6)
}

func TestGeckoTerminalDataSource_FetchSeries(t *testing.T) {
	// newest first, as upstream returns it
	body := `{"data":{"attributes":{"ohlcv_list":[
		[1700014400, 1.0, 1.2, 0.9, 1.3, 1000],
		[1700000000, 1.0, 1.1, 0.8, 1.1, 900],
		[1700028800, 1.3, 1.5, 1.2, 1.4, 800]
	]}}}`
	server, ds := setupTestServer(t, "/networks/eth/pools/0xaaa/ohlcv/hour", http.StatusOK, body)
	defer server.Close()

	pool := models.PoolRecord{Network: "eth", Address: "0xaaa"}
	series, err := ds.FetchSeries(context.Background(), pool, 4*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "eth", series.Network)
	assert.Equal(t, "0xaaa", series.Address)
	assert.Equal(t, 4*time.Hour, series.Timeframe)
	assert.Equal(t, []float64{1.1, 1.3, 1.4}, series.Closes())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), series.Points[0].Timestamp)
}

func TestGeckoTerminalDataSource_FetchSeriesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/networks/bsc/pools/0xbbb/ohlcv/minute", r.URL.Path)
		assert.Equal(t, "15", r.URL.Query().Get("aggregate"))
		assert.Equal(t, "200", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":{"attributes":{"ohlcv_list":[[1700000000,1,1,1,2,1]]}}}`))
	}))
	defer server.Close()

	ds := NewGeckoTerminalDataSource(server.URL, 200, resty.NewWithClient(server.Client()), zaptest.NewLogger(t))
	series, err := ds.FetchSeries(context.Background(), models.PoolRecord{Network: "bsc", Address: "0xbbb"}, 15*time.Minute)
	require.NoError(t, err)
	assert.Len(t, series.Points, 1)
}

func TestGeckoTerminalDataSource_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantKind   error
	}{
		{
			name:       "http 404 is data unavailable",
			statusCode: http.StatusNotFound,
			body:       `{"errors":[{"status":"404"}]}`,
			wantKind:   data.ErrDataUnavailable,
		},
		{
			name:       "http 429 rate limit is transient",
			statusCode: http.StatusTooManyRequests,
			body:       `{}`,
			wantKind:   data.ErrTransientFetch,
		},
		{
			name:       "http 502 is transient",
			statusCode: http.StatusBadGateway,
			body:       `{}`,
			wantKind:   data.ErrTransientFetch,
		},
		{
			name:       "empty candle list is data unavailable",
			statusCode: http.StatusOK,
			body:       `{"data":{"attributes":{"ohlcv_list":[]}}}`,
			wantKind:   data.ErrDataUnavailable,
		},
		{
			name:       "invalid json response",
			statusCode: http.StatusOK,
			body:       "invalid json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, ds := setupTestServer(t, "/networks/eth/pools/0xaaa/ohlcv/hour", tt.statusCode, tt.body)
			defer server.Close()

			_, err := ds.FetchSeries(context.Background(), models.PoolRecord{Network: "eth", Address: "0xaaa"}, 4*time.Hour)
			require.Error(t, err)
			if tt.wantKind != nil {
				assert.ErrorIs(t, err, tt.wantKind)
			}
		})
	}
}

func TestGeckoTerminalDataSource_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := resty.NewWithClient(server.Client())
	url := server.URL
	server.Close()

	ds := NewGeckoTerminalDataSource(url, 0, client, zaptest.NewLogger(t))
	_, err := ds.GetTopPools(context.Background(), "eth")
	require.Error(t, err)
	assert.ErrorIs(t, err, data.ErrTransientFetch)
}

func TestTimeframeParams(t *testing.T) {
	tests := []struct {
		in            time.Duration
		wantPeriod    string
		wantAggregate int
		wantErr       bool
	}{
		{in: 24 * time.Hour, wantPeriod: "day", wantAggregate: 1},
		{in: 4 * time.Hour, wantPeriod: "hour", wantAggregate: 4},
		{in: 12 * time.Hour, wantPeriod: "hour", wantAggregate: 12},
		{in: 5 * time.Minute, wantPeriod: "minute", wantAggregate: 5},
		{in: 2 * time.Hour, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			period, aggregate, err := TimeframeParams(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPeriod, period)
			assert.Equal(t, tt.wantAggregate, aggregate)
		})
	}
}
