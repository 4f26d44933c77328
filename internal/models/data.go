package models

import "time"

// PoolRecord 流动性池快照，每个轮询周期重新获取
type PoolRecord struct {
	Network       string    `json:"network"`
	Address       string    `json:"address"`
	Name          string    `json:"name"`
	DexID         string    `json:"dex_id"`
	Volume24h     float64   `json:"volume_usd_h24"`
	ReserveUSD    float64   `json:"reserve_in_usd"`
	FDV           float64   `json:"fdv_usd"`
	MarketCap     *float64  `json:"market_cap_usd"` // nil when upstream has no value
	BaseTokenUSD  float64   `json:"base_token_price_usd"`
	Buys24h       int       `json:"buys_h24"`
	Sells24h      int       `json:"sells_h24"`
	PoolCreatedAt time.Time `json:"pool_created_at"`
}

// PricePoint 单根K线的收盘价
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Close     float64   `json:"close"`
}

// PriceSeries 按时间升序排列的收盘价序列
type PriceSeries struct {
	Network   string        `json:"network"`
	Address   string        `json:"address"`
	Timeframe time.Duration `json:"timeframe"`
	Points    []PricePoint  `json:"points"`
}

// Closes returns the closing prices in series order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent sample.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

type Signal int

const (
	NoSignal Signal = iota
	Bullish
)

func (s Signal) String() string {
	switch s {
	case Bullish:
		return "bullish"
	default:
		return "no_signal"
	}
}

// Verdict 最新一根K线上的趋势判断结果
type Verdict struct {
	Signal       Signal    `json:"signal"`
	Insufficient bool      `json:"insufficient"` // not enough history for the slow window
	Close        float64   `json:"close"`
	FastMA       float64   `json:"fast_ma"`
	MidMA        float64   `json:"mid_ma"`
	SlowMA       float64   `json:"slow_ma"`
	Timestamp    time.Time `json:"timestamp"`
}

// Alert 渲染完成、待发送的告警
type Alert struct {
	Network     string `json:"network"`
	PoolAddress string `json:"pool_address"`
	PoolName    string `json:"pool_name"`
	Text        string `json:"text"`
	ParseMode   string `json:"parse_mode"`
}

// Destination 告警的投递目标（群组 + 话题）
type Destination struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id"`
}

// AlertRecord 已投递告警的存档记录
type AlertRecord struct {
	Network     string    `json:"network"`
	PoolAddress string    `json:"pool_address"`
	PoolName    string    `json:"pool_name"`
	Close       float64   `json:"close"`
	FastMA      float64   `json:"fast_ma"`
	MidMA       float64   `json:"mid_ma"`
	SlowMA      float64   `json:"slow_ma"`
	SentAt      time.Time `json:"sent_at"`
}
