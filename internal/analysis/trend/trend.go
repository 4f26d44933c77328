package trend

import (
	"fmt"

	"github.com/songzhibin97/trendsignal/internal/models"
)

// Windows 三条均线的窗口长度，要求 slow > mid > fast > 0
type Windows struct {
	Slow int `json:"slow_ma" mapstructure:"slow_ma"`
	Mid  int `json:"mid_ma" mapstructure:"mid_ma"`
	Fast int `json:"fast_ma" mapstructure:"fast_ma"`
}

// DefaultWindows is the 150/75/20 trend follower configuration.
var DefaultWindows = Windows{Slow: 150, Mid: 75, Fast: 20}

func (w Windows) Validate() error {
	if w.Fast <= 0 || w.Mid <= w.Fast || w.Slow <= w.Mid {
		return fmt.Errorf("invalid moving average windows %d/%d/%d: need slow > mid > fast > 0", w.Slow, w.Mid, w.Fast)
	}
	return nil
}

// TrendFollower implements analysis.Evaluator with a three moving average rule:
// bullish when the fast average is above the mid average and the close is above the slow one.
type TrendFollower struct {
	windows Windows
}

func NewTrendFollower(windows Windows) (*TrendFollower, error) {
	if err := windows.Validate(); err != nil {
		return nil, err
	}
	return &TrendFollower{windows: windows}, nil
}

func (t *TrendFollower) Windows() Windows {
	return t.windows
}

// Evaluate implements analysis.Evaluator
func (t *TrendFollower) Evaluate(series models.PriceSeries) models.Verdict {
	last, ok := series.Last()
	if !ok {
		return models.Verdict{Signal: models.NoSignal, Insufficient: true}
	}

	verdict := models.Verdict{
		Signal:    models.NoSignal,
		Close:     last.Close,
		Timestamp: last.Timestamp,
	}

	closes := series.Closes()
	i := len(closes) - 1

	slow, okSlow := smaAt(closes, t.windows.Slow, i)
	mid, okMid := smaAt(closes, t.windows.Mid, i)
	fast, okFast := smaAt(closes, t.windows.Fast, i)
	if !okSlow || !okMid || !okFast {
		verdict.Insufficient = true
		return verdict
	}

	verdict.SlowMA = slow
	verdict.MidMA = mid
	verdict.FastMA = fast

	if fast > mid && last.Close > slow {
		verdict.Signal = models.Bullish
	}

	return verdict
}
