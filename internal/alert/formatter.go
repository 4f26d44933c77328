package alert

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/trendsignal/internal/analysis/trend"
	"github.com/songzhibin97/trendsignal/internal/models"
)

const (
	ParseModeMarkdownV2 = "MarkdownV2"

	defaultLinkBase = "https://www.geckoterminal.com"
)

var ErrFormat = errors.New("alert format error")

var markdownV2Escaper = strings.NewReplacer(
	`\`, `\\`,
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, `\~`,
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

var linkEscaper = strings.NewReplacer(`\`, `\\`, `)`, `\)`)

// EscapeMarkdownV2 neutralises every character Telegram reserves in MarkdownV2 text.
func EscapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// Formatter renders bullish verdicts into Telegram MarkdownV2 alerts.
type Formatter struct {
	windows  trend.Windows
	linkBase string
}

func NewFormatter(windows trend.Windows, linkBase string) *Formatter {
	if linkBase == "" {
		linkBase = defaultLinkBase
	}
	return &Formatter{
		windows:  windows,
		linkBase: strings.TrimRight(linkBase, "/"),
	}
}

// Reason is the human readable justification attached to every bullish alert.
func (f *Formatter) Reason() string {
	return fmt.Sprintf("The current price of the token is above the %d MA and the %d MA is above the %d MA. This is a bullish signal.",
		f.windows.Slow, f.windows.Fast, f.windows.Mid)
}

// Link is the pool page on GeckoTerminal.
func (f *Formatter) Link(pool models.PoolRecord) string {
	return fmt.Sprintf("%s/%s/pools/%s", f.linkBase, pool.Network, pool.Address)
}

// Format returns nil without error when the verdict carries no signal.
func (f *Formatter) Format(verdict models.Verdict, pool models.PoolRecord, tail models.PricePoint) (*models.Alert, error) {
	if verdict.Signal != models.Bullish {
		return nil, nil
	}

	price, err := fixed("price", tail.Close, 8)
	if err != nil {
		return nil, err
	}
	liquidity, err := fixed("liquidity", pool.ReserveUSD, 2)
	if err != nil {
		return nil, err
	}
	fdv, err := fixed("fdv", pool.FDV, 2)
	if err != nil {
		return nil, err
	}
	volume, err := fixed("volume", pool.Volume24h, 2)
	if err != nil {
		return nil, err
	}
	marketCap := "N/A"
	if pool.MarketCap != nil {
		if marketCap, err = fixed("market cap", *pool.MarketCap, 2); err != nil {
			return nil, err
		}
	}
	if pool.Buys24h < 0 || pool.Sells24h < 0 {
		return nil, fmt.Errorf("%w: negative transaction count %d/%d", ErrFormat, pool.Buys24h, pool.Sells24h)
	}

	var b strings.Builder
	b.WriteString("🚀 *Trading Signal Alert\\!* 🚀\n\n")
	b.WriteString("📈 *BULLISH CALL detected\\!*\n\n")
	fmt.Fprintf(&b, "*Ticker:* %s\n", EscapeMarkdownV2(pool.Name))
	fmt.Fprintf(&b, "*Price:* \\$ %s\n", EscapeMarkdownV2(price))
	fmt.Fprintf(&b, "*Reason:* %s\n", EscapeMarkdownV2(f.Reason()))
	fmt.Fprintf(&b, "*DEX:* %s\n", EscapeMarkdownV2(pool.DexID))
	fmt.Fprintf(&b, "*Liquidity:* \\$ %s\n", EscapeMarkdownV2(liquidity))
	fmt.Fprintf(&b, "*FDV:* \\$ %s\n", EscapeMarkdownV2(fdv))
	fmt.Fprintf(&b, "*Market Cap:* \\$ %s\n", EscapeMarkdownV2(marketCap))
	fmt.Fprintf(&b, "*24h Volume:* \\$ %s\n", EscapeMarkdownV2(volume))
	fmt.Fprintf(&b, "*Buys Txn:* %d\n", pool.Buys24h)
	fmt.Fprintf(&b, "*Sells Txn:* %d\n\n", pool.Sells24h)
	fmt.Fprintf(&b, "🔗 [View on GeckoTerminal](%s)", linkEscaper.Replace(f.Link(pool)))

	return &models.Alert{
		Network:     pool.Network,
		PoolAddress: pool.Address,
		PoolName:    pool.Name,
		Text:        b.String(),
		ParseMode:   ParseModeMarkdownV2,
	}, nil
}

func fixed(field string, v float64, places int32) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: %s is not a finite number", ErrFormat, field)
	}
	return decimal.NewFromFloat(v).StringFixed(places), nil
}
