package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/songzhibin97/trendsignal/internal/analysis/trend"
	"github.com/songzhibin97/trendsignal/internal/data/collector/geckoterminal"
	"github.com/songzhibin97/trendsignal/internal/filter"
	"github.com/songzhibin97/trendsignal/internal/logger"
	"github.com/songzhibin97/trendsignal/internal/models"
)

const envPrefix = "TRENDSIGNAL"

type Config struct {
	Log logger.Config `mapstructure:"log"`

	// Telegram 机器人与目标群组
	Telegram TelegramConfig `mapstructure:"telegram"`

	// 按顺序扫描的网络及其话题 id
	Networks []NetworkConfig `mapstructure:"networks"`

	// 候选池筛选阈值
	Filter filter.Thresholds `mapstructure:"filter"`

	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`

	GeckoTerminal GeckoTerminalConfig `mapstructure:"geckoterminal"`

	// 告警流水，dsn 为空时不落库
	Database Database `mapstructure:"database"`

	Alert AlertConfig `mapstructure:"alert"`
}

type TelegramConfig struct {
	Token   string `mapstructure:"token"`   // bot token
	ChatID  int64  `mapstructure:"chat_id"` // 告警群组
	Debug   bool   `mapstructure:"debug"`
	Welcome string `mapstructure:"welcome"` // /start 回复，MarkdownV2
}

type NetworkConfig struct {
	ID       string `mapstructure:"id"`
	ThreadID int    `mapstructure:"thread_id"`
}

type StrategyConfig struct {
	Windows   trend.Windows `mapstructure:",squash"`
	Timeframe time.Duration `mapstructure:"timeframe"`
}

type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	NetworkPause time.Duration `mapstructure:"network_pause"`
	// 同一池子告警冷却时间，0 表示关闭，需要配置 database.dsn
	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`
}

type GeckoTerminalConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	OHLCVLimit int           `mapstructure:"ohlcv_limit"`
	RetryCount int           `mapstructure:"retry_count"`
}

type Database struct {
	DSN string `mapstructure:"dsn"`
}

type AlertConfig struct {
	LinkBase string `mapstructure:"link_base"`
}

// DefaultNetworks 默认扫描的网络以及在群组中对应的话题
func DefaultNetworks() []NetworkConfig {
	return []NetworkConfig{
		{ID: "eth", ThreadID: 2},
		{ID: "bsc", ThreadID: 10},
		{ID: "base", ThreadID: 4},
		{ID: "solana", ThreadID: 6},
		{ID: "blast", ThreadID: 24},
		{ID: "polygon_pos", ThreadID: 12},
		{ID: "arbitrum", ThreadID: 16},
		{ID: "optimism", ThreadID: 18},
		{ID: "pulsechain", ThreadID: 20},
		{ID: "cro", ThreadID: 22},
	}
}

// Load reads .env (if present), then the config file at path (optional), then
// the environment. TELEGRAM_TOKEN is honoured as well as TRENDSIGNAL_TELEGRAM_TOKEN.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("telegram.token", "TELEGRAM_TOKEN", envPrefix+"_TELEGRAM_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("failed to bind token env: %w", err)
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", -1002106189523)
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.welcome", "")
	v.SetDefault("filter.min_volume_usd", 100000)
	v.SetDefault("filter.min_pool_age", "720h")
	v.SetDefault("filter.min_reserve_usd", 50000)
	v.SetDefault("strategy.slow_ma", trend.DefaultWindows.Slow)
	v.SetDefault("strategy.mid_ma", trend.DefaultWindows.Mid)
	v.SetDefault("strategy.fast_ma", trend.DefaultWindows.Fast)
	v.SetDefault("strategy.timeframe", "4h")
	v.SetDefault("scheduler.interval", "10s")
	v.SetDefault("scheduler.network_pause", "1s")
	v.SetDefault("scheduler.alert_cooldown", "0s")
	v.SetDefault("geckoterminal.base_url", geckoterminal.DefaultBaseURL)
	v.SetDefault("geckoterminal.timeout", "15s")
	v.SetDefault("geckoterminal.ohlcv_limit", 300)
	v.SetDefault("geckoterminal.retry_count", 3)
	v.SetDefault("database.dsn", "")
	v.SetDefault("alert.link_base", "https://www.geckoterminal.com")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if len(cfg.Networks) == 0 {
		cfg.Networks = DefaultNetworks()
	}
	return cfg, nil
}

// Validate 启动前校验，任何一项不通过都拒绝启动
func (c Config) Validate() error {
	var errs []error

	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram token is required (TELEGRAM_TOKEN)"))
	}
	if c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram chat_id is required"))
	}

	if len(c.Networks) == 0 {
		errs = append(errs, errors.New("at least one network is required"))
	}
	seen := make(map[string]struct{}, len(c.Networks))
	for _, n := range c.Networks {
		if n.ID == "" {
			errs = append(errs, errors.New("network id must not be empty"))
			continue
		}
		if _, ok := seen[n.ID]; ok {
			errs = append(errs, fmt.Errorf("duplicate network %q", n.ID))
		}
		seen[n.ID] = struct{}{}
	}

	if err := c.Filter.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Strategy.Windows.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := geckoterminal.TimeframeParams(c.Strategy.Timeframe); err != nil {
		errs = append(errs, err)
	}

	if c.Scheduler.Interval < time.Second {
		errs = append(errs, fmt.Errorf("scheduler interval must be at least 1s, got %s", c.Scheduler.Interval))
	}
	if c.Scheduler.NetworkPause < 0 {
		errs = append(errs, fmt.Errorf("scheduler network_pause must not be negative, got %s", c.Scheduler.NetworkPause))
	}

	if c.Scheduler.AlertCooldown < 0 {
		errs = append(errs, fmt.Errorf("scheduler alert_cooldown must not be negative, got %s", c.Scheduler.AlertCooldown))
	}
	if c.Scheduler.AlertCooldown > 0 && c.Database.DSN == "" {
		errs = append(errs, errors.New("scheduler alert_cooldown requires database.dsn"))
	}

	if c.GeckoTerminal.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("geckoterminal timeout must be positive, got %s", c.GeckoTerminal.Timeout))
	}
	if c.GeckoTerminal.RetryCount < 0 {
		errs = append(errs, errors.New("geckoterminal retry_count must not be negative"))
	}

	return errors.Join(errs...)
}

// NetworkIDs returns the networks in scan order.
func (c Config) NetworkIDs() []string {
	ids := make([]string, len(c.Networks))
	for i, n := range c.Networks {
		ids[i] = n.ID
	}
	return ids
}

// Routes maps every network onto its forum thread in the alert chat.
func (c Config) Routes() map[string]models.Destination {
	routes := make(map[string]models.Destination, len(c.Networks))
	for _, n := range c.Networks {
		routes[n.ID] = models.Destination{ChatID: c.Telegram.ChatID, ThreadID: n.ThreadID}
	}
	return routes
}
