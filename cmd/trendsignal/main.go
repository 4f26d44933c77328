package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/songzhibin97/trendsignal/internal/alert"
	"github.com/songzhibin97/trendsignal/internal/analysis/trend"
	"github.com/songzhibin97/trendsignal/internal/bot"
	"github.com/songzhibin97/trendsignal/internal/configs"
	cronrunner "github.com/songzhibin97/trendsignal/internal/cron"
	collectorData "github.com/songzhibin97/trendsignal/internal/data/collector"
	"github.com/songzhibin97/trendsignal/internal/data/collector/geckoterminal"
	"github.com/songzhibin97/trendsignal/internal/data/storage"
	"github.com/songzhibin97/trendsignal/internal/dispatch"
	"github.com/songzhibin97/trendsignal/internal/dispatch/telegram"
	"github.com/songzhibin97/trendsignal/internal/logger"
	"github.com/songzhibin97/trendsignal/internal/scheduler"
	"github.com/songzhibin97/trendsignal/internal/utils/request"
)

var flagconf string

func init() {
	flag.StringVar(&flagconf, "conf", "", "config path, eg: -conf configs/config.yaml")
}

func main() {
	flag.Parse()

	// 加载并校验配置，失败直接退出
	config, err := configs.Load(flagconf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}

	log, err := logger.New(config.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(config, log); err != nil {
		log.Fatal("trendsignal stopped with error", zap.Error(err))
	}
}

func run(config configs.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化各个组件
	gecko := geckoterminal.NewGeckoTerminalDataSource(
		config.GeckoTerminal.BaseURL,
		config.GeckoTerminal.OHLCVLimit,
		request.New(config.GeckoTerminal.Timeout, config.GeckoTerminal.RetryCount),
		log.Named("geckoterminal"),
	)
	collector := collectorData.NewMultiSourceCollector([]collectorData.DataSource{gecko}, log.Named("collector"))
	log.Debug("init collector")

	evaluator, err := trend.NewTrendFollower(config.Strategy.Windows)
	if err != nil {
		return err
	}
	formatter := alert.NewFormatter(config.Strategy.Windows, config.Alert.LinkBase)

	tgBot, err := telegram.NewBot(config.Telegram.Token, config.Telegram.Debug)
	if err != nil {
		return err
	}
	dispatcher := dispatch.NewNetworkDispatcher(config.Routes(), telegram.NewTelegramSender(tgBot), log.Named("dispatch"))
	log.Debug("init dispatcher")

	var opts []scheduler.Option
	if config.Database.DSN != "" {
		journal, err := storage.NewPostgresStorage(config.Database.DSN)
		if err != nil {
			return err
		}
		defer journal.Close()
		opts = append(opts, scheduler.WithJournal(journal))
		log.Debug("init alert journal")
	}

	sched, err := scheduler.New(scheduler.Config{
		Networks:      config.NetworkIDs(),
		Thresholds:    config.Filter,
		Timeframe:     config.Strategy.Timeframe,
		NetworkPause:  config.Scheduler.NetworkPause,
		AlertCooldown: config.Scheduler.AlertCooldown,
	}, collector, collector, evaluator, formatter, dispatcher, log.Named("scheduler"), opts...)
	if err != nil {
		return err
	}

	runner := cronrunner.New(log.Named("cron"), ctx)
	if _, err := runner.Every(config.Scheduler.Interval, func(ctx context.Context) {
		sched.Fire(ctx)
	}); err != nil {
		return err
	}

	var wg sync.WaitGroup
	commands := bot.NewCommandBot(tgBot, config.Telegram.Welcome, log.Named("bot"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := commands.Run(ctx); err != nil {
			log.Error("command bot stopped", zap.Error(err))
		}
	}()

	log.Info("trendsignal started",
		zap.Strings("networks", config.NetworkIDs()),
		zap.Duration("interval", config.Scheduler.Interval),
		zap.Duration("timeframe", config.Strategy.Timeframe))

	// 首轮立即执行，之后由 cron 按间隔触发
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Fire(ctx)
	}()
	runner.Start()

	<-ctx.Done()
	log.Info("shutting down")
	runner.Stop()
	wg.Wait()
	return nil
}
