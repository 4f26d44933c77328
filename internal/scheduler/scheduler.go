package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/songzhibin97/trendsignal/internal/alert"
	"github.com/songzhibin97/trendsignal/internal/analysis"
	"github.com/songzhibin97/trendsignal/internal/data"
	"github.com/songzhibin97/trendsignal/internal/dispatch"
	"github.com/songzhibin97/trendsignal/internal/filter"
	"github.com/songzhibin97/trendsignal/internal/models"
)

// Formatter renders a verdict into an alert; nil alert means nothing to send.
type Formatter interface {
	Format(verdict models.Verdict, pool models.PoolRecord, tail models.PricePoint) (*models.Alert, error)
}

type Config struct {
	// Networks are visited in this order on every cycle.
	Networks     []string
	Thresholds   filter.Thresholds
	Timeframe    time.Duration
	NetworkPause time.Duration
	// AlertCooldown suppresses a repeat alert for a pool journaled within
	// this window. Zero disables it; it needs a journal.
	AlertCooldown time.Duration
}

// NetworkReport summarises one network's pass.
type NetworkReport struct {
	Network    string
	Fetched    int
	Candidates int
	Evaluated  int
	Signals    int
	Dispatched int
	Suppressed int
	Failed     int
	Err        error
}

type CycleReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Networks  []NetworkReport
}

// SignalScheduler walks the configured networks sequentially, one cycle at a time.
type SignalScheduler struct {
	cfg        Config
	pools      data.PoolSource
	series     data.SeriesProvider
	evaluator  analysis.Evaluator
	formatter  Formatter
	dispatcher dispatch.Dispatcher
	journal    data.AlertJournal
	logger     *zap.Logger
	now        func() time.Time

	running atomic.Bool
}

type Option func(*SignalScheduler)

// WithJournal records every delivered alert.
func WithJournal(j data.AlertJournal) Option {
	return func(s *SignalScheduler) { s.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(s *SignalScheduler) { s.now = now }
}

func New(
	cfg Config,
	pools data.PoolSource,
	series data.SeriesProvider,
	evaluator analysis.Evaluator,
	formatter Formatter,
	dispatcher dispatch.Dispatcher,
	logger *zap.Logger,
	opts ...Option,
) (*SignalScheduler, error) {
	if len(cfg.Networks) == 0 {
		return nil, fmt.Errorf("no networks configured")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeframe <= 0 {
		return nil, fmt.Errorf("invalid timeframe: %s", cfg.Timeframe)
	}
	if cfg.NetworkPause < 0 {
		return nil, fmt.Errorf("invalid network pause: %s", cfg.NetworkPause)
	}
	if cfg.AlertCooldown < 0 {
		return nil, fmt.Errorf("invalid alert cooldown: %s", cfg.AlertCooldown)
	}
	if pools == nil || series == nil || evaluator == nil || formatter == nil || dispatcher == nil {
		return nil, fmt.Errorf("scheduler collaborators must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &SignalScheduler{
		cfg:        cfg,
		pools:      pools,
		series:     series,
		evaluator:  evaluator,
		formatter:  formatter,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Fire runs one cycle unless another is still in progress, in which case the
// tick is dropped and false is returned.
func (s *SignalScheduler) Fire(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous cycle still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	report := s.RunCycle(ctx)

	var dispatched, failed int
	for _, n := range report.Networks {
		dispatched += n.Dispatched
		failed += n.Failed
	}
	s.logger.Info("cycle finished",
		zap.Duration("duration", report.Duration),
		zap.Int("networks", len(report.Networks)),
		zap.Int("dispatched", dispatched),
		zap.Int("failed", failed))

	return true
}

// Running reports whether a cycle is in progress.
func (s *SignalScheduler) Running() bool {
	return s.running.Load()
}

// RunCycle visits every network in order with a pause between them.
// Cancellation is only observed at network boundaries.
func (s *SignalScheduler) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{StartedAt: s.now()}

	for i, network := range s.cfg.Networks {
		if i > 0 {
			if err := sleep(ctx, s.cfg.NetworkPause); err != nil {
				s.logger.Info("cycle interrupted", zap.String("next_network", network), zap.Error(err))
				break
			}
		}
		report.Networks = append(report.Networks, s.processNetwork(ctx, network))
	}

	report.Duration = s.now().Sub(report.StartedAt)
	return report
}

func (s *SignalScheduler) processNetwork(ctx context.Context, network string) NetworkReport {
	nr := NetworkReport{Network: network}
	log := s.logger.With(zap.String("network", network))

	pools, err := s.pools.GetTopPools(ctx, network)
	if err != nil {
		log.Error("failed to fetch top pools, skipping network", zap.Error(err))
		nr.Err = err
		return nr
	}
	nr.Fetched = len(pools)

	candidates := filter.Apply(pools, s.cfg.Thresholds, s.now(), func(pool models.PoolRecord, a filter.Assessment) {
		log.Debug("pool filtered out", zap.String("pool", pool.Address), zap.Strings("reasons", a.Reasons))
	})
	nr.Candidates = len(candidates)

	recent := s.recentlyAlerted(ctx, network)

	for _, pool := range candidates {
		sent, err := s.processPool(ctx, network, pool, recent, &nr)
		if err == nil {
			if sent {
				nr.Dispatched++
			}
			continue
		}

		nr.Failed++
		plog := log.With(zap.String("pool", pool.Address), zap.String("name", pool.Name))
		switch {
		case errors.Is(err, dispatch.ErrUnknownNetwork):
			plog.Error("network has no destination configured", zap.Error(err))
			nr.Err = err
		case errors.Is(err, data.ErrDataUnavailable), errors.Is(err, data.ErrTransientFetch):
			plog.Warn("price series unavailable, skipping pool", zap.Error(err))
		case errors.Is(err, alert.ErrFormat):
			plog.Error("failed to format alert, skipping pool", zap.Error(err))
		case errors.Is(err, dispatch.ErrDelivery):
			plog.Error("failed to deliver alert", zap.Error(err))
		default:
			plog.Error("failed to process pool", zap.Error(err))
		}
	}

	log.Info("network processed",
		zap.Int("fetched", nr.Fetched),
		zap.Int("candidates", nr.Candidates),
		zap.Int("signals", nr.Signals),
		zap.Int("dispatched", nr.Dispatched),
		zap.Int("suppressed", nr.Suppressed),
		zap.Int("failed", nr.Failed))

	return nr
}

// processPool reports whether an alert was delivered for pool.
func (s *SignalScheduler) processPool(ctx context.Context, network string, pool models.PoolRecord, recent map[string]struct{}, nr *NetworkReport) (bool, error) {
	series, err := s.series.FetchSeries(ctx, pool, s.cfg.Timeframe)
	if err != nil {
		return false, err
	}

	verdict := s.evaluator.Evaluate(series)
	nr.Evaluated++
	if verdict.Signal != models.Bullish {
		return false, nil
	}
	nr.Signals++

	if _, ok := recent[pool.Address]; ok {
		nr.Suppressed++
		s.logger.Debug("alert suppressed by cooldown", zap.String("network", network), zap.String("pool", pool.Address))
		return false, nil
	}

	tail, _ := series.Last()
	a, err := s.format(verdict, pool, tail)
	if err != nil {
		return false, err
	}
	if a == nil {
		return false, nil
	}

	if err := s.dispatcher.Dispatch(ctx, a, network); err != nil {
		return false, err
	}

	if s.journal != nil {
		record := &models.AlertRecord{
			Network:     network,
			PoolAddress: pool.Address,
			PoolName:    pool.Name,
			Close:       verdict.Close,
			FastMA:      verdict.FastMA,
			MidMA:       verdict.MidMA,
			SlowMA:      verdict.SlowMA,
			SentAt:      s.now(),
		}
		if err := s.journal.SaveAlert(ctx, record); err != nil {
			s.logger.Warn("failed to journal alert", zap.String("network", network), zap.String("pool", pool.Address), zap.Error(err))
		}
	}

	return true, nil
}

// recentlyAlerted lists pools journaled for network within the cooldown window.
// A journal read failure disables suppression for this pass.
func (s *SignalScheduler) recentlyAlerted(ctx context.Context, network string) map[string]struct{} {
	if s.journal == nil || s.cfg.AlertCooldown <= 0 {
		return nil
	}

	records, err := s.journal.GetRecentAlerts(ctx, network, s.now().Add(-s.cfg.AlertCooldown))
	if err != nil {
		s.logger.Warn("failed to read alert journal, cooldown skipped", zap.String("network", network), zap.Error(err))
		return nil
	}

	recent := make(map[string]struct{}, len(records))
	for _, r := range records {
		recent[r.PoolAddress] = struct{}{}
	}
	return recent
}

// format turns a formatter panic into ErrFormat so one bad pool cannot end the cycle.
func (s *SignalScheduler) format(verdict models.Verdict, pool models.PoolRecord, tail models.PricePoint) (a *models.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, fmt.Errorf("%w: formatter panic: %v", alert.ErrFormat, r)
		}
	}()
	return s.formatter.Format(verdict, pool, tail)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
