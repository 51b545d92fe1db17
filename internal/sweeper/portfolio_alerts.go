package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/messaging"
	"github.com/feral-file/ff-flow/internal/metrics"
	"github.com/feral-file/ff-flow/internal/notification"
	"github.com/feral-file/ff-flow/internal/notifier"
	"github.com/feral-file/ff-flow/internal/portfolio"
	"github.com/feral-file/ff-flow/internal/recorder"
	"github.com/feral-file/ff-flow/internal/store"
)

// DefaultAlertInterval is the evaluation period when none is configured
const DefaultAlertInterval = 60 * time.Second

// PortfolioAlertSweeperConfig holds configuration for the portfolio alert sweeper
type PortfolioAlertSweeperConfig struct {
	Interval time.Duration
}

// PortfolioAlertSweeper evaluates the active portfolio alerts on a schedule
type PortfolioAlertSweeper interface {
	Sweeper
	// RunOnce performs a single evaluation tick
	RunOnce(ctx context.Context) error
}

type portfolioAlertSweeper struct {
	config     PortfolioAlertSweeperConfig
	store      store.Store
	portfolio  portfolio.Service
	recorder   recorder.Recorder
	dispatcher notifier.Dispatcher
	publisher  messaging.Publisher
	clock      adapter.Clock

	mu      sync.Mutex
	current *sweepRun
}

// sweepRun holds the channels of one Start call
type sweepRun struct {
	stopOnce  sync.Once
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

func (r *sweepRun) stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// NewPortfolioAlertSweeper creates a new portfolio alert sweeper
func NewPortfolioAlertSweeper(
	config PortfolioAlertSweeperConfig,
	st store.Store,
	svc portfolio.Service,
	rec recorder.Recorder,
	dispatcher notifier.Dispatcher,
	publisher messaging.Publisher,
	clock adapter.Clock,
) PortfolioAlertSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultAlertInterval
	}
	if publisher == nil {
		publisher = messaging.NewNoopPublisher()
	}
	return &portfolioAlertSweeper{
		config:     config,
		store:      st,
		portfolio:  svc,
		recorder:   rec,
		dispatcher: dispatcher,
		publisher:  publisher,
		clock:      clock,
	}
}

// Name returns the sweeper's name
func (s *portfolioAlertSweeper) Name() string {
	return "portfolio-alert-sweeper"
}

// Start schedules RunOnce every interval. Ticks never overlap.
func (s *portfolioAlertSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	run := &sweepRun{
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	s.current = run
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.current == run {
			s.current = nil
		}
		s.mu.Unlock()
		close(run.stoppedCh)
	}()

	cl := cronLogger{name: s.Name()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.config.Interval), func() {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorCtx(ctx, err, zap.String("sweeper", s.Name()))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", s.Name(), err)
	}

	logger.InfoCtx(ctx, "Starting portfolio alert sweeper", zap.Duration("interval", s.config.Interval))
	c.Start()

	select {
	case <-ctx.Done():
		logger.InfoCtx(ctx, "Portfolio alert sweeper stopping due to context cancellation")
	case <-run.stopChan:
		logger.InfoCtx(ctx, "Portfolio alert sweeper stop requested")
	}

	// wait for a running tick
	<-c.Stop().Done()
	return nil
}

// Stop gracefully stops the sweeper with timeout support
func (s *portfolioAlertSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	run := s.current
	s.mu.Unlock()
	if run == nil {
		return nil
	}

	logger.InfoCtx(ctx, "Stopping portfolio alert sweeper")
	run.stop()

	select {
	case <-run.stoppedCh:
		logger.InfoCtx(ctx, "Portfolio alert sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Portfolio alert sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// RunOnce values the portfolio and fires every active alert past its threshold
func (s *portfolioAlertSweeper) RunOnce(ctx context.Context) error {
	alerts, err := s.store.ListAlerts(ctx, store.AlertFilter{Status: domain.AlertStatusActive})
	if err != nil {
		return fmt.Errorf("failed to list alerts: %w", err)
	}
	if len(alerts) == 0 {
		logger.DebugCtx(ctx, "No active portfolio alerts")
		return nil
	}

	snapshot, err := s.portfolio.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to value portfolio: %w", err)
	}
	logger.DebugCtx(ctx, "Portfolio valued",
		zap.String("total", snapshot.Total.StringFixed(2)),
		zap.Int("alerts", len(alerts)),
	)

	for _, alert := range alerts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.evaluate(ctx, alert, snapshot)
	}
	return nil
}

func (s *portfolioAlertSweeper) evaluate(ctx context.Context, alert *domain.PortfolioAlert, snapshot *portfolio.Valuation) {
	fields := []zap.Field{logger.Alert(alert.ID), zap.String("kind", string(alert.Kind))}

	if alert.Kind != domain.AlertKindPortfolioValue {
		logger.DebugCtx(ctx, "Alert kind has no evaluator", fields...)
		return
	}

	ev, err := portfolio.Evaluate(alert, snapshot.Total)
	if err != nil {
		logger.WarnCtx(ctx, "Portfolio alert skipped", append(fields,
			zap.String("threshold", alert.Threshold),
			zap.Error(err),
		)...)
		return
	}
	if !ev.Fired {
		return
	}

	s.fire(ctx, alert, snapshot, ev, fields)
}

func (s *portfolioAlertSweeper) fire(
	ctx context.Context,
	alert *domain.PortfolioAlert,
	snapshot *portfolio.Valuation,
	ev portfolio.Evaluation,
	fields []zap.Field,
) {
	now := s.clock.Now()
	metrics.AlertsTriggered.Inc()
	logger.InfoCtx(ctx, "Portfolio alert triggered", append(fields,
		zap.String("total", snapshot.Total.StringFixed(2)),
		zap.String("threshold", alert.Threshold),
	)...)

	plan := notification.ResolveAlert(notification.AlertInput{
		Alert:         alert,
		User:          s.loadUser(ctx, alert.UserAddress),
		Total:         snapshot.Total,
		ChangePercent: ev.ChangePercent,
		Now:           now,
	})
	for _, issue := range plan.Issues {
		logger.WarnCtx(ctx, "Notification configuration issue", append(fields, zap.Error(issue))...)
	}
	if !plan.Empty() {
		results := s.dispatcher.Dispatch(ctx, plan.Messages)
		if err := notifier.JoinErrors(results); err != nil {
			logger.WarnCtx(ctx, "Portfolio alert notification not delivered", append(fields, zap.Error(err))...)
		}
	}

	if _, err := s.store.UpdateAlert(ctx, alert.ID, func(a *domain.PortfolioAlert) error {
		a.LastTriggered = &now
		a.UpdatedAt = now
		return nil
	}); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to mark alert triggered: %w", err), fields...)
	}

	workflows, err := s.store.ListWorkflows(ctx, store.WorkflowFilter{PortfolioAlertID: alert.ID})
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to list linked workflows: %w", err), fields...)
	}
	for _, w := range workflows {
		if _, err := s.recorder.Record(ctx, w.ID, nil); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to record alert execution: %w", err), append(fields, logger.Workflow(w.ID))...)
		}
	}

	event := domain.NewPortfolioAlertTriggeredEvent(alert.ID, snapshot.Total, ev.ChangePercent, now)
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.WarnCtx(ctx, "Failed to publish alert event", append(fields, zap.Error(err))...)
	}
}

func (s *portfolioAlertSweeper) loadUser(ctx context.Context, address string) *domain.User {
	if domain.NormalizeAddress(address) == "" {
		return nil
	}
	u, err := s.store.GetUser(ctx, address)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to load user: %w", err), logger.User(address))
		return nil
	}
	return u
}
