package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/frahmantamala/learning-platform/internal/core/datamodel/order"
	"github.com/frahmantamala/learning-platform/internal/payment"
)

// OrderSource is the slice of the payment service the sweeper drives.
type OrderSource interface {
	PendingOrders(ctx context.Context, minAge, maxAge time.Duration, limit int) ([]*order.Order, error)
	Refresh(ctx context.Context, o *order.Order) (*payment.VerifyResult, error)
}

type Config struct {
	Schedule  string
	MinAge    time.Duration
	MaxAge    time.Duration
	BatchSize int
	Workers   int
	// RunTimeout bounds a single sweep.
	RunTimeout time.Duration
}

type Summary struct {
	Checked   int
	Succeeded int
	Failed    int
	Pending   int
	Errors    int
}

// Sweeper re-queries the gateway for orders stuck in PENDING, for learners who paid
// but never came back and whose callback was lost.
type Sweeper struct {
	source OrderSource
	config Config
	logger *slog.Logger
	cron   *cron.Cron
}

func NewSweeper(source OrderSource, config Config, logger *slog.Logger) *Sweeper {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 5 * time.Minute
	}
	return &Sweeper{
		source: source,
		config: config,
		logger: logger,
	}
}

// Start schedules RunOnce on the configured cron spec. Overlapping runs are skipped.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()

		if _, err := s.RunOnce(runCtx); err != nil {
			s.logger.Error("stale order sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweeper %q: %w", s.config.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info("stale order sweeper scheduled",
		"schedule", s.config.Schedule,
		"min_age", s.config.MinAge.String(),
		"max_age", s.config.MaxAge.String(),
		"workers", s.config.Workers)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("sweeper stop timed out")
	}
}

// RunOnce reconciles one batch of stale PENDING orders through a bounded worker pool.
func (s *Sweeper) RunOnce(ctx context.Context) (Summary, error) {
	orders, err := s.source.PendingOrders(ctx, s.config.MinAge, s.config.MaxAge, s.config.BatchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("list stale pending orders: %w", err)
	}
	if len(orders) == 0 {
		s.logger.Debug("no stale pending orders")
		return Summary{}, nil
	}

	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		summary Summary
		workers sync.WaitGroup
		jobs    sync.WaitGroup
	)

	process := func(j job) {
		defer jobs.Done()
		status, err := s.reconcile(poolCtx, j.order)

		mu.Lock()
		defer mu.Unlock()
		summary.Checked++
		if err != nil {
			summary.Errors++
			return
		}
		switch status {
		case payment.StatusSuccess:
			summary.Succeeded++
		case payment.StatusFailed:
			summary.Failed++
		default:
			summary.Pending++
		}
	}

	workerPool := make(chan chan job, s.config.Workers)
	for i := 0; i < s.config.Workers; i++ {
		newWorker(i, workerPool, s.logger).start(poolCtx, &workers, process)
	}

dispatch:
	for _, o := range orders {
		select {
		case jobChannel := <-workerPool:
			jobs.Add(1)
			select {
			case jobChannel <- job{order: o}:
			case <-poolCtx.Done():
				jobs.Done()
				break dispatch
			}
		case <-poolCtx.Done():
			break dispatch
		}
	}

	jobs.Wait()
	cancel()
	workers.Wait()

	s.logger.Info("stale order sweep finished",
		"checked", summary.Checked,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"still_pending", summary.Pending,
		"errors", summary.Errors)

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return summary, err
	}
	return summary, nil
}

func (s *Sweeper) reconcile(ctx context.Context, o *order.Order) (string, error) {
	result, err := s.source.Refresh(ctx, o)
	if err != nil {
		s.logger.Warn("stale order refresh failed",
			"error", err,
			"order_id", o.ID,
			"gateway_order_id", o.GatewayOrderID)
		return "", err
	}
	return result.Status, nil
}
