package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"

	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/value"
	"auction_engine/internal/metrics"
	"auction_engine/pkg/contextx"
	"auction_engine/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	DefaultSweepInterval = time.Minute
	DefaultSweepTimeout  = 30 * time.Second
	DefaultBatchSize     = 500
)

type ExpiryStore interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]entity.Auction, error)
	BulkUpdateStatus(ctx context.Context, auctionIDs []string, from, to value.AuctionStatus, now time.Time) ([]entity.Auction, error)
	UpdateStatus(ctx context.Context, auctionID string, from, to value.AuctionStatus, now time.Time) (*entity.Auction, error)
}

// SweepLocker guards the sweep across replicas.
type SweepLocker interface {
	TryLock(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

type EndedSink interface {
	EnqueueAuctionEnded(ctx context.Context, e entity.AuctionEndedEvent) bool
}

// ExpiryScheduler closes auctions whose deadline has passed. Sweeps never
// overlap within the process; a SweepLocker extends that across replicas.
type ExpiryScheduler struct {
	store   ExpiryStore
	events  EndedSink
	locker  SweepLocker
	metrics *metrics.Metrics

	interval  time.Duration
	timeout   time.Duration
	batchSize int
	now       func() time.Time

	sem *semaphore.Weighted

	mu        sync.Mutex
	cron      *cron.Cron
	cancel    context.CancelFunc
	isRunning bool
	wg        sync.WaitGroup
}

func NewExpiryScheduler(store ExpiryStore, events EndedSink) *ExpiryScheduler {
	return &ExpiryScheduler{
		store:     store,
		events:    events,
		interval:  DefaultSweepInterval,
		timeout:   DefaultSweepTimeout,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		sem:       semaphore.NewWeighted(1),
	}
}

func (s *ExpiryScheduler) WithInterval(interval, timeout time.Duration) *ExpiryScheduler {
	if interval > 0 {
		s.interval = interval
	}
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

func (s *ExpiryScheduler) WithLocker(l SweepLocker) *ExpiryScheduler {
	s.locker = l
	return s
}

func (s *ExpiryScheduler) WithMetrics(m *metrics.Metrics) *ExpiryScheduler {
	s.metrics = m
	return s
}

func (s *ExpiryScheduler) WithClock(now func() time.Time) *ExpiryScheduler {
	s.now = now
	return s
}

func (s *ExpiryScheduler) WithBatchSize(n int) *ExpiryScheduler {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Start runs one sweep immediately and then one per interval until Stop or
// ctx cancellation.
func (s *ExpiryScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return errors.New("expiry scheduler is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	cronLog := cronLogger{log: logger(ctx)}

	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc("@every "+s.interval.String(), func() { s.runScheduled(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron = c
	s.cancel = cancel
	s.isRunning = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runScheduled(runCtx)
	}()

	c.Start()

	logger(ctx).Info("expiry scheduler started", slog.Duration("interval", s.interval))

	return nil
}

func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()

	if !s.isRunning {
		s.mu.Unlock()
		return
	}

	s.cancel()
	stopped := s.cron.Stop()
	s.isRunning = false
	s.mu.Unlock()

	<-stopped.Done()
	s.wg.Wait()

	logger(context.Background()).Info("expiry scheduler stopped")
}

func (s *ExpiryScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Run starts the scheduler and blocks until ctx is done.
func (s *ExpiryScheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	s.Stop()

	return nil
}

func (s *ExpiryScheduler) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if !s.sem.TryAcquire(1) {
		logger(ctx).Debug("expiry sweep still running, skipping tick")
		return
	}
	defer s.sem.Release(1)

	if _, err := s.sweep(ctx); err != nil {
		logger(ctx).Error("expiry sweep failed", logx.Error(err))
	}
}

// SweepNow runs one sweep synchronously, waiting for an in-flight one to
// finish first, and returns the number of auctions it closed.
func (s *ExpiryScheduler) SweepNow(ctx context.Context) (int, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("sem.Acquire: %w", err)
	}
	defer s.sem.Release(1)

	return s.sweep(ctx)
}

func (s *ExpiryScheduler) sweep(ctx context.Context) (int, error) {
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx)
		if err != nil {
			return 0, fmt.Errorf("locker.TryLock: %w", err)
		}
		if !ok {
			logger(ctx).Debug("expiry sweep held by another replica")
			return 0, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger(ctx).Warn("sweep lock release failed", logx.Error(err))
			}
		}()
	}

	now := s.now()

	var (
		total    int
		failures int
		sweepErr error
	)

	// Auctions a page left untouched (busy or failing) are excluded from
	// later pages so the sweep always ends.
	skipped := make(map[string]struct{})

	for {
		limit := s.batchSize + len(skipped)

		expired, err := s.store.ListExpired(ctx, now, limit)
		if err != nil {
			sweepErr = fmt.Errorf("store.ListExpired: %w", err)
			break
		}

		ids := lo.FilterMap(expired, func(a entity.Auction, _ int) (string, bool) {
			_, skip := skipped[a.ID]
			return a.ID, !skip
		})
		if len(ids) == 0 {
			break
		}

		closed, failed := s.closeBatch(ctx, ids, now)
		failures += failed
		total += len(closed)

		closedIDs := lo.SliceToMap(closed, func(a entity.Auction) (string, struct{}) { return a.ID, struct{}{} })
		for _, id := range ids {
			if _, ok := closedIDs[id]; !ok {
				skipped[id] = struct{}{}
			}
		}

		s.emitEnded(ctx, closed, now)

		if len(expired) < limit {
			break
		}
		if err := ctx.Err(); err != nil {
			sweepErr = fmt.Errorf("expiry sweep interrupted: %w", err)
			break
		}
	}

	s.metrics.SweepFinished(total, failures, time.Since(started))

	logger(ctx).Info("expiry sweep finished",
		slog.Int(logx.FieldClosed, total),
		slog.Int("failed", failures),
		slog.Int("skipped", len(skipped)),
		slog.Int64(logx.FieldDurationMs, time.Since(started).Milliseconds()),
	)

	return total, sweepErr
}

// closeBatch closes one page in a single statement and falls back to one
// auction at a time when the statement fails.
func (s *ExpiryScheduler) closeBatch(ctx context.Context, ids []string, now time.Time) ([]entity.Auction, int) {
	closed, err := s.store.BulkUpdateStatus(ctx, ids, value.AuctionStatusActive, value.AuctionStatusEnded, now)
	if err == nil {
		return closed, 0
	}

	logger(ctx).Warn("bulk close failed, closing one by one", logx.Error(err), slog.Int("count", len(ids)))

	return s.closeEach(ctx, ids, now)
}

func (s *ExpiryScheduler) emitEnded(ctx context.Context, closed []entity.Auction, now time.Time) {
	for _, a := range closed {
		if a.CurrentWinnerID == nil {
			continue
		}
		s.events.EnqueueAuctionEnded(ctx, entity.AuctionEndedEvent{
			AuctionID:  a.ID,
			WinnerID:   *a.CurrentWinnerID,
			FinalPrice: a.CurrentPrice,
			SellerID:   a.SellerID,
			OccurredAt: now,
		})
	}
}

func (s *ExpiryScheduler) closeEach(ctx context.Context, ids []string, now time.Time) ([]entity.Auction, int) {
	var (
		closed   []entity.Auction
		failures int
	)

	for _, id := range ids {
		a, err := s.store.UpdateStatus(ctx, id, value.AuctionStatusActive, value.AuctionStatusEnded, now)
		if err != nil {
			failures++
			logger(ctx).Error("close auction failed", slog.String(logx.FieldAuctionID, id), logx.Error(err))
			continue
		}
		if a != nil {
			closed = append(closed, *a)
		}
	}

	return closed, failures
}

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, logx.Error(err))...)
}
