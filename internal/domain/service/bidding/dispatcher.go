package bidding

import (
	"context"
	"log/slog"
	"time"

	"auction_engine/internal/domain/entity"
	"auction_engine/internal/metrics"
	"auction_engine/pkg/logx"
)

const (
	DefaultQueueSize = 1024

	drainTimeout = 5 * time.Second
)

type queuedEvent struct {
	bidPlaced    *entity.BidPlacedEvent
	auctionEnded *entity.AuctionEndedEvent
	log          *slog.Logger
}

func (q queuedEvent) eventType() string {
	if q.auctionEnded != nil {
		return entity.EventAuctionEnded
	}
	return entity.EventBidPlaced
}

// Dispatcher is a bounded post-commit event queue drained by Run. Enqueue
// never blocks; a full queue drops the event.
type Dispatcher struct {
	notifier Notifier
	queue    chan queuedEvent
	metrics  *metrics.Metrics
}

func NewDispatcher(notifier Notifier, size int, m *metrics.Metrics) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}

	return &Dispatcher{
		notifier: notifier,
		queue:    make(chan queuedEvent, size),
		metrics:  m,
	}
}

func (d *Dispatcher) EnqueueBidPlaced(ctx context.Context, e entity.BidPlacedEvent) bool {
	return d.enqueue(ctx, queuedEvent{bidPlaced: &e, log: logger(ctx)})
}

func (d *Dispatcher) EnqueueAuctionEnded(ctx context.Context, e entity.AuctionEndedEvent) bool {
	return d.enqueue(ctx, queuedEvent{auctionEnded: &e, log: logger(ctx)})
}

func (d *Dispatcher) enqueue(_ context.Context, ev queuedEvent) bool {
	select {
	case d.queue <- ev:
		return true
	default:
		ev.log.Warn("event queue full, dropping event", slog.String(logx.FieldEventType, ev.eventType()))
		d.metrics.EventDropped(ev.eventType())
		return false
	}
}

// Run delivers queued events until ctx is done, then flushes whatever is
// still buffered under a short deadline.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger(ctx).Info("event dispatcher started", slog.Int("capacity", cap(d.queue)))

	for {
		select {
		case <-ctx.Done():
			d.drain(ctx)
			logger(ctx).Info("event dispatcher stopped")
			return nil
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev queuedEvent) {
	var err error

	switch {
	case ev.bidPlaced != nil:
		err = d.notifier.BidPlaced(ctx, *ev.bidPlaced)
	case ev.auctionEnded != nil:
		err = d.notifier.AuctionEnded(ctx, *ev.auctionEnded)
	}

	if err != nil {
		ev.log.Error("event delivery failed",
			slog.String(logx.FieldEventType, ev.eventType()),
			logx.Error(err),
		)
		d.metrics.EventDropped(ev.eventType())
	}
}

// Pending is the number of buffered events.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}
