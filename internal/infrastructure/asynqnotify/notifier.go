// Package asynqnotify hands engine events to the notification collaborator
// through asynq tasks and fans delivered tasks out on Redis pub/sub.
package asynqnotify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"auction_engine/internal/domain/entity"
	"auction_engine/pkg/contextx"
	"auction_engine/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	QueueName = "auction-events"

	maxRetry    = 5
	taskTimeout = 30 * time.Second
)

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier enqueues one task per event.
type Notifier struct {
	client Enqueuer
}

func NewNotifier(client Enqueuer) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) BidPlaced(ctx context.Context, e entity.BidPlacedEvent) error {
	return n.enqueue(ctx, entity.EventBidPlaced, e.AuctionID, e)
}

func (n *Notifier) AuctionEnded(ctx context.Context, e entity.AuctionEndedEvent) error {
	return n.enqueue(ctx, entity.EventAuctionEnded, e.AuctionID, e)
}

func (n *Notifier) enqueue(ctx context.Context, taskType, auctionID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	task := asynq.NewTask(taskType, body)

	info, err := n.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(taskTimeout),
	)
	if err != nil {
		return fmt.Errorf("client.EnqueueContext: %w", err)
	}

	logger(ctx).Debug("event enqueued",
		slog.String(logx.FieldEventType, taskType),
		slog.String(logx.FieldAuctionID, auctionID),
		slog.String("task-id", info.ID),
	)

	return nil
}
