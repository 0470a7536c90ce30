package asynqnotify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"auction_engine/internal/domain/entity"
	"auction_engine/pkg/application/modules"
	"auction_engine/pkg/logx"
)

const DefaultChannel = "auction_events"

// Envelope is the pub/sub message shape consumed by realtime subscribers.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, e Envelope) error
}

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Envelope) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("client.Publish: %w", err)
	}

	return nil
}

// Handlers consume queued event tasks.
type Handlers struct {
	publisher Publisher
}

func NewHandlers(publisher Publisher) *Handlers {
	return &Handlers{publisher: publisher}
}

func (h *Handlers) AsynqHandlers() []modules.AsynqHandler {
	return []modules.AsynqHandler{
		{Pattern: entity.EventBidPlaced, Handle: h.HandleBidPlaced},
		{Pattern: entity.EventAuctionEnded, Handle: h.HandleAuctionEnded},
	}
}

func (h *Handlers) HandleBidPlaced(ctx context.Context, task *asynq.Task) error {
	var e entity.BidPlacedEvent
	if err := json.Unmarshal(task.Payload(), &e); err != nil {
		return fmt.Errorf("json.Unmarshal: %w: %w", err, asynq.SkipRetry)
	}

	return h.relay(ctx, task.Type(), e.AuctionID, e)
}

func (h *Handlers) HandleAuctionEnded(ctx context.Context, task *asynq.Task) error {
	var e entity.AuctionEndedEvent
	if err := json.Unmarshal(task.Payload(), &e); err != nil {
		return fmt.Errorf("json.Unmarshal: %w: %w", err, asynq.SkipRetry)
	}

	return h.relay(ctx, task.Type(), e.AuctionID, e)
}

func (h *Handlers) relay(ctx context.Context, eventType, auctionID string, payload any) error {
	if err := h.publisher.Publish(ctx, Envelope{Type: eventType, Payload: payload}); err != nil {
		logger(ctx).Error("event relay failed",
			slog.String(logx.FieldEventType, eventType),
			slog.String(logx.FieldAuctionID, auctionID),
			logx.Error(err),
		)
		return fmt.Errorf("publisher.Publish: %w", err)
	}

	return nil
}
