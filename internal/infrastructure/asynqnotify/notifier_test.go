package asynqnotify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"auction_engine/internal/domain/entity"
	"auction_engine/internal/infrastructure/asynqnotify"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: asynqnotify.QueueName}, nil
}

type fakePublisher struct {
	published []asynqnotify.Envelope
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, e asynqnotify.Envelope) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, e)
	return nil
}

func TestNotifierEnqueuesTasks(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	enq := &fakeEnqueuer{}
	n := asynqnotify.NewNotifier(enq)

	rq.NoError(n.BidPlaced(ctx, entity.BidPlacedEvent{AuctionID: "a1", NewPrice: 1100, NewWinnerID: "u2"}))
	rq.NoError(n.AuctionEnded(ctx, entity.AuctionEndedEvent{AuctionID: "a1", WinnerID: "u2", FinalPrice: 2000}))

	rq.Len(enq.tasks, 2)
	rq.Equal(entity.EventBidPlaced, enq.tasks[0].Type())
	rq.Equal(entity.EventAuctionEnded, enq.tasks[1].Type())

	var got entity.BidPlacedEvent
	rq.NoError(jsoniter.Unmarshal(enq.tasks[0].Payload(), &got))
	rq.EqualValues(1100, got.NewPrice)
}

func TestNotifierEnqueueError(t *testing.T) {
	n := asynqnotify.NewNotifier(&fakeEnqueuer{err: errors.New("redis down")})

	require.Error(t, n.BidPlaced(context.Background(), entity.BidPlacedEvent{AuctionID: "a1"}))
}

func TestHandlersRelay(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	pub := &fakePublisher{}
	h := asynqnotify.NewHandlers(pub)

	body, err := jsoniter.Marshal(entity.AuctionEndedEvent{
		AuctionID: "a1", WinnerID: "u2", FinalPrice: 2000, OccurredAt: time.Now(),
	})
	rq.NoError(err)

	rq.NoError(h.HandleAuctionEnded(ctx, asynq.NewTask(entity.EventAuctionEnded, body)))
	rq.Len(pub.published, 1)
	rq.Equal(entity.EventAuctionEnded, pub.published[0].Type)

	err = h.HandleBidPlaced(ctx, asynq.NewTask(entity.EventBidPlaced, []byte("{")))
	rq.ErrorIs(err, asynq.SkipRetry)

	pub.err = errors.New("publish failed")
	body, err = jsoniter.Marshal(entity.BidPlacedEvent{AuctionID: "a1"})
	rq.NoError(err)
	rq.Error(h.HandleBidPlaced(ctx, asynq.NewTask(entity.EventBidPlaced, body)))

	rq.Len(h.AsynqHandlers(), 2)
}
