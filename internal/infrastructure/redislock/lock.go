// Package redislock is a single-holder lease in Redis used to keep the
// expiry sweep to one replica at a time.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

const DefaultKey = "auction-engine:expiry-sweep"

//nolint:gochecknoglobals
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func New(client *redis.Client, key string, ttl time.Duration) *Locker {
	if key == "" {
		key = DefaultKey
	}
	return &Locker{client: client, key: key, ttl: ttl}
}

// TryLock takes the lease if nobody holds it. The returned release func only
// deletes the key while it still carries this holder's token.
func (l *Locker) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	token := xid.New().String()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("client.SetNX: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("releaseScript.Run: %w", err)
		}
		return nil
	}

	return release, true, nil
}
