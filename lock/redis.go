package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wansing/docflow/util"
)

// releaseScript deletes the key only if it still holds our token, so an expired lock which has been taken over is left alone.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by all processes using the same redis server.
// Locks expire after TTL, so a crashed process can't block a document forever.
type Redis struct {
	Client redis.UniversalClient
	Prefix string
	TTL    time.Duration
	Retry  time.Duration // polling interval while the lock is held elsewhere
	Log    zerolog.Logger
}

func NewRedis(client redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{
		Client: client,
		Prefix: "docflow:lock:",
		TTL:    ttl,
		Retry:  20 * time.Millisecond,
		Log:    log,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {

	token, err := util.RandomString32()
	if err != nil {
		return nil, err
	}

	var redisKey = r.Prefix + key

	for {
		ok, err := r.Client.SetNX(ctx, redisKey, token, r.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(r.Retry)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// use a fresh context, the caller's one might be cancelled already
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.Client, []string{redisKey}, token).Err(); err != nil {
				r.Log.Warn().Err(err).Str("key", key).Msg("could not release lock, it will expire")
			}
		})
	}, nil
}
