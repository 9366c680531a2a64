package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/yz4230/sitehost/internal/entity"
)

const (
	DefaultLockTTL      = 30 * time.Minute
	defaultPollInterval = 250 * time.Millisecond
	redisKeyPrefix      = "sitehost:lock:"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares locks between processes through redis. A lock expires
// after TTL so a crashed holder cannot block the key forever.
type RedisLocker struct {
	client       redis.UniversalClient
	TTL          time.Duration
	PollInterval time.Duration
	log          zerolog.Logger
}

func NewRedisLocker(client redis.UniversalClient, log zerolog.Logger) *RedisLocker {
	return &RedisLocker{
		client:       client,
		TTL:          DefaultLockTTL,
		PollInterval: defaultPollInterval,
		log:          log,
	}
}

// Lock implements Locker.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := entity.NewID().String()

	ticker := time.NewTicker(l.PollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.TTL).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w: %w", key, entity.ErrBusy, ctx.Err())
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.log.Error().Err(err).Str("key", key).Msg("failed to release lock")
		}
	}, nil
}

// Shutdown closes the redis client when the injector shuts down.
func (l *RedisLocker) Shutdown() error {
	return l.client.Close()
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}
