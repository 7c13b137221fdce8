package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrefix  = "chat:conversation-lock:"
	retryDelay = 100 * time.Millisecond
)

// RedisLocker is a Locker backed by redsync, for deployments with more than
// one replica. A held mutex is extended every ttl/3 until released, so ttl
// only decides how soon the lock of a crashed replica lapses.
type RedisLocker struct {
	client *redis.Client
	rs     *redsync.Redsync
	ttl    time.Duration
	tries  int
	log    zerolog.Logger
}

// NewRedisLocker connects to redisURL and verifies it responds. Lock waits up
// to wait for a busy key.
func NewRedisLocker(ctx context.Context, redisURL string, ttl, wait time.Duration, log zerolog.Logger) (*RedisLocker, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisLocker{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		tries:  int(wait/retryDelay) + 1,
		log:    log,
	}, nil
}

// Lock acquires a redsync mutex named after key and keeps it alive until the
// returned func is called.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := r.rs.NewMutex(keyPrefix+key,
		redsync.WithExpiry(r.ttl),
		redsync.WithTries(r.tries),
		redsync.WithRetryDelay(retryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(mutex, key, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Unlock must not be skipped because the request context ended.
			if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
				r.log.Error().Err(err).Str("key", key).Msg("Failed to unlock mutex")
			}
		})
	}, nil
}

func (r *RedisLocker) keepAlive(mutex *redsync.Mutex, key string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if ok, err := mutex.ExtendContext(context.Background()); !ok || err != nil {
				r.log.Warn().Err(err).Str("key", key).Msg("Failed to extend conversation lock")
				return
			}
		}
	}
}

// Ping checks the Redis connection.
func (r *RedisLocker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisLocker) Close() error {
	return r.client.Close()
}
