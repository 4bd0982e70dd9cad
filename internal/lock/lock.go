// Package lock provides the mutual exclusion used to keep a single scheduler
// tick running across switchboard instances.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker is a non-blocking, expiring mutex.
type Locker interface {
	// TryLock attempts to take the lock and reports whether it succeeded.
	TryLock(ctx context.Context) (bool, error)
	// Unlock releases the lock if this Locker still holds it.
	Unlock(ctx context.Context) error
}

// Noop always grants the lock. It is used when a single instance runs the
// scheduler.
type Noop struct{}

// TryLock implements Locker.
func (Noop) TryLock(context.Context) (bool, error) { return true, nil }

// Unlock implements Locker.
func (Noop) Unlock(context.Context) error { return nil }

// unlockScript deletes the key only when it still holds our token.
const unlockScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// client abstracts the go-redis methods we use, enabling test mocks.
type client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Redis is a Locker backed by a Redis key set with NX and a TTL. Each
// instance writes a random token so it never releases a lock taken over by
// another instance after expiry.
type Redis struct {
	client client
	key    string
	ttl    time.Duration
	token  string
}

// RedisOpts holds parameters for creating a Redis Locker.
type RedisOpts struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
}

// NewRedis creates a Redis Locker.
func NewRedis(opts RedisOpts) (*Redis, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("lock: redis client is required")
	}
	return newRedis(opts.Client, opts.Key, opts.TTL)
}

func newRedis(c client, key string, ttl time.Duration) (*Redis, error) {
	if key == "" {
		return nil, fmt.Errorf("lock: key is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock: ttl must be positive")
	}
	return &Redis{client: c, key: key, ttl: ttl, token: uuid.NewString()}, nil
}

// Dial parses a redis:// URL and verifies the server answers PING.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("lock: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("lock: ping redis: %w", err)
	}
	return rdb, nil
}

// TryLock implements Locker.
func (r *Redis) TryLock(ctx context.Context) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key, r.token, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock: acquire %s: %w", r.key, err)
	}
	return ok, nil
}

// Unlock implements Locker.
func (r *Redis) Unlock(ctx context.Context) error {
	if err := r.client.Eval(ctx, unlockScript, []string{r.key}, r.token).Err(); err != nil {
		return fmt.Errorf("lock: release %s: %w", r.key, err)
	}
	return nil
}
