package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serialises bookings for one doctor across API instances.
type Locker interface {
	WithDoctorLock(ctx context.Context, doctorID string, fn func(ctx context.Context) error) error
}

// RedisLocker holds a per-doctor Redis key while a booking runs.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker keyed by doctor id.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if client == nil {
		panic("appointments: redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) WithDoctorLock(ctx context.Context, doctorID string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("clinic:lock:doctor:%s", doctorID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("appointments: acquire doctor lock: %w", err)
	}
	if !ok {
		return ErrDoctorBusy
	}
	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(lockCtx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("appointments: release doctor lock: %w", err)
	}
	return nil
}

// NopLocker runs fn without locking, for single-instance setups without Redis.
type NopLocker struct{}

func (NopLocker) WithDoctorLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
