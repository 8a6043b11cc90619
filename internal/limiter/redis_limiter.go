package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// quotaScript increments the counter of a window and sets its expiry on first use
// Executed atomically by Redis, so concurrent runs never double count
const quotaScript = `
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
	end
	return current
`

// RedisLimiter shares one fixed-window budget between every process using
// the same API key (e.g., several storage-triggered runs at once)
//
// Algorithm: fixed window counter in Redis
//   - Key format: "<prefix>:<window index>", window index = unix time / window
//   - INCR on each admission; over budget means sleep until the next window
//     boundary and try again
//   - Redis errors fail open (the call proceeds)
type RedisLimiter struct {
	client *redis.Client
	ctx    context.Context
	prefix string
	limit  int64
	window time.Duration

	sleep   func(time.Duration)
	now     func() time.Time
	onPause PauseFunc
	calls   int
}

// NewRedisLimiter creates a new Redis-based fixed window limiter
//
// Parameters:
//   - client: connected Redis client (closed by Close)
//   - prefix: key namespace, usually derived from the API endpoint
//   - limit: calls allowed per window across all processes
//   - window: window length (values below or equal to 0 are treated as 1s)
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration, opts ...WindowOption) *RedisLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}

	// Reuse the window options: they only touch sleep/now/onPause
	w := &WindowLimiter{sleep: time.Sleep, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}

	return &RedisLimiter{
		client:  client,
		ctx:     context.Background(),
		prefix:  prefix,
		limit:   int64(limit),
		window:  window,
		sleep:   w.sleep,
		now:     w.now,
		onPause: w.onPause,
	}
}

// DialRedisLimiter connects to Redis and creates a RedisLimiter
func DialRedisLimiter(addr, password string, db int, prefix string, limit int, window time.Duration, opts ...WindowOption) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis for rate limiting: %w", err)
	}

	return NewRedisLimiter(client, prefix, limit, window, opts...), nil
}

// Admit blocks until the shared window has budget left
func (rl *RedisLimiter) Admit() {
	for {
		now := rl.now()
		index := now.UnixNano() / int64(rl.window)
		key := fmt.Sprintf("%s:%d", rl.prefix, index)

		// Keep the key around for two windows so late readers still see it
		ttl := int(2 * rl.window / time.Second)
		if ttl < 1 {
			ttl = 1
		}

		count, err := rl.client.Eval(rl.ctx, quotaScript, []string{key}, ttl).Int64()
		if err != nil || count <= rl.limit {
			rl.calls++
			return
		}

		wait := time.Unix(0, (index+1)*int64(rl.window)).Sub(now)
		if rl.onPause != nil {
			rl.onPause(rl.calls, wait)
		}
		rl.sleep(wait)
	}
}

// Close closes the Redis connection
func (rl *RedisLimiter) Close() error {
	if rl.client != nil {
		return rl.client.Close()
	}
	return nil
}
