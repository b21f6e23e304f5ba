// Package ratelimit implements an optional, Redis-backed token-bucket
// limiter bounding how often a producer may invoke its exchange's
// fetch method, shared across every producer on the same exchange so
// a pipeline with many symbols/streams on one venue cannot collectively
// exceed that venue's rate limit.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a per-key token bucket backed by Redis. One Limiter
// instance is shared by every producer on the same exchange, keyed by
// exchange name, so the bucket accounting lives centrally in Redis
// rather than per-process — correct even when multiple collector
// processes share one exchange's rate budget.
type Limiter struct {
	client     redis.Cmdable
	bucketSize int64
	refillRate float64 // tokens per second
}

// Decision is the outcome of a single token request.
type Decision struct {
	Allowed    bool
	Remaining  int64
	Limit      int64
	RetryAfter time.Duration
}

// tokenBucketScript performs the read-modify-write atomically in
// Redis, so concurrent producers on the same exchange never race on
// the bucket's token count.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local bucket_size = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local tokens = tonumber(redis.call('HGET', key, 'tokens'))
local last_refill = tonumber(redis.call('HGET', key, 'last_refill'))

if tokens == nil then
    tokens = bucket_size
    last_refill = now
end

local elapsed = now - last_refill
local tokens_to_add = elapsed * refill_rate
tokens = math.min(bucket_size, tokens + tokens_to_add)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

local retry_after = 0
if allowed == 0 then
    retry_after = math.ceil((1 - tokens) / refill_rate)
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill', now)
redis.call('EXPIRE', key, 3600)

return {allowed, math.floor(tokens), retry_after}
`)

// NewLimiter constructs a Limiter. client may be *redis.Client or
// *redis.ClusterClient (both satisfy redis.Cmdable). bucketSize caps
// burst capacity; refillRate is tokens/second added over time.
func NewLimiter(client redis.Cmdable, bucketSize int64, refillRate float64) *Limiter {
	return &Limiter{client: client, bucketSize: bucketSize, refillRate: refillRate}
}

// Allow consumes one token for key if available.
func (l *Limiter) Allow(ctx context.Context, key string) (*Decision, error) {
	now := float64(time.Now().UnixNano()) / float64(time.Second)

	result, err := tokenBucketScript.Run(ctx, l.client, []string{key},
		l.bucketSize,
		l.refillRate,
		now,
	).Int64Slice()
	if err != nil {
		return nil, err
	}

	return &Decision{
		Allowed:    result[0] == 1,
		Remaining:  result[1],
		Limit:      l.bucketSize,
		RetryAfter: time.Duration(result[2]) * time.Second,
	}, nil
}

// Wait blocks until a token for key becomes available or ctx is
// done, retrying Allow after each RetryAfter. Intended to wrap a
// producer's fetch callable: call Wait before every fetch invocation.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		decision, err := l.Allow(ctx, key)
		if err != nil {
			return err
		}
		if decision.Allowed {
			return nil
		}

		timer := time.NewTimer(decision.RetryAfter)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// IsHealthy reports whether the backing Redis connection is reachable.
func (l *Limiter) IsHealthy(ctx context.Context) bool {
	return l.client.Ping(ctx).Err() == nil
}

// Gate wraps a producer.FetchFunc-shaped callable so it blocks on Wait
// for key before delegating to fetch. Used by the runner to bound
// producer fetch-call frequency per exchange without the producer
// package itself depending on Redis.
func Gate[T any](l *Limiter, key string, fetch func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var zero T
		if err := l.Wait(ctx, key); err != nil {
			return zero, err
		}
		return fetch(ctx)
	}
}
