package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linktally/linktally/internal/core/domain"
	"github.com/linktally/linktally/internal/core/ports"
)

func rateKey(identity string) string { return "ratelimit:" + identity }

// rateScript runs the purge-count-insert cycle of the sliding window in a
// single server-side step, so two concurrent requests from one identity at
// the window boundary cannot both take the last slot. Denied requests do
// not record an event. Members are unique per event (nanosecond stamps):
// a plain second-resolution member would silently merge same-second hits.
// KEYS[1]=window key, ARGV[1]=now (unix sec), ARGV[2]=limit,
// ARGV[3]=window sec, ARGV[4]=unique member.
var rateScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, cutoff)
local count = redis.call('ZCARD', KEYS[1])
local limit = tonumber(ARGV[2])
if count >= limit then
  return {0, 0}
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
redis.call('EXPIRE', KEYS[1], ARGV[3])
return {1, limit - count - 1}
`)

// RedisRateLimiter is a per-identity sliding-window limiter backed by one
// sorted set per identity. Idle identities are reclaimed by the key expiry
// refreshed on each admit.
type RedisRateLimiter struct {
	Client  *redis.Client
	nowFunc func() time.Time
	seq     func() int64
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		Client:  client,
		nowFunc: time.Now,
		seq:     func() int64 { return time.Now().UnixNano() },
	}
}

// Check admits or denies one event for identity. On any store error the
// decision is deny: the limiter fails closed so an outage cannot open the
// door to unbounded traffic. Callers preferring availability must make
// that choice explicitly on the returned error.
func (l *RedisRateLimiter) Check(ctx context.Context, identity string, limit int, window time.Duration) (domain.RateDecision, error) {
	if limit <= 0 || window <= 0 {
		return domain.RateDecision{}, fmt.Errorf("%w: limit and window must be positive", domain.ErrValidation)
	}
	now := l.nowFunc().Unix()
	windowSec := int(window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatInt(l.seq(), 10)

	raw, err := rateScript.Run(ctx, l.Client,
		[]string{rateKey(identity)}, now, limit, windowSec, member).Slice()
	if err != nil {
		return domain.RateDecision{}, storeErr(err)
	}
	if len(raw) != 2 {
		return domain.RateDecision{}, fmt.Errorf("%w: unexpected script reply", domain.ErrStoreUnavailable)
	}
	allowed, _ := raw[0].(int64)
	remaining, _ := raw[1].(int64)
	return domain.RateDecision{Allowed: allowed == 1, Remaining: int(remaining)}, nil
}

var _ ports.RateLimiter = (*RedisRateLimiter)(nil)
