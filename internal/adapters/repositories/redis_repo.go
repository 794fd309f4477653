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

// Key layout. The metadata hash deliberately carries no TTL by default so
// stats stay queryable after the URL mapping itself has expired.
const clicksZSet = "zset:clicks"

func urlKey(code string) string    { return "url:" + code }
func remainKey(code string) string { return "rem_clicks:" + code }
func metaKey(code string) string   { return "meta:" + code }

// resolveScript is the atomic resolution op: existence check, budget
// decrement and zero-clamp happen server-side in one step, so two
// concurrent counted resolutions can never both consume the last click.
// KEYS[1]=url key, KEYS[2]=remaining-clicks key, ARGV[1]=count_click (0/1).
var resolveScript = redis.NewScript(`
local url = redis.call('GET', KEYS[1])
if not url then
  return {404, ''}
end
if tonumber(ARGV[1]) == 1 then
  local rem = redis.call('GET', KEYS[2])
  if rem then
    rem = tonumber(rem) - 1
    if rem < 0 then
      redis.call('SET', KEYS[2], 0)
      return {410, ''}
    end
    redis.call('SET', KEYS[2], tostring(rem))
  end
end
return {200, url}
`)

type RedisRepo struct {
	Client *redis.Client
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{Client: client}
}

func (r *RedisRepo) Create(ctx context.Context, link domain.Link, retention time.Duration) error {
	_, err := r.Client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		var ttl time.Duration
		if link.TTLSec != nil {
			ttl = time.Duration(*link.TTLSec) * time.Second
		}
		pipe.Set(ctx, urlKey(link.Code), link.TargetURL, ttl)

		if link.MaxClicks != nil {
			pipe.Set(ctx, remainKey(link.Code), *link.MaxClicks, 0)
		}

		maxClicks := 0
		if link.MaxClicks != nil {
			maxClicks = *link.MaxClicks
		}
		pipe.HSet(ctx, metaKey(link.Code), map[string]interface{}{
			"id":         link.ID,
			"created_at": link.CreatedAt.Unix(),
			"max_clicks": maxClicks,
		})
		if retention > 0 {
			pipe.Expire(ctx, metaKey(link.Code), retention)
		}
		return nil
	})
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *RedisRepo) Exists(ctx context.Context, code string) (bool, error) {
	n, err := r.Client.Exists(ctx, urlKey(code)).Result()
	if err != nil {
		return false, storeErr(err)
	}
	return n > 0, nil
}

func (r *RedisRepo) GetURL(ctx context.Context, code string) (string, error) {
	val, err := r.Client.Get(ctx, urlKey(code)).Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", storeErr(err)
	}
	return val, nil
}

func (r *RedisRepo) Resolve(ctx context.Context, code string, countClick bool) (domain.Resolution, error) {
	count := 0
	if countClick {
		count = 1
	}
	raw, err := resolveScript.Run(ctx, r.Client,
		[]string{urlKey(code), remainKey(code)}, count).Slice()
	if err != nil {
		return domain.Resolution{}, storeErr(err)
	}
	if len(raw) != 2 {
		return domain.Resolution{}, fmt.Errorf("%w: unexpected script reply", domain.ErrStoreUnavailable)
	}
	status, ok := raw[0].(int64)
	if !ok {
		return domain.Resolution{}, fmt.Errorf("%w: unexpected script reply", domain.ErrStoreUnavailable)
	}
	longURL, _ := raw[1].(string)
	return domain.Resolution{Status: int(status), LongURL: longURL}, nil
}

func (r *RedisRepo) Credit(ctx context.Context, code string) error {
	_, err := r.Client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZIncrBy(ctx, clicksZSet, 1, code)
		pipe.HSet(ctx, metaKey(code), "last_click", time.Now().Unix())
		return nil
	})
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// Top walks the leaderboard from the highest score down, enriching each
// entry with its current target. Codes whose mapping has expired are
// skipped; their ledger entries remain until trimmed externally.
func (r *RedisRepo) Top(ctx context.Context, n int) ([]domain.TopLink, error) {
	members, err := r.Client.ZRevRangeWithScores(ctx, clicksZSet, 0, int64(n-1)).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]domain.TopLink, 0, len(members))
	for _, m := range members {
		code, ok := m.Member.(string)
		if !ok {
			continue
		}
		target, err := r.Client.Get(ctx, urlKey(code)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, domain.TopLink{Code: code, Clicks: int64(m.Score), LongURL: target})
	}
	return out, nil
}

// Stats distinguishes "never created" (no metadata at all) from "expired"
// (metadata present, mapping gone). Expired is recomputed on every call.
func (r *RedisRepo) Stats(ctx context.Context, code string) (domain.Stats, error) {
	meta, err := r.Client.HGetAll(ctx, metaKey(code)).Result()
	if err != nil {
		return domain.Stats{}, storeErr(err)
	}
	if len(meta) == 0 {
		return domain.Stats{}, domain.ErrNotFound
	}

	stats := domain.Stats{Code: code}
	if v, err := strconv.ParseInt(meta["created_at"], 10, 64); err == nil {
		stats.CreatedAt = time.Unix(v, 0).UTC()
	}
	if v, err := strconv.Atoi(meta["max_clicks"]); err == nil {
		stats.MaxClicks = v
	}
	if v, err := strconv.ParseInt(meta["last_click"], 10, 64); err == nil {
		t := time.Unix(v, 0).UTC()
		stats.LastClick = &t
	}

	score, err := r.Client.ZScore(ctx, clicksZSet, code).Result()
	switch {
	case err == redis.Nil:
		stats.TotalClicks = 0
	case err != nil:
		return domain.Stats{}, storeErr(err)
	default:
		stats.TotalClicks = int64(score)
	}

	n, err := r.Client.Exists(ctx, urlKey(code)).Result()
	if err != nil {
		return domain.Stats{}, storeErr(err)
	}
	stats.Expired = n == 0

	return stats, nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

var _ ports.LinkRepository = (*RedisRepo)(nil)
