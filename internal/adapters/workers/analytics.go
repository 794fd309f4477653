package workers

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	globalStatsKey = "stats:global"
	urlKeyPattern  = "url:*"
	clicksZSet     = "zset:clicks"
)

// AnalyticsWorker periodically snapshots global figures (live link count,
// current leaderboard head) into a single hash so dashboards can read one
// key instead of scanning the keyspace themselves.
type AnalyticsWorker struct {
	Client   *redis.Client
	Interval time.Duration
}

func NewAnalyticsWorker(client *redis.Client, interval time.Duration) *AnalyticsWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &AnalyticsWorker{Client: client, Interval: interval}
}

// Run loops until ctx is cancelled. Snapshot failures are logged and the
// next tick tries again.
func (w *AnalyticsWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Snapshot(ctx); err != nil {
				log.Printf("analytics snapshot failed: %v", err)
			}
		}
	}
}

// Snapshot counts live URL mappings with a cursor scan and records the
// current leaderboard head alongside.
func (w *AnalyticsWorker) Snapshot(ctx context.Context) error {
	var totalLinks int64
	var cursor uint64
	for {
		keys, next, err := w.Client.Scan(ctx, cursor, urlKeyPattern, 100).Result()
		if err != nil {
			return err
		}
		totalLinks += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}

	topCode := "none"
	var topClicks int64
	top, err := w.Client.ZRevRangeWithScores(ctx, clicksZSet, 0, 0).Result()
	if err != nil {
		return err
	}
	if len(top) > 0 {
		if code, ok := top[0].Member.(string); ok {
			topCode = code
			topClicks = int64(top[0].Score)
		}
	}

	return w.Client.HSet(ctx, globalStatsKey, map[string]interface{}{
		"total_links": totalLinks,
		"top_code":    topCode,
		"top_clicks":  topClicks,
		"last_update": time.Now().Unix(),
	}).Err()
}
