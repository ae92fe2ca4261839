package runtime

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// dueAndMark mirrors jobs/schedule.go's loadJobLastRunTimes/
// saveJobLastRunTime pair, generalized from "time of day" to "elapsed
// period": it loads the last-run timestamp for key from Redis, reports
// whether period has elapsed since, and — if so — immediately persists
// now as the new last-run time before the caller's tick even starts.
// Marking eagerly (not on completion) is deliberate: it is what stops
// the 1-second scheduler loop from re-firing the same tick every
// second while a slow collect/store worker is still in flight, exactly
// as the teacher's executeJob updates job.LastRun before running
// job.Function.
func dueAndMark(ctx context.Context, cache *redis.Client, key string, period time.Duration, now time.Time) bool {
	lastRunStr, err := cache.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return false
	}

	if err == nil && lastRunStr != "" {
		lastRun, parseErr := time.Parse(time.RFC3339, lastRunStr)
		if parseErr == nil && now.Sub(lastRun) < period {
			return false
		}
	}

	if err := cache.Set(ctx, key, now.Format(time.RFC3339), 0).Err(); err != nil {
		return false
	}
	return true
}

func lastRunKey(collector, tag string) string {
	return "runtime:lastrun:" + collector + ":" + tag
}
