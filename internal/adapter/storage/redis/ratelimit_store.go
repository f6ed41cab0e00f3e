package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitStore keeps sliding-window request counters in Redis.
type RateLimitStore struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRateLimitStore(client goredis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		prefix: "ledger:ratelimit:",
		now:    time.Now,
	}
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // unix seconds, end of the current fixed window
}

// Allow counts one request against key. The previous fixed window is weighted
// by how much of it still overlaps the trailing window, so a client cannot
// fire two full bursts across a window boundary. Rejected requests count too.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error) {
	windowSecs := max(int64(window/time.Second), 1)
	now := s.now()
	windowID := now.Unix() / windowSecs
	elapsed := now.Unix() - windowID*windowSecs

	curKey := s.windowKey(key, windowID)
	var (
		cur  *goredis.IntCmd
		prev *goredis.StringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		cur = pipe.Incr(ctx, curKey)
		pipe.Expire(ctx, curKey, time.Duration(2*windowSecs)*time.Second)
		prev = pipe.Get(ctx, s.windowKey(key, windowID-1))
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("redis rate limit incr: %w", err)
	}

	prevCount, err := prev.Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("redis rate limit previous window: %w", err)
	}

	overlap := float64(windowSecs-elapsed) / float64(windowSecs)
	count := cur.Val() + int64(math.Floor(float64(prevCount)*overlap))

	return &RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   (windowID + 1) * windowSecs,
	}, nil
}

func (s *RateLimitStore) windowKey(key string, windowID int64) string {
	return fmt.Sprintf("%s%s:%d", s.prefix, key, windowID)
}
