package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps redis.Client. Unlike a look-aside cache, callers here need
// to know when redis is unavailable, so errors are returned.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}

// slidingWindowScript keeps one sorted-set member per accepted hit, scored by
// its timestamp in milliseconds. It prunes hits older than the window, admits
// the new hit when under the limit and reports the time until the oldest hit
// leaves the window.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, member)
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)

local reset = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window - now
end
return {allowed, count, reset}
`)

// WindowResult is the outcome of one sliding-window hit.
type WindowResult struct {
	Allowed    bool
	Count      int64
	ResetAfter time.Duration
}

// SlidingWindowHit records a hit for key at now when fewer than limit hits
// fall inside the trailing window. member must be unique per hit.
func (c *Client) SlidingWindowHit(ctx context.Context, key string, now time.Time, window time.Duration, limit int, member string) (WindowResult, error) {
	res, err := slidingWindowScript.Run(ctx, c.client, []string{key},
		now.UnixMilli(), window.Milliseconds(), limit, member).Int64Slice()
	if err != nil {
		return WindowResult{}, fmt.Errorf("sliding window %s: %w", key, err)
	}
	if len(res) != 3 {
		return WindowResult{}, fmt.Errorf("sliding window %s: unexpected reply %v", key, res)
	}
	return WindowResult{
		Allowed:    res[0] == 1,
		Count:      res[1],
		ResetAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
