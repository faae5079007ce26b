package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/molscout/pkg/errors"
)

// incrWindow increments the counter and starts its expiry on the first hit
// of a window. It returns the new count and the window's remaining TTL in
// milliseconds.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// HitWindow counts one hit against key's fixed window and returns the hit
// count so far together with the time until the window resets.
func (c *Client) HitWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if c.isClosed() {
		return 0, 0, ErrClientClosed
	}
	if window < time.Millisecond {
		window = time.Millisecond
	}

	res, err := incrWindow.Run(ctx, c.rdb, []string{c.Key("ratelimit", key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeStoreError, "redis window increment failed")
	}
	if len(res) != 2 {
		return 0, 0, errors.New(errors.ErrCodeStoreError, "unexpected redis script reply")
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}
