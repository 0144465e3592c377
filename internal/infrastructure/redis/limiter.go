package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then records the
// request only when the remaining count is under the limit.
var slidingWindow = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Limiter is an exact sliding-window counter shared by every instance that
// talks to the same Redis.
type Limiter struct {
	client *goredis.Client
	now    func() time.Time
}

func NewLimiter(client *goredis.Client) *Limiter {
	return &Limiter{client: client, now: time.Now}
}

func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	now := l.now().UnixMilli()
	member, err := uniqueMember(now)
	if err != nil {
		return false, err
	}
	n, err := slidingWindow.Run(ctx, l.client, []string{key}, now, window.Milliseconds(), limit, member).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return n == 1, nil
}

func uniqueMember(now int64) (string, error) {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("rate limit member: %w", err)
	}
	return strconv.FormatInt(now, 10) + "-" + hex.EncodeToString(b[:]), nil
}
