package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KEYS[1] = all events (ZSET, score = ms)
// KEYS[2] = scoped events (ZSET, score = ms)
// ARGV    = now_ms, window_ms, scoped(0/1), scoped_limit, global_limit, member
// Returns {allowed, limit, remaining, retry_after_ms}
const slidingWindowLua = `
local now     = tonumber(ARGV[1])
local window  = tonumber(ARGV[2])
local scoped  = ARGV[3] == '1'
local sLimit  = tonumber(ARGV[4])
local gLimit  = tonumber(ARGV[5])
local member  = ARGV[6]
local cutoff  = now - window

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', cutoff)

local function retry(key)
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  if #oldest < 2 then
    return window
  end
  return tonumber(oldest[2]) + window - now
end

local scopedCount = 0
if scoped then
  scopedCount = redis.call('ZCARD', KEYS[2])
  if scopedCount >= sLimit then
    return {0, sLimit, 0, retry(KEYS[2])}
  end
end

local total = redis.call('ZCARD', KEYS[1])
if total >= gLimit then
  return {0, gLimit, 0, retry(KEYS[1])}
end

redis.call('ZADD', KEYS[1], now, member)
redis.call('PEXPIRE', KEYS[1], window + 1000)
if scoped then
  redis.call('ZADD', KEYS[2], now, member)
  redis.call('PEXPIRE', KEYS[2], window + 1000)
  return {1, sLimit, sLimit - scopedCount - 1, 0}
end
return {1, gLimit, gLimit - total - 1, 0}
`

// RedisStore shares windows across replicas. Each client owns two sorted
// sets updated atomically by one script.
type RedisStore struct {
	rdb    redis.Scripter
	rule   Rule
	prefix string
	script *redis.Script
	now    func() time.Time
}

func NewRedisStore(rdb redis.Scripter, rule Rule) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		rule:   rule,
		prefix: "rl",
		script: redis.NewScript(slidingWindowLua),
		now:    time.Now,
	}
}

// keys uses a hash tag so both sets land on the same cluster slot.
func (s *RedisStore) keys(key string) []string {
	base := s.prefix + ":{" + key + "}"
	return []string{base + ":all", base + ":scoped"}
}

// Allow returns an allowing Decision together with any Redis error, so
// callers can fail open.
func (s *RedisStore) Allow(ctx context.Context, key string, ev Event) (Decision, error) {
	now := s.now().UnixMilli()
	scoped := "0"
	if s.rule.Scoped(ev.Method, ev.Path) {
		scoped = "1"
	}
	member := strconv.FormatInt(now, 10) + ":" + uuid.NewString()

	res, err := s.script.Run(ctx, s.rdb, s.keys(key),
		now,
		s.rule.Window.Milliseconds(),
		scoped,
		s.rule.ScopedLimit,
		s.rule.GlobalLimit,
		member,
	).Slice()
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("ratelimit: redis script: %w", err)
	}
	if len(res) != 4 {
		return Decision{Allowed: true}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	return Decision{
		Allowed:    toInt64(res[0]) == 1,
		Limit:      int(toInt64(res[1])),
		Remaining:  int(toInt64(res[2])),
		RetryAfter: time.Duration(toInt64(res[3])) * time.Millisecond,
	}, nil
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		i, _ := strconv.ParseInt(t, 10, 64)
		return i
	case []byte:
		i, _ := strconv.ParseInt(string(t), 10, 64)
		return i
	case float64:
		return int64(t)
	default:
		return 0
	}
}
