package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] counter, KEYS[2] first-denial marker
// ARGV[1] limit, ARGV[2] window in ms
// returns {allowed, count, pttl, first_denied}
var takeScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local count = tonumber(redis.call('GET', KEYS[1]) or '0')

if count == 0 then
	redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
	redis.call('DEL', KEYS[2])
	return {1, 1, tonumber(ARGV[2]), 0}
end

local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	ttl = tonumber(ARGV[2])
end

if count < limit then
	count = redis.call('INCR', KEYS[1])
	return {1, count, ttl, 0}
end

if ttl < 1 then
	ttl = 1
end
local first = redis.call('SET', KEYS[2], 1, 'NX', 'PX', ttl)
if first then
	return {0, count, ttl, 1}
end
return {0, count, ttl, 0}
`)

// RedisStore shares windows between server instances. The counter key
// expires with the window, so the next request after expiry opens a new one.
type RedisStore struct {
	client redis.Scripter
	prefix string
}

func NewRedisStore(client redis.Scripter, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) Take(ctx context.Context, key string, limit int, win time.Duration, now time.Time) (Decision, error) {
	k := s.prefix + key
	res, err := takeScript.Run(ctx, s.client, []string{k, k + ":denied"},
		limit, strconv.FormatInt(win.Milliseconds(), 10),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis take %s: %w", key, err)
	}
	if len(res) != 4 {
		return Decision{}, fmt.Errorf("redis take %s: unexpected script result %v", key, res)
	}
	return Decision{
		Allowed:     res[0] == 1,
		Count:       int(res[1]),
		Limit:       limit,
		ResetAt:     now.Add(time.Duration(res[2]) * time.Millisecond),
		FirstDenied: res[3] == 1,
	}, nil
}
