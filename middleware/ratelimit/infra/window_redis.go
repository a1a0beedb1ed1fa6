package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"privacy-advisor/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// takeScript faz GET + SET/INCR atomicamente.
// Retorna {allowed, count, pttl}.
var takeScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count == 0 then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, 1, window}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
if count < limit then
  redis.call('INCR', KEYS[1])
  return {1, count + 1, ttl}
end
return {0, count, ttl}
`)

// RedisCounter é um domain.WindowCounter compartilhado entre instâncias.
//
// A janela começa no primeiro hit e termina quando a chave expira no Redis;
// o relógio usado é o do Redis, não o `now` recebido.
type RedisCounter struct {
	rdb    redis.UniversalClient
	prefix string
}

type RedisCounterOption func(*RedisCounter)

func WithCounterPrefix(prefix string) RedisCounterOption {
	return func(c *RedisCounter) { c.prefix = strings.Trim(prefix, ":") }
}

func NewRedisCounter(rdb redis.UniversalClient, opts ...RedisCounterOption) *RedisCounter {
	c := &RedisCounter{rdb: rdb, prefix: "ratelimit:window"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Take implementa domain.WindowCounter.
func (c *RedisCounter) Take(ctx context.Context, key domain.Key, p domain.Policy, _ time.Time) (domain.Decision, error) {
	res, err := takeScript.Run(ctx, c.rdb,
		[]string{c.prefix + ":" + string(key)},
		p.Limit, p.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("ratelimit window: %w", err)
	}
	if len(res) != 3 {
		return domain.Decision{}, fmt.Errorf("ratelimit window: unexpected reply %v", res)
	}

	allowed, _ := res[0].(int64)
	count, _ := res[1].(int64)
	ttl, _ := res[2].(int64)

	if allowed == 1 {
		return domain.Decision{Allowed: true, Remaining: p.Limit - int(count)}, nil
	}
	return domain.Decision{Allowed: false, RetryAfter: time.Duration(ttl) * time.Millisecond}, nil
}
