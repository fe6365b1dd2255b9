package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"burrow/internal/metrics"
	"burrow/internal/utils"

	"github.com/redis/go-redis/v9"
)

// tokenBucket 原子地补充并消费一个令牌。
// ARGV: 每毫秒补充量, 桶容量, 当前毫秒时间戳。返回 {是否放行, 剩余令牌}
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = capacity
	ts = now
end

local elapsed = now - ts
if elapsed < 0 then
	elapsed = 0
end
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'ts', tostring(now))
redis.call('PEXPIRE', key, math.ceil(capacity / rate))
return {allowed, math.floor(tokens)}
`)

// RateLimiter 按身份做令牌桶限流，redis 出错时放行。nil 表示不限流。
type RateLimiter struct {
	client   redis.Scripter
	capacity int
	perMs    float64
	now      func() time.Time
}

func NewRateLimiter(client redis.Scripter, burst, refillPerMinute int) *RateLimiter {
	return &RateLimiter{
		client:   client,
		capacity: burst,
		perMs:    float64(refillPerMinute) / float64(time.Minute/time.Millisecond),
		now:      time.Now,
	}
}

// Allow 消费 action 下 key 的一个令牌。出错时返回 true 和错误。
func (rl *RateLimiter) Allow(ctx context.Context, action, key string) (bool, error) {
	if rl == nil {
		return true, nil
	}

	redisKey := fmt.Sprintf("rl:%s:%s", action, key)
	args := []any{
		formatRate(rl.perMs),
		rl.capacity,
		rl.now().UnixMilli(),
	}

	res, err := tokenBucket.Run(ctx, rl.client, []string{redisKey}, args...).Int64Slice()
	if err != nil {
		metrics.RateLimiterErrors.Inc()
		utils.Logger(ctx).Warn("rate limiter unavailable, allowing", "action", action, "err", err)
		return true, err
	}
	if len(res) == 0 || res[0] == 1 {
		return true, nil
	}

	metrics.RateLimited.WithLabelValues(action).Inc()
	return false, nil
}

func formatRate(perMs float64) string {
	if math.IsInf(perMs, 0) || math.IsNaN(perMs) {
		return "0"
	}
	return fmt.Sprintf("%.12f", perMs)
}
