package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tongarclub/jongque-sub001/internal/pkg/response"
)

// tokenBucketScript implements an atomic token bucket in Redis. State is a
// hash of {tokens, last_refill_ms} refilled lazily on each request.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals)
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, retry_after_ms }
`)

// RateLimit returns middleware that throttles requests per client IP using a
// Redis token bucket. Guest booking endpoints sit behind this so bearer-token
// lookups cannot be brute-forced at line rate. If Redis is unavailable the
// request is allowed through; throttling is protection, not correctness.
func RateLimit(rdb *redis.Client, capacity int, refillEvery time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil {
			return next
		}

		ttl := 10 * refillEvery * time.Duration(capacity)
		if ttl < time.Minute {
			ttl = time.Minute
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "rl:guest:" + getClientIP(r)

			vals, err := tokenBucketScript.Run(r.Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				capacity,
				refillEvery.Milliseconds(),
				int64(ttl/time.Second),
			).Result()
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			res, ok := vals.([]interface{})
			if !ok || len(res) != 2 {
				next.ServeHTTP(w, r)
				return
			}

			allowed, _ := res[0].(int64)
			if allowed == 0 {
				retryMs, _ := res[1].(int64)
				retrySec := (retryMs + 999) / 1000
				if retrySec < 1 {
					retrySec = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retrySec, 10))
				response.TooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
