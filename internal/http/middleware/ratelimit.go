// This file implements the in-process token-bucket limiter. Two pools of
// buckets are kept:
//
//   - general: one bucket per client and route, refilled at RPS
//   - PIN: one bucket per client shared by every route listed in
//     RateOptions.PINRoutes, refilled at PINPerMinute
//
// The PIN pool makes guessing a four digit PIN slow even from a local
// process, and unlock and reset attempts drain the same bucket. Replays
// flagged by IdempotencyValidator skip the limiter entirely.

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to a bucket identity.
type KeyFunc func(*gin.Context) string

// KeyByClientIP keys buckets by client IP ("ip:127.0.0.1").
func KeyByClientIP() KeyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// KeyByRoute keys buckets by client IP and matched route, so dose writes do
// not share a bucket with schedule polling.
func KeyByRoute() KeyFunc {
	return func(c *gin.Context) string {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		return "ip:" + c.ClientIP() + " " + path
	}
}

// RateOptions configures NewRateLimiter.
type RateOptions struct {
	RPS   float64 // general refill rate; 0 denies once the burst is spent
	Burst int     // general bucket size; <= 0 becomes 1
	Key   KeyFunc // general bucket identity; KeyByRoute when nil

	PINRoutes    []string // full route paths, e.g. /api/v1/auth/unlock
	PINPerMinute int      // attempts per minute per client; <= 0 becomes 1

	IdleTTL time.Duration // idle buckets are dropped after this; 10m when zero
}

// bucketPool is a lazily populated set of limiters keyed by identity.
type bucketPool struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newBucketPool(limit rate.Limit, burst int, ttl time.Duration) *bucketPool {
	return &bucketPool{limit: limit, burst: burst, ttl: ttl, buckets: map[string]*bucket{}}
}

// get returns the limiter for key. At most once per ttl the pool drops
// buckets idle for a full ttl, before key is touched.
func (p *bucketPool) get(key string, now time.Time) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if now.Sub(p.lastSweep) >= p.ttl {
		for k, b := range p.buckets {
			if now.Sub(b.lastSeen) >= p.ttl {
				delete(p.buckets, k)
			}
		}
		p.lastSweep = now
	}

	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(p.limit, p.burst)}
		p.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

func (p *bucketPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets)
}

// RateLimiter enforces RateOptions. Safe for concurrent use.
type RateLimiter struct {
	key       KeyFunc
	general   *bucketPool
	pin       *bucketPool
	pinRoutes map[string]struct{}
	now       func() time.Time
}

// NewRateLimiter builds a limiter; install it with Handler.
func NewRateLimiter(opts RateOptions) *RateLimiter {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.PINPerMinute <= 0 {
		opts.PINPerMinute = 1
	}
	if opts.Key == nil {
		opts.Key = KeyByRoute()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	routes := make(map[string]struct{}, len(opts.PINRoutes))
	for _, r := range opts.PINRoutes {
		routes[r] = struct{}{}
	}
	return &RateLimiter{
		key:       opts.Key,
		general:   newBucketPool(rate.Limit(opts.RPS), opts.Burst, opts.IdleTTL),
		pin:       newBucketPool(rate.Every(time.Minute/time.Duration(opts.PINPerMinute)), opts.PINPerMinute, opts.IdleTTL),
		pinRoutes: routes,
		now:       time.Now,
	}
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay that should not consume tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the middleware. Denied requests get 429 with the standard
// error envelope and a Retry-After header in whole seconds.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		var lim *rate.Limiter
		scope := "general"
		if _, ok := rl.pinRoutes[c.FullPath()]; ok {
			lim, scope = rl.pin.get("ip:"+c.ClientIP(), now), "pin"
		} else {
			lim = rl.general.get(rl.key(c), now)
		}

		wait, ok := reserve(lim, now)
		if ok {
			c.Next()
			return
		}

		LoggerFrom(c).Warn().
			Str("scope", scope).
			Dur("retry_after", wait).
			Msg("rate limited")
		c.Header("Retry-After", strconv.Itoa(retrySeconds(wait)))
		abortError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
	}
}

// reserve takes a token if one is available now. Otherwise it returns how
// long until one will be; a limiter that never refills reports a minute.
func reserve(lim *rate.Limiter, now time.Time) (time.Duration, bool) {
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return time.Minute, false
	}
	d := res.DelayFrom(now)
	if d == 0 {
		return 0, true
	}
	res.CancelAt(now)
	if d == rate.InfDuration {
		return time.Minute, false
	}
	return d, false
}

func retrySeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
