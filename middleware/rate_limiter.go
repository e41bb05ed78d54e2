// middleware/rate_limiter.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/mansamusa/marketplace_backend/models"
)

type endpointLimit struct {
	limit rate.Limit
	burst int
}

// client is a token bucket plus the last time it was used
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	ips            map[string]*client
	blockedIPs     map[string]time.Time
	mu             sync.Mutex
	defaultLimit   rate.Limit
	defaultBurst   int
	blockDuration  time.Duration
	idleTimeout    time.Duration
	endpointLimits map[string]endpointLimit
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		ips:           make(map[string]*client),
		blockedIPs:    make(map[string]time.Time),
		defaultLimit:  rate.Every(100 * time.Millisecond), // 10 requests per second
		defaultBurst:  20,
		blockDuration: 5 * time.Minute,
		idleTimeout:   10 * time.Minute,
		endpointLimits: map[string]endpointLimit{
			// brute force protection
			"/api/auth/login":  {limit: rate.Every(2 * time.Second), burst: 5},
			"/api/auth/signup": {limit: rate.Every(500 * time.Millisecond), burst: 5},
			"/api/qr/scan":     {limit: rate.Every(time.Second), burst: 5},
			"/api/tts":         {limit: rate.Every(2 * time.Second), burst: 3},
			// payment providers retry in bursts
			"/webhooks/stripe": {limit: rate.Every(10 * time.Millisecond), burst: 100},
			"/webhooks/apple":  {limit: rate.Every(10 * time.Millisecond), burst: 100},
		},
	}
}

// Cleanup sweeps expired blocks and idle buckets every hour until ctx is done
func (r *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.sweep(now)
		}
	}
}

// sweep drops blocks that have expired and every bucket, per-endpoint ones
// included, not used within idleTimeout. An idle bucket has refilled, so
// recreating it later changes nothing.
func (r *RateLimiter) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ip, blockUntil := range r.blockedIPs {
		if now.After(blockUntil) {
			delete(r.blockedIPs, ip)
		}
	}
	for key, cl := range r.ips {
		if now.Sub(cl.lastSeen) > r.idleTimeout {
			delete(r.ips, key)
		}
	}
}

func (r *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if strings.HasPrefix(c.Request().URL.Path, "/uploads/") {
				return next(c)
			}
			ip := c.RealIP()

			r.mu.Lock()
			if blockUntil, blocked := r.blockedIPs[ip]; blocked {
				if time.Now().Before(blockUntil) {
					r.mu.Unlock()
					return tooManyRequests(c, blockUntil)
				}
				delete(r.blockedIPs, ip)
				r.dropClient(ip)
			}
			r.mu.Unlock()

			limit, burst := r.defaultLimit, r.defaultBurst
			if el, ok := r.endpointLimits[c.Path()]; ok {
				limit, burst = el.limit, el.burst
			}

			if !r.getLimiter(ip, c.Path(), limit, burst).Allow() {
				blockUntil := time.Now().Add(r.blockDuration)
				r.mu.Lock()
				r.blockedIPs[ip] = blockUntil
				r.mu.Unlock()
				c.Logger().Warnf("Rate limit exceeded for %s on %s", ip, c.Path())
				return tooManyRequests(c, blockUntil)
			}
			return next(c)
		}
	}
}

// getLimiter keeps separate buckets for endpoints with their own limits
func (r *RateLimiter) getLimiter(ip, path string, limit rate.Limit, burst int) *rate.Limiter {
	key := ip
	if _, ok := r.endpointLimits[path]; ok {
		key = ip + " " + path
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cl, exists := r.ips[key]
	if !exists {
		cl = &client{limiter: rate.NewLimiter(limit, burst)}
		r.ips[key] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

// dropClient forgets every bucket held for ip
func (r *RateLimiter) dropClient(ip string) {
	for key := range r.ips {
		if key == ip || strings.HasPrefix(key, ip+" ") {
			delete(r.ips, key)
		}
	}
}

func tooManyRequests(c echo.Context, retryAfter time.Time) error {
	c.Response().Header().Set("Retry-After", retryAfter.UTC().Format(http.TimeFormat))
	return c.JSON(http.StatusTooManyRequests, models.Response{
		Status:  http.StatusTooManyRequests,
		Message: "Too many requests",
		Data:    map[string]string{"retryAfter": retryAfter.Format(time.RFC3339)},
	})
}
