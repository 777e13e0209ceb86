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

	"github.com/HSouheill/gym_backend/models"
)

type endpointLimit struct {
	limit rate.Limit
	burst int
}

// RateLimiter throttles requests per client IP and route. A client that runs
// out of tokens on a route is blocked from that route for blockDuration.
type RateLimiter struct {
	limiters       map[string]*rate.Limiter
	blocked        map[string]time.Time
	mu             sync.Mutex
	defaultLimit   endpointLimit
	blockDuration  time.Duration
	endpointLimits map[string]endpointLimit
	now            func() time.Time
}

func NewRateLimiter(ctx context.Context) *RateLimiter {
	limiter := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		blocked:  make(map[string]time.Time),
		defaultLimit: endpointLimit{
			limit: rate.Every(100 * time.Millisecond), // 10 requests per second
			burst: 20,
		},
		blockDuration:  5 * time.Minute,
		endpointLimits: make(map[string]endpointLimit),
		now:            time.Now,
	}

	for _, role := range models.AllRoles {
		prefix := role.RoutePrefix()
		// brute force protection
		limiter.SetEndpointLimit(prefix+"/login", rate.Every(2*time.Second), 5)
		limiter.SetEndpointLimit(prefix+"/signup/complete", rate.Every(2*time.Second), 5)
		limiter.SetEndpointLimit(prefix+"/forgot-password/complete", rate.Every(2*time.Second), 5)
		// every call sends an email
		limiter.SetEndpointLimit(prefix+"/signup/initiate", rate.Every(20*time.Second), 3)
		limiter.SetEndpointLimit(prefix+"/forgot-password/initiate", rate.Every(20*time.Second), 3)
	}

	go limiter.cleanup(ctx)

	return limiter
}

// SetEndpointLimit overrides the default limit for a route path as registered in echo
func (r *RateLimiter) SetEndpointLimit(path string, limit rate.Limit, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpointLimits[path] = endpointLimit{limit: limit, burst: burst}
}

func (r *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			now := r.now()
			for key, until := range r.blocked {
				if now.After(until) {
					delete(r.blocked, key)
					delete(r.limiters, key)
				}
			}
			r.mu.Unlock()
		}
	}
}

func (r *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			urlPath := c.Request().URL.Path
			if strings.HasPrefix(urlPath, "/uploads/") || urlPath == "/health" {
				return next(c)
			}

			path := c.Path()
			key := c.RealIP() + "|" + path

			r.mu.Lock()
			now := r.now()
			if until, blocked := r.blocked[key]; blocked {
				if now.Before(until) {
					r.mu.Unlock()
					return tooManyRequests(c, until)
				}
				delete(r.blocked, key)
				delete(r.limiters, key)
			}

			cfg, ok := r.endpointLimits[path]
			if !ok {
				cfg = r.defaultLimit
			}
			limiter, ok := r.limiters[key]
			if !ok {
				limiter = rate.NewLimiter(cfg.limit, cfg.burst)
				r.limiters[key] = limiter
			}

			if !limiter.AllowN(now, 1) {
				until := now.Add(r.blockDuration)
				r.blocked[key] = until
				r.mu.Unlock()
				return tooManyRequests(c, until)
			}
			r.mu.Unlock()

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, until time.Time) error {
	c.Response().Header().Set("Retry-After", until.UTC().Format(http.TimeFormat))
	return c.JSON(http.StatusTooManyRequests, models.Response{
		Status:  http.StatusTooManyRequests,
		Message: "Too many requests",
		Data:    map[string]string{"retryAfter": until.UTC().Format(time.RFC3339)},
	})
}
