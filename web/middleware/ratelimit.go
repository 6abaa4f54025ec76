package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/steams-social/steams-api/logger"
	"github.com/steams-social/steams-api/util/metrics"
	"github.com/steams-social/steams-api/web/session"
)

const rateLimitMessage = "Too many requests, please try again later."

// AdminChecker reports whether the stored user behind email is an admin.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// RateLimitConfig configures rate limiting
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// Counter shares hits between instances. Nil keeps them in process memory.
	Counter httprate.LimitCounter
	Admins  AdminChecker
	KeyFunc func(c *gin.Context) string
}

// DefaultRateLimitConfig allows 100 requests per client IP in any 15 minutes.
func DefaultRateLimitConfig(counter httprate.LimitCounter, admins AdminChecker) RateLimitConfig {
	return RateLimitConfig{
		Max:     100,
		Window:  15 * time.Minute,
		Counter: counter,
		Admins:  admins,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// AdminExemptRateLimit throttles every caller except authenticated admins.
// It must run after the session middleware and before any route handler.
func AdminExemptRateLimit(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	counter := config.Counter
	if counter == nil {
		counter = httprate.NewLocalLimitCounter(config.Window)
	}
	limiter := httprate.NewRateLimiter(config.Max, config.Window,
		httprate.WithLimitCounter(failOpenCounter{counter}),
		httprate.WithResponseHeaders(httprate.ResponseHeaders{
			Limit:     "RateLimit-Limit",
			Remaining: "RateLimit-Remaining",
		}),
	)
	policy := strconv.Itoa(config.Max) + ";w=" + strconv.Itoa(int(config.Window/time.Second))

	return func(c *gin.Context) {
		if isAdmin(c, config.Admins) {
			c.Next()
			return
		}

		key := config.KeyFunc(c)
		limited := limiter.OnLimit(c.Writer, c.Request, key)

		resetIn := strconv.Itoa(secondsToWindowEnd(time.Now(), config.Window))
		c.Header("RateLimit-Policy", policy)
		c.Header("RateLimit-Reset", resetIn)
		// the estimate of a sliding window can overshoot the limit
		if n, err := strconv.Atoi(c.Writer.Header().Get("RateLimit-Remaining")); err == nil && n < 0 {
			c.Header("RateLimit-Remaining", "0")
		}

		if limited {
			metrics.RateLimitRejections.Inc()
			logger.Warningf("Rate limit exceeded for %s on %s", key, c.Request.URL.Path)
			c.Header("Retry-After", resetIn)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rateLimitMessage})
			return
		}

		c.Next()
	}
}

// secondsToWindowEnd rounds up, so a client that waits that long always lands
// in the next window.
func secondsToWindowEnd(now time.Time, window time.Duration) int {
	if window <= 0 {
		return 0
	}
	now = now.UTC()
	end := now.Truncate(window).Add(window)
	return int(math.Ceil(end.Sub(now).Seconds()))
}

// failOpenCounter lets requests through when the counter store is down.
type failOpenCounter struct {
	httprate.LimitCounter
}

func (f failOpenCounter) Increment(key string, currentWindow time.Time) error {
	return f.IncrementBy(key, currentWindow, 1)
}

func (f failOpenCounter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	if err := f.LimitCounter.IncrementBy(key, currentWindow, amount); err != nil {
		storeFailed(err)
	}
	return nil
}

func (f failOpenCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	curr, prev, err := f.LimitCounter.Get(key, currentWindow, previousWindow)
	if err != nil {
		storeFailed(err)
		return 0, 0, nil
	}
	return curr, prev, nil
}

func storeFailed(err error) {
	metrics.RateLimitStoreErrors.Inc()
	logger.Warning("Rate limit store failed:", err)
}

// isAdmin looks the session principal up on every request. Anonymous callers,
// unknown users and lookup failures all count as non-admin.
func isAdmin(c *gin.Context, admins AdminChecker) bool {
	identity := session.GetIdentity(c)
	if identity == nil || admins == nil {
		return false
	}
	ok, err := admins.IsAdmin(c.Request.Context(), identity.Email)
	if err != nil {
		logger.Warning("Admin lookup for rate limit failed:", err)
		return false
	}
	return ok
}
