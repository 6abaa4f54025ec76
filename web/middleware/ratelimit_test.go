package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steams-social/steams-api/util/metrics"
	"github.com/steams-social/steams-api/web/session"
)

type fakeAdmins map[string]bool

func (f fakeAdmins) IsAdmin(_ context.Context, email string) (bool, error) {
	return f[email], nil
}

type brokenCounter struct{}

func (brokenCounter) Config(int, time.Duration) {}

func (brokenCounter) Increment(string, time.Time) error {
	return errors.New("connection refused")
}

func (brokenCounter) IncrementBy(string, time.Time, int) error {
	return errors.New("connection refused")
}

func (brokenCounter) Get(string, time.Time, time.Time) (int, int, error) {
	return 0, 0, errors.New("connection refused")
}

func newLimitedEngine(t *testing.T, cfg RateLimitConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := session.NewStore("test-secret", 3600, false)
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(session.Middleware(store))
	engine.GET("/test/login", func(c *gin.Context) {
		_ = session.SetIdentity(c, &session.Identity{Email: c.Query("email"), EmailVerified: true})
		c.Status(http.StatusNoContent)
	})
	engine.Use(AdminExemptRateLimit(cfg))
	engine.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return engine
}

func login(t *testing.T, engine *gin.Engine, email string) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test/login?email="+email, nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func ping(engine *gin.Engine, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRateLimitRejectsAfterMax(t *testing.T) {
	cfg := DefaultRateLimitConfig(nil, fakeAdmins{})
	engine := newLimitedEngine(t, cfg)

	for i := 0; i < 100; i++ {
		w := ping(engine, nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	before := testutil.ToFloat64(metrics.RateLimitRejections)
	w := ping(engine, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Too many requests, please try again later."}`, w.Body.String())
	assert.Equal(t, "0", w.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "100;w=900", w.Header().Get("RateLimit-Policy"))
	assert.Equal(t, w.Header().Get("RateLimit-Reset"), w.Header().Get("Retry-After"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RateLimitRejections))

	// a client behind another address keeps its own budget
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "198.51.100.20:5555"
	other := httptest.NewRecorder()
	engine.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRateLimitHeaders(t *testing.T) {
	cfg := DefaultRateLimitConfig(nil, fakeAdmins{})
	cfg.Max = 5
	cfg.Window = time.Minute
	engine := newLimitedEngine(t, cfg)

	w := ping(engine, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "5;w=60", w.Header().Get("RateLimit-Policy"))
	assert.Empty(t, w.Header().Get("Retry-After"))

	reset, err := strconv.Atoi(w.Header().Get("RateLimit-Reset"))
	require.NoError(t, err)
	assert.True(t, reset >= 1 && reset <= 60, "reset %d", reset)
}

func TestSecondsToWindowEnd(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 60, secondsToWindowEnd(start, time.Minute))
	assert.Equal(t, 1, secondsToWindowEnd(start.Add(59*time.Second+time.Millisecond), time.Minute))
	assert.Equal(t, 900, secondsToWindowEnd(start.Add(15*time.Minute), 15*time.Minute))
	assert.Equal(t, 0, secondsToWindowEnd(start, 0))
}

func TestRateLimitWindowPasses(t *testing.T) {
	cfg := DefaultRateLimitConfig(nil, fakeAdmins{})
	cfg.Max = 2
	cfg.Window = 200 * time.Millisecond
	engine := newLimitedEngine(t, cfg)

	assert.Equal(t, http.StatusOK, ping(engine, nil).Code)
	assert.Equal(t, http.StatusOK, ping(engine, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, ping(engine, nil).Code)

	// two window lengths later neither window holds a hit
	time.Sleep(2*cfg.Window + 50*time.Millisecond)
	assert.Equal(t, http.StatusOK, ping(engine, nil).Code)
}

func TestRateLimitExemptsAdmins(t *testing.T) {
	cfg := DefaultRateLimitConfig(nil, fakeAdmins{"boss@steams.social": true})
	cfg.Max = 3
	engine := newLimitedEngine(t, cfg)
	cookies := login(t, engine, "boss@steams.social")

	for i := 0; i < 10; i++ {
		w := ping(engine, cookies)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Empty(t, w.Header().Get("RateLimit-Limit"))
	}
}

func TestRateLimitThrottlesNonAdminSession(t *testing.T) {
	cfg := DefaultRateLimitConfig(nil, fakeAdmins{"boss@steams.social": true})
	cfg.Max = 3
	engine := newLimitedEngine(t, cfg)
	cookies := login(t, engine, "citizen@example.com")

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, ping(engine, cookies).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, ping(engine, cookies).Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	cfg := DefaultRateLimitConfig(brokenCounter{}, fakeAdmins{})
	cfg.Max = 1
	engine := newLimitedEngine(t, cfg)

	before := testutil.ToFloat64(metrics.RateLimitStoreErrors)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, ping(engine, nil).Code)
	}
	assert.Greater(t, testutil.ToFloat64(metrics.RateLimitStoreErrors), before)
}
