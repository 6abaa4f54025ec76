package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := NewStore("test-secret", 3600, false)
	require.NoError(t, err)

	r := gin.New()
	r.Use(Middleware(store))
	r.GET("/set", func(c *gin.Context) {
		_ = SetIdentity(c, &Identity{Email: "ana@example.com", EmailVerified: true})
		c.Status(http.StatusNoContent)
	})
	r.GET("/get", func(c *gin.Context) {
		identity := GetIdentity(c)
		if identity == nil {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.String(http.StatusOK, identity.Email)
	})
	return r
}

func TestIdentityRoundTrip(t *testing.T) {
	r := newEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, CookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@example.com", w.Body.String())
}

func TestStoreRejectsCookieFromOtherSecret(t *testing.T) {
	r := newEngine(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	other, err := NewStore("another-secret", 3600, false)
	require.NoError(t, err)
	r2 := gin.New()
	r2.Use(Middleware(other))
	r2.GET("/get", func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusUnauthorized)
	})

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r2.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
