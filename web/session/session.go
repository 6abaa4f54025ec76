// Package session keeps the identity-provider principal in the session cookie.
// Roles are never stored here; they are looked up in the database per request.
package session

import (
	"crypto/sha256"
	"encoding/gob"
	"io"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/hkdf"
)

// CookieName is the session cookie shared with the web client.
const CookieName = "appSession"

const (
	identityKey   = "IDENTITY"
	loginStateKey = "LOGIN_STATE"
)

// Identity is the authenticated principal reported by the identity provider.
type Identity struct {
	Subject       string `json:"sub,omitempty"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

// LoginState is kept between the login redirect and the provider callback.
type LoginState struct {
	State    string
	Nonce    string
	ReturnTo string
}

func init() {
	gob.Register(Identity{})
	gob.Register(LoginState{})
}

// NewStore returns a cookie store whose signing and encryption keys are
// derived from secret.
func NewStore(secret string, maxAge int, secure bool) (sessions.Store, error) {
	authKey, err := deriveKey(secret, "cookie signing")
	if err != nil {
		return nil, err
	}
	encKey, err := deriveKey(secret, "cookie encryption")
	if err != nil {
		return nil, err
	}
	store := cookie.NewStore(authKey, encKey)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Middleware loads the session for every request.
func Middleware(store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(CookieName, store)
}

func SetIdentity(c *gin.Context, identity *Identity) error {
	s := sessions.Default(c)
	s.Set(identityKey, *identity)
	return s.Save()
}

// GetIdentity returns the session principal, or nil when the request is anonymous.
func GetIdentity(c *gin.Context) *Identity {
	s := sessions.Default(c)
	if obj := s.Get(identityKey); obj != nil {
		if identity, ok := obj.(Identity); ok && identity.Email != "" {
			return &identity
		}
	}
	return nil
}

func IsAuthenticated(c *gin.Context) bool {
	return GetIdentity(c) != nil
}

func SetLoginState(c *gin.Context, state LoginState) error {
	s := sessions.Default(c)
	s.Set(loginStateKey, state)
	return s.Save()
}

// PopLoginState returns and removes the pending login state.
func PopLoginState(c *gin.Context) (LoginState, bool) {
	s := sessions.Default(c)
	obj := s.Get(loginStateKey)
	if obj == nil {
		return LoginState{}, false
	}
	s.Delete(loginStateKey)
	_ = s.Save()
	state, ok := obj.(LoginState)
	return state, ok
}

func ClearSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	return s.Save()
}
