package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/steams-social/steams-api/logger"
	"github.com/steams-social/steams-api/web/entity"
	"github.com/steams-social/steams-api/web/oidc"
	"github.com/steams-social/steams-api/web/session"
)

// AuthController runs the identity-provider login flow and reports session state.
type AuthController struct {
	BaseController

	provider *oidc.Provider
	baseURL  string
}

func NewAuthController(g *gin.RouterGroup, provider *oidc.Provider, baseURL string) *AuthController {
	a := &AuthController{provider: provider, baseURL: strings.TrimRight(baseURL, "/")}
	a.initRouter(g)
	return a
}

func (a *AuthController) initRouter(g *gin.RouterGroup) {
	g.GET("/checkSession", a.checkSession)
	g.GET("/login", a.login)
	g.GET("/callback", a.callback)
	g.GET("/logout", a.logout)
	g.GET("/profile", a.checkLogin, a.profile)
}

func (a *AuthController) checkSession(c *gin.Context) {
	c.JSON(http.StatusOK, entity.SessionStatus{LoginStatus: session.IsAuthenticated(c)})
}

// profile returns the identity exactly as the provider reported it.
func (a *AuthController) profile(c *gin.Context) {
	c.JSON(http.StatusOK, session.GetIdentity(c))
}

func (a *AuthController) login(c *gin.Context) {
	if !a.provider.Configured() {
		jsonError(c, http.StatusServiceUnavailable, "Login is not configured")
		return
	}
	state := session.LoginState{
		State:    uuid.NewString(),
		Nonce:    uuid.NewString(),
		ReturnTo: safeReturnTo(c.Query("returnTo")),
	}
	authURL, err := a.provider.AuthCodeURL(c.Request.Context(), state.State, state.Nonce)
	if err != nil {
		logger.Error("identity provider discovery failed:", err)
		jsonError(c, http.StatusBadGateway, "Identity provider unavailable")
		return
	}
	if err := session.SetLoginState(c, state); err != nil {
		internalError(c, "save login state", err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

func (a *AuthController) callback(c *gin.Context) {
	pending, ok := session.PopLoginState(c)
	if !ok || pending.State == "" || c.Query("state") != pending.State {
		logger.Warning("login callback with unknown state from", c.ClientIP())
		jsonError(c, http.StatusBadRequest, "Invalid login state")
		return
	}
	if errParam := c.Query("error"); errParam != "" {
		logger.Warningf("identity provider refused login: %s %s", errParam, c.Query("error_description"))
		jsonError(c, http.StatusUnauthorized, "Login failed")
		return
	}
	code := c.Query("code")
	if code == "" {
		jsonError(c, http.StatusBadRequest, "Missing authorization code")
		return
	}

	info, err := a.provider.Exchange(c.Request.Context(), code, pending.Nonce)
	if err != nil {
		logger.Warning("login callback rejected:", err)
		jsonError(c, http.StatusUnauthorized, "Login failed")
		return
	}

	identity := &session.Identity{
		Subject:       info.Subject,
		Email:         strings.ToLower(strings.TrimSpace(info.Email)),
		EmailVerified: info.EmailVerified,
		Name:          info.Name,
		Picture:       info.Picture,
	}
	if err := session.SetIdentity(c, identity); err != nil {
		internalError(c, "save session", err)
		return
	}
	logger.Infof("%s logged in from %s", identity.Email, c.ClientIP())
	c.Redirect(http.StatusFound, a.baseURL+pending.ReturnTo)
}

func (a *AuthController) logout(c *gin.Context) {
	if identity := session.GetIdentity(c); identity != nil {
		logger.Infof("%s logged out", identity.Email)
	}
	if err := session.ClearSession(c); err != nil {
		logger.Warning("clear session:", err)
	}
	if !a.provider.Configured() {
		c.Redirect(http.StatusFound, a.baseURL+"/")
		return
	}
	c.Redirect(http.StatusFound, a.provider.LogoutURL(c.Request.Context(), a.baseURL+"/"))
}

// safeReturnTo keeps post-login redirects on this site.
func safeReturnTo(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return "/"
	}
	return p
}
