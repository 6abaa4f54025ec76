// Package controller provides the HTTP handlers of the steams API.
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/steams-social/steams-api/database/model"
	"github.com/steams-social/steams-api/logger"
	"github.com/steams-social/steams-api/web/service"
	"github.com/steams-social/steams-api/web/session"
)

// BaseController resolves the acting principal for protected routes.
type BaseController struct {
	userService *service.UserService
}

// checkLogin aborts with 401 when the request carries no identity.
func (a *BaseController) checkLogin(c *gin.Context) {
	if !session.IsAuthenticated(c) {
		jsonError(c, http.StatusUnauthorized, "Unauthorized")
		c.Abort()
		return
	}
	c.Next()
}

// currentUser returns the stored user behind the session. It writes the
// error response itself and returns nil when the handler must stop.
func (a *BaseController) currentUser(c *gin.Context) (*session.Identity, *model.User) {
	identity := session.GetIdentity(c)
	if identity == nil {
		jsonError(c, http.StatusUnauthorized, "Unauthorized")
		return nil, nil
	}
	user, err := a.userService.GetByEmail(c.Request.Context(), identity.Email)
	if errors.Is(err, service.ErrUserNotFound) {
		jsonError(c, http.StatusForbidden, "User not found")
		return nil, nil
	} else if err != nil {
		internalError(c, "load user", err)
		return nil, nil
	}
	return identity, user
}

// currentAdmin is currentUser plus the stored admin flag.
func (a *BaseController) currentAdmin(c *gin.Context) (*session.Identity, *model.User) {
	identity, user := a.currentUser(c)
	if user == nil {
		return nil, nil
	}
	if !user.IsAdmin {
		logger.Warningf("non-admin %s denied on %s", user.Email, c.Request.URL.Path)
		jsonError(c, http.StatusForbidden, "Not authorized")
		return nil, nil
	}
	return identity, user
}
