package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/steams-social/steams-api/logger"
	"github.com/steams-social/steams-api/web/entity"
	"github.com/steams-social/steams-api/web/service"
	"github.com/steams-social/steams-api/web/session"
)

const maxNameLength = 100

// ProfileController serves the caller's own user record and the heatmap.
type ProfileController struct {
	BaseController

	mapService *service.MapService
}

func NewProfileController(g *gin.RouterGroup, users *service.UserService, maps *service.MapService) *ProfileController {
	a := &ProfileController{
		BaseController: BaseController{userService: users},
		mapService:     maps,
	}
	a.initRouter(g)
	return a
}

func (a *ProfileController) initRouter(g *gin.RouterGroup) {
	g = g.Group("", a.checkLogin)

	g.GET("/letmein", a.letMeIn)
	g.GET("/self", a.self)
	g.PUT("/profileUpdate", a.profileUpdate)
	g.GET("/map", gzip.Gzip(gzip.DefaultCompression), a.heatmap)
}

// letMeIn registers the session principal on first visit.
func (a *ProfileController) letMeIn(c *gin.Context) {
	identity := session.GetIdentity(c)
	user, created, err := a.userService.EnsureUser(c.Request.Context(), service.Profile{
		Email:    identity.Email,
		Name:     identity.Name,
		Verified: identity.EmailVerified,
		Picture:  identity.Picture,
	})
	if err != nil {
		internalError(c, "create user", err)
		return
	}
	if created {
		logger.Infof("registered user %s", user.Email)
	}
	c.JSON(http.StatusOK, entity.LetMeInResp{Success: true, Created: created, User: user})
}

func (a *ProfileController) self(c *gin.Context) {
	identity, user := a.currentUser(c)
	if user == nil {
		return
	}
	name := user.Name
	if name == "" {
		name = identity.Name
	}
	picture := user.Picture
	if picture == "" {
		picture = identity.Picture
	}
	c.JSON(http.StatusOK, entity.SelfResp{
		Email:         user.Email,
		EmailVerified: identity.EmailVerified,
		Name:          name,
		Verified:      user.Verified,
		Picture:       picture,
		IsAdmin:       user.IsAdmin,
	})
}

func (a *ProfileController) profileUpdate(c *gin.Context) {
	identity, user := a.currentUser(c)
	if user == nil {
		return
	}
	var req entity.ProfileUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "name is required")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		jsonError(c, http.StatusBadRequest, "name must be between 1 and 100 characters")
		return
	}

	_, err := a.userService.UpdateProfile(c.Request.Context(), service.Profile{
		Email:    user.Email,
		Name:     name,
		Verified: identity.EmailVerified,
		Picture:  identity.Picture,
	})
	if errors.Is(err, service.ErrUserNotFound) {
		jsonError(c, http.StatusForbidden, "User not found")
		return
	} else if err != nil {
		internalError(c, "update profile", err)
		return
	}
	jsonSuccess(c)
}

func (a *ProfileController) heatmap(c *gin.Context) {
	if _, user := a.currentUser(c); user == nil {
		return
	}
	var q entity.MapQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		jsonError(c, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	if q.Latitude == "" || q.Longitude == "" {
		jsonError(c, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	if !inRange(q.Latitude, 90) || !inRange(q.Longitude, 180) {
		jsonError(c, http.StatusBadRequest, "latitude and longitude must be valid coordinates")
		return
	}

	page, err := a.mapService.Heatmap(c.Request.Context(), q.Latitude, q.Longitude)
	if err != nil {
		logger.Warning("heatmap:", err)
		jsonError(c, http.StatusInternalServerError, "Failed to fetch map")
		return
	}
	c.Data(http.StatusOK, page.ContentType, page.Body)
}

// inRange parses s as a finite number within [-limit, limit].
func inRange(s string, limit float64) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return false
	}
	return v >= -limit && v <= limit
}
