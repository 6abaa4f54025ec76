package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/steams-social/steams-api/logger"
	"github.com/steams-social/steams-api/web/entity"
	"github.com/steams-social/steams-api/web/service"
)

// AdminController holds the routes reserved for stored admins.
type AdminController struct {
	BaseController

	complaintService *service.ComplaintService
}

func NewAdminController(g *gin.RouterGroup, users *service.UserService, complaints *service.ComplaintService) *AdminController {
	a := &AdminController{
		BaseController:   BaseController{userService: users},
		complaintService: complaints,
	}
	a.initRouter(g)
	return a
}

func (a *AdminController) initRouter(g *gin.RouterGroup) {
	g = g.Group("", a.checkLogin)

	g.PUT("/promoteUser", a.promoteUser)
	g.POST("/promoteUser", a.promoteUser)
	g.GET("/complaints", a.complaints)
	g.PUT("/complaintStatus", a.complaintStatus)
	g.PUT("/complaint/status", a.complaintStatus)
}

// promoteUser additionally requires the caller's provider email to be verified.
func (a *AdminController) promoteUser(c *gin.Context) {
	identity, admin := a.currentAdmin(c)
	if admin == nil {
		return
	}
	if !identity.EmailVerified {
		jsonError(c, http.StatusForbidden, "Not authorized")
		return
	}
	var req entity.PromoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "email is required")
		return
	}

	target, err := a.userService.Promote(c.Request.Context(), req.Email)
	if errors.Is(err, service.ErrUserNotFound) {
		jsonError(c, http.StatusNotFound, "User not found")
		return
	} else if err != nil {
		internalError(c, "promote user", err)
		return
	}
	logger.Noticef("%s promoted %s to admin", admin.Email, target.Email)
	jsonSuccess(c)
}

func (a *AdminController) complaints(c *gin.Context) {
	if _, admin := a.currentAdmin(c); admin == nil {
		return
	}
	complaints, err := a.complaintService.ListAll(c.Request.Context())
	if err != nil {
		internalError(c, "list complaints", err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

func (a *AdminController) complaintStatus(c *gin.Context) {
	_, admin := a.currentAdmin(c)
	if admin == nil {
		return
	}
	var req entity.ComplaintStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "complaintUID and status are required")
		return
	}

	action, err := a.complaintService.AppendAction(c.Request.Context(), req.ComplaintUID, admin, req.Status, req.Response)
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		jsonError(c, http.StatusBadRequest, "Invalid status")
	case errors.Is(err, service.ErrComplaintNotFound):
		jsonError(c, http.StatusNotFound, "Complaint not found")
	case err != nil:
		internalError(c, "update complaint status", err)
	default:
		logger.Infof("%s set complaint %d to %s", admin.Email, action.ComplaintUID, action.Status)
		c.JSON(http.StatusOK, action)
	}
}
