package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/steams-social/steams-api/web/entity"
	"github.com/steams-social/steams-api/web/service"
)

// ComplaintController lets a user file complaints and follow their own.
type ComplaintController struct {
	BaseController

	complaintService *service.ComplaintService
}

func NewComplaintController(g *gin.RouterGroup, users *service.UserService, complaints *service.ComplaintService) *ComplaintController {
	a := &ComplaintController{
		BaseController:   BaseController{userService: users},
		complaintService: complaints,
	}
	a.initRouter(g)
	return a
}

func (a *ComplaintController) initRouter(g *gin.RouterGroup) {
	g = g.Group("", a.checkLogin)

	g.POST("/complaint", a.create)
	g.GET("/myComplaints", a.mine)
}

func (a *ComplaintController) create(c *gin.Context) {
	_, user := a.currentUser(c)
	if user == nil {
		return
	}
	var req entity.ComplaintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "issue is required")
		return
	}
	complaint, err := a.complaintService.Create(c.Request.Context(), user, req.Issue)
	if errors.Is(err, service.ErrEmptyIssue) {
		jsonError(c, http.StatusBadRequest, "issue is required")
		return
	} else if err != nil {
		internalError(c, "create complaint", err)
		return
	}
	c.JSON(http.StatusOK, entity.ComplaintResp{Success: true, Complaint: complaint})
}

func (a *ComplaintController) mine(c *gin.Context) {
	_, user := a.currentUser(c)
	if user == nil {
		return
	}
	complaints, err := a.complaintService.ListByOwner(c.Request.Context(), user.Email)
	if err != nil {
		internalError(c, "list complaints", err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}
