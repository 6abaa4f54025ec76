package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/steams-social/steams-api/logger"
	"github.com/steams-social/steams-api/web/entity"
)

func jsonError(c *gin.Context, status int, msg string) {
	c.JSON(status, entity.ErrorMsg{Error: msg})
}

// internalError logs the cause and answers with a generic 500.
func internalError(c *gin.Context, action string, err error) {
	logger.Error(action+" failed on", c.Request.URL.Path+":", err)
	jsonError(c, http.StatusInternalServerError, "Internal server error")
}

func jsonSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, entity.Msg{Success: true})
}
