package handlers

import (
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SystemLogHandler struct {
	systemLogService *services.SystemLogService
}

func NewSystemLogHandler(db *gorm.DB) *SystemLogHandler {
	return &SystemLogHandler{
		systemLogService: services.NewSystemLogService(db),
	}
}

// List returns paged operation logs
// GET /api/system-logs
func (h *SystemLogHandler) List(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.systemLogService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}
