package handlers

import (
	"github.com/forps/taskboard/internal/middleware"
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Trigger queues a digest delivery for one project, outside the weekly cycle
// POST /api/projects/:id/report
func (h *ReportHandler) Trigger(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.reportService.TriggerProjectReport(projectID, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"queued": true})
}
