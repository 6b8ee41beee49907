package handlers

import (
	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/internal/services"
	"github.com/gin-gonic/gin"
)

// HealthHandler provides the health check endpoint.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	queue := services.GetDigestQueue()
	queueMode := "sync"
	if queue != nil && queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "taskboard",
		"components": gin.H{
			"database":   dbStatus,
			"queue_mode": queueMode,
		},
	})
}
