package handlers

import (
	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/internal/services"
	"github.com/gin-gonic/gin"
)

// HealthHandler provides health check endpoints.
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

	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	var liveProjects int64
	models.GetDB().Model(&models.ProjectStageInstance{}).
		Where("status = ?", models.ProjectStatusInProgress).
		Count(&liveProjects)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "ecostage",
		"components": gin.H{
			"database":      dbStatus,
			"queue_mode":    queueMode,
			"live_projects": liveProjects,
		},
	})
}
