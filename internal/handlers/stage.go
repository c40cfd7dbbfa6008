package handlers

import (
	"github.com/ecostage/backend/internal/middleware"
	"github.com/ecostage/backend/internal/services"
	"github.com/ecostage/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type StageHandler struct {
	stageService    *services.StageService
	emissionService *services.EmissionService
}

func NewStageHandler(stageService *services.StageService, emissionService *services.EmissionService) *StageHandler {
	return &StageHandler{stageService: stageService, emissionService: emissionService}
}

// CompleteStage records the caller's stage completion and advances the
// project when a next stage is named
// POST /api/projects/:id/complete
func (h *StageHandler) CompleteStage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	var req services.CompleteStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.stageService.CompleteStage(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Completion reports how many contributing members have finished the stage
// GET /api/projects/:id/completion
func (h *StageHandler) Completion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	result, err := h.stageService.EvaluateCompletion(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// AccrueEmission folds one work session into the instance totals
// POST /api/projects/:id/sessions
func (h *StageHandler) AccrueEmission(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	var req services.AccrueEmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.emissionService.Accrue(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListSessions returns the work session audit rows of an instance
// GET /api/projects/:id/sessions
func (h *StageHandler) ListSessions(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	var req services.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.emissionService.ListSessions(id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
