package handlers

import (
	"github.com/ecostage/backend/internal/middleware"
	"github.com/ecostage/backend/internal/services"
	"github.com/ecostage/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type ProjectRequestHandler struct {
	requestService *services.ProjectRequestService
}

func NewProjectRequestHandler(requestService *services.ProjectRequestService) *ProjectRequestHandler {
	return &ProjectRequestHandler{requestService: requestService}
}

// Submit files a new project proposal
// POST /api/project-requests
func (h *ProjectRequestHandler) Submit(c *gin.Context) {
	var req services.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	request, err := h.requestService.Submit(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ListMine returns the caller's own proposals
// GET /api/project-requests
func (h *ProjectRequestHandler) ListMine(c *gin.Context) {
	var req services.RequestListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.requestService.ListForUser(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// List returns all proposals (admin)
// GET /api/admin/project-requests
func (h *ProjectRequestHandler) List(c *gin.Context) {
	var req services.RequestListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.requestService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Approve turns a pending proposal into a live project
// POST /api/admin/project-requests/:id/approve
func (h *ProjectRequestHandler) Approve(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid request id")
		return
	}

	var req services.ReviewRequestRequest
	_ = c.ShouldBindJSON(&req)

	instance, err := h.requestService.Approve(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instance)
}

// Reject declines a pending proposal
// POST /api/admin/project-requests/:id/reject
func (h *ProjectRequestHandler) Reject(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid request id")
		return
	}

	var req services.ReviewRequestRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.requestService.Reject(id, middleware.GetUserID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "rejected"})
}
