package handlers

import (
	"github.com/ecostage/backend/internal/services"
	"github.com/ecostage/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type HardwareHandler struct {
	hardwareService *services.HardwareService
}

func NewHardwareHandler(hardwareService *services.HardwareService) *HardwareHandler {
	return &HardwareHandler{hardwareService: hardwareService}
}

// Catalog returns the component catalog
// GET /api/hardware?category=desktop
func (h *HardwareHandler) Catalog(c *gin.Context) {
	catalog, err := h.hardwareService.Catalog(c.Query("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, catalog)
}

// CreateModel adds a catalog entry
// POST /api/admin/hardware/:kind
func (h *HardwareHandler) CreateModel(c *gin.Context) {
	var req services.HardwareModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	model, err := h.hardwareService.CreateModel(c.Param("kind"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, model)
}

// UpdateModel edits a catalog entry
// PUT /api/admin/hardware/:kind/:id
func (h *HardwareHandler) UpdateModel(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid model id")
		return
	}

	var req services.HardwareModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.hardwareService.UpdateModel(c.Param("kind"), id, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "updated"})
}

// DeleteModel removes an unreferenced catalog entry
// DELETE /api/admin/hardware/:kind/:id
func (h *HardwareHandler) DeleteModel(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid model id")
		return
	}

	if err := h.hardwareService.DeleteModel(c.Param("kind"), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "deleted"})
}
