package handlers

import (
	"github.com/ecostage/backend/internal/middleware"
	"github.com/ecostage/backend/internal/services"
	"github.com/ecostage/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
}

func NewDeviceHandler(deviceService *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// List returns the caller's devices
// GET /api/devices
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.deviceService.List(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, devices)
}

// Create adds a device
// POST /api/devices
func (h *DeviceHandler) Create(c *gin.Context) {
	var req services.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	device, err := h.deviceService.Create(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, device)
}

// Update edits a device
// PUT /api/devices/:id
func (h *DeviceHandler) Update(c *gin.Context) {
	deviceID, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid device id")
		return
	}

	var req services.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	device, err := h.deviceService.Update(middleware.GetUserID(c), deviceID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, device)
}

// SetCurrent switches the caller's active device
// PUT /api/devices/:id/current
func (h *DeviceHandler) SetCurrent(c *gin.Context) {
	deviceID, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid device id")
		return
	}

	if err := h.deviceService.SetCurrent(middleware.GetUserID(c), deviceID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "current device updated"})
}

// Delete removes a non-current device
// DELETE /api/devices/:id
func (h *DeviceHandler) Delete(c *gin.Context) {
	deviceID, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid device id")
		return
	}

	if err := h.deviceService.Delete(middleware.GetUserID(c), deviceID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "device deleted"})
}
