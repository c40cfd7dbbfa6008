package handlers

import (
	"strconv"

	"github.com/ecostage/backend/internal/middleware"
	"github.com/ecostage/backend/internal/services"
	"github.com/ecostage/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UpdateProfile edits the caller's own account
// PUT /api/users/me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// ChangePassword updates the caller's password
// PUT /api/users/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.userService.ChangePassword(middleware.GetUserID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password changed"})
}

// List returns users for the admin console
// GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	var req services.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.userService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive enables or disables an account
// PUT /api/admin/users/:id/active
func (h *UserHandler) SetActive(c *gin.Context) {
	userID, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.userService.SetActive(middleware.GetUserID(c), userID, *req.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "updated"})
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin user"`
}

// SetRole promotes or demotes an account
// PUT /api/admin/users/:id/role
func (h *UserHandler) SetRole(c *gin.Context) {
	userID, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.userService.SetRole(middleware.GetUserID(c), userID, req.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "updated"})
}

// Delete removes an account and its devices, memberships and notifications
// DELETE /api/admin/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	userID, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	if err := h.userService.Delete(middleware.GetUserID(c), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "deleted"})
}

// pathID parses a numeric path parameter.
func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
