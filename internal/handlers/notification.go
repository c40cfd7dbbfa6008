package handlers

import (
	"github.com/ecostage/backend/internal/middleware"
	"github.com/ecostage/backend/internal/services"
	"github.com/ecostage/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
	membershipService   *services.MembershipService
}

func NewNotificationHandler(notificationService *services.NotificationService, membershipService *services.MembershipService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		membershipService:   membershipService,
	}
}

// List returns the caller's notifications
// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	var req services.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.notificationService.List(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Get returns one notification
// GET /api/notifications/:id
func (h *NotificationHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}

	n, err := h.notificationService.Get(middleware.GetUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, n)
}

// MarkRead flips a notification to read
// PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}

	if err := h.notificationService.MarkRead(middleware.GetUserID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "read"})
}

// MarkAllRead flips every unread notification of the caller
// PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	count, err := h.notificationService.MarkAllRead(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"marked": count})
}

// Respond answers a project invitation
// POST /api/notifications/:id/respond
func (h *NotificationHandler) Respond(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}

	var req services.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.membershipService.Respond(id, middleware.GetUserID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "response recorded"})
}
