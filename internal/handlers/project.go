package handlers

import (
	"github.com/ecostage/backend/internal/middleware"
	"github.com/ecostage/backend/internal/services"
	"github.com/ecostage/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService    *services.ProjectService
	membershipService *services.MembershipService
}

func NewProjectHandler(projectService *services.ProjectService, membershipService *services.MembershipService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, membershipService: membershipService}
}

// List returns the caller's projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.projectService.ListForUser(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Get returns one stage instance
// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	instance, err := h.projectService.GetByID(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, instance)
}

// History returns every stage instance of the project group
// GET /api/projects/:id/history
func (h *ProjectHandler) History(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	instance, err := h.projectService.GetByID(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	items, err := h.projectService.ListGroup(instance.ProjectGroupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

// UpdateTimeline edits descriptive and timeline fields
// PUT /api/projects/:id
func (h *ProjectHandler) UpdateTimeline(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	var req services.UpdateTimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	instance, err := h.projectService.UpdateTimeline(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, instance)
}

// Archive retires an instance from the live set
// POST /api/projects/:id/archive
func (h *ProjectHandler) Archive(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	if err := h.projectService.Archive(id, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "archived"})
}

// AdminDelete hard-deletes an instance
// DELETE /api/admin/projects/:id
func (h *ProjectHandler) AdminDelete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	if err := h.projectService.AdminDelete(id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "deleted"})
}

// ListMembers returns the roster of an instance
// GET /api/projects/:id/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	members, err := h.membershipService.ListMembers(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, members)
}

// AddMember directly attaches a user to an instance (admin)
// POST /api/admin/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	membership, err := h.membershipService.AddMember(id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, membership)
}

// RemoveMember detaches a user from an instance
// DELETE /api/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	// Admins and project owners may prune the roster.
	if middleware.GetRole(c) != "admin" {
		instance, err := h.projectService.GetByID(id)
		if err != nil {
			response.Error(c, err)
			return
		}
		if instance.OwnerID != middleware.GetUserID(c) {
			response.Forbidden(c, "only the project owner can remove members")
			return
		}
	}

	if err := h.membershipService.RemoveMember(id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "member removed"})
}

// Invite sends a membership invitation
// POST /api/projects/invite
func (h *ProjectHandler) Invite(c *gin.Context) {
	var req services.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	notification, err := h.membershipService.Invite(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, notification)
}
