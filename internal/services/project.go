package services

import (
	"errors"
	"time"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/logger"
	"github.com/ecostage/backend/pkg/response"
	"gorm.io/gorm"
)

// ProjectService covers reads and maintenance of stage instances: listing a
// user's projects, timeline edits, archiving and admin hard deletion.
type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

// ProjectView is a stage instance joined with the caller's own membership.
type ProjectView struct {
	models.ProjectStageInstance
	Role           string  `json:"role"`
	ProgressStatus *string `json:"progress_status"`
}

type ProjectListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Stage    string `form:"stage"`
	Status   string `form:"status"`
	Name     string `form:"name"`
}

type ProjectListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []ProjectView `json:"items"`
}

// GetByID returns a live instance. Archived rows read as not found.
func (s *ProjectService) GetByID(id uint) (*models.ProjectStageInstance, error) {
	return loadLiveInstance(s.db, id)
}

// ListForUser returns every live instance the user holds a membership on,
// together with their role and progress there.
func (s *ProjectService) ListForUser(userID uint, req *ProjectListRequest) (*ProjectListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.ProjectStageInstance{}).
		Select("project_stage_instances.*, project_memberships.role, project_memberships.progress_status").
		Joins("JOIN project_memberships ON project_memberships.instance_id = project_stage_instances.id").
		Where("project_memberships.user_id = ?", userID).
		// A creator holds both owner and leader rows on their instance; keep
		// the contributing one so each instance appears once.
		Where("project_memberships.role <> ? OR NOT EXISTS (SELECT 1 FROM project_memberships pm2 WHERE pm2.instance_id = project_memberships.instance_id AND pm2.user_id = project_memberships.user_id AND pm2.role <> ?)",
			models.RoleOwner, models.RoleOwner).
		Where("project_stage_instances.status <> ?", models.ProjectStatusArchived)

	if req.Stage != "" {
		query = query.Where("project_stage_instances.stage = ?", req.Stage)
	}
	if req.Status != "" {
		query = query.Where("project_stage_instances.status = ?", req.Status)
	}
	if req.Name != "" {
		query = query.Where("project_stage_instances.name LIKE ?", "%"+req.Name+"%")
	}

	var total int64
	query.Count(&total)

	var items []ProjectView
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("project_stage_instances.created_at DESC").
		Offset(offset).Limit(req.PageSize).
		Scan(&items).Error; err != nil {
		return nil, err
	}

	return &ProjectListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

// ListGroup returns every instance sharing the given project-group id, the
// full stage history of one effort.
func (s *ProjectService) ListGroup(groupID string) ([]models.ProjectStageInstance, error) {
	var items []models.ProjectStageInstance
	if err := s.db.Where("project_id = ?", groupID).
		Order("created_at").
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, response.NewNotFound("project group not found")
	}
	return items, nil
}

type UpdateTimelineRequest struct {
	StageDuration  *int       `json:"stage_duration" binding:"omitempty,min=1"`
	StageDueDate   *time.Time `json:"stage_due_date"`
	ProjectDueDate *time.Time `json:"project_due_date"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
}

// UpdateTimeline edits the descriptive and timeline fields of an instance.
// Only the owner or leader may edit.
func (s *ProjectService) UpdateTimeline(id, userID uint, req *UpdateTimelineRequest) (*models.ProjectStageInstance, error) {
	var instance *models.ProjectStageInstance
	err := s.db.Transaction(func(tx *gorm.DB) error {
		inst, err := loadLiveInstance(tx, id)
		if err != nil {
			return err
		}

		if err := requireRole(tx, inst, userID, models.RoleOwner, models.RoleLeader); err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if req.Name != "" {
			updates["name"] = req.Name
		}
		if req.Description != "" {
			updates["description"] = req.Description
		}
		if req.StageDuration != nil {
			updates["stage_duration"] = *req.StageDuration
			updates["stage_due_date"] = AddBusinessDays(inst.StageStartDate, *req.StageDuration)
		}
		if req.StageDueDate != nil {
			if req.StageDueDate.Before(inst.StageStartDate) {
				return response.NewBadRequest("stage_due_date precedes stage_start_date")
			}
			updates["stage_due_date"] = *req.StageDueDate
		}
		if req.ProjectDueDate != nil {
			updates["project_due_date"] = *req.ProjectDueDate
		}

		if len(updates) == 0 {
			instance = inst
			return nil
		}
		if err := tx.Model(inst).Updates(updates).Error; err != nil {
			return err
		}
		instance = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// Archive soft-removes an instance from the live set. The row survives for
// history; the (group, stage) slot frees up because Active becomes NULL.
func (s *ProjectService) Archive(id, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		instance, err := loadLiveInstance(tx, id)
		if err != nil {
			return err
		}
		if err := requireRole(tx, instance, userID, models.RoleOwner); err != nil {
			return err
		}
		return tx.Model(instance).Updates(map[string]interface{}{
			"status": models.ProjectStatusArchived,
			"active": nil,
		}).Error
	})
}

// AdminDelete hard-deletes an instance and cascades to memberships and
// notifications. Stage progress audit rows are deliberately preserved.
func (s *ProjectService) AdminDelete(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var instance models.ProjectStageInstance
		if err := tx.First(&instance, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("project instance not found")
			}
			return err
		}

		if err := tx.Where("instance_id = ?", id).
			Delete(&models.ProjectMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("instance_id = ?", id).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&instance).Error
	})
	if err != nil {
		return err
	}

	logger.Warn().Uint("instance_id", id).Msg("project instance hard-deleted")
	return nil
}

// requireRole checks that userID holds one of the given roles on the
// instance. The instance owner passes the owner check without a membership
// row of their own.
func requireRole(tx *gorm.DB, instance *models.ProjectStageInstance, userID uint, roles ...string) error {
	for _, r := range roles {
		if r == models.RoleOwner && instance.OwnerID == userID {
			return nil
		}
	}

	var count int64
	if err := tx.Model(&models.ProjectMembership{}).
		Where("instance_id = ? AND user_id = ? AND role IN ?", instance.ID, userID, roles).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return response.NewForbidden("insufficient project role")
	}
	return nil
}
