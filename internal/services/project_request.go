package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/logger"
	"github.com/ecostage/backend/pkg/response"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectRequestService handles user-submitted project proposals and their
// admin disposition. Approval is the only way a new project group is born.
type ProjectRequestService struct {
	db     *gorm.DB
	mailer *Mailer
}

func NewProjectRequestService(db *gorm.DB, mailer *Mailer) *ProjectRequestService {
	return &ProjectRequestService{db: db, mailer: mailer}
}

type SubmitRequestRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description" binding:"required"`
	Stage          string     `json:"stage"`
	StageDuration  int        `json:"stage_duration" binding:"omitempty,min=1"`
	ProjectDueDate *time.Time `json:"project_due_date"`
}

type ReviewRequestRequest struct {
	Notes string `json:"notes"`
}

// Submit files a new pending proposal.
func (s *ProjectRequestService) Submit(requesterID uint, req *SubmitRequestRequest) (*models.ProjectRequest, error) {
	stage := req.Stage
	if stage == "" {
		stage = models.StageDesign
	}
	if !models.ValidStage(stage) {
		return nil, response.NewBadRequest("unknown stage: " + stage)
	}

	duration := req.StageDuration
	if duration == 0 {
		duration = 14
	}

	request := models.ProjectRequest{
		RequesterID:    requesterID,
		Title:          req.Title,
		Description:    req.Description,
		Stage:          stage,
		StageDuration:  duration,
		ProjectDueDate: req.ProjectDueDate,
		Status:         models.RequestPending,
	}
	if err := s.db.Create(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// Approve turns a pending request into a live stage instance with owner and
// leader memberships for the requester, in one transaction. Re-approving a
// decided request is a conflict.
func (s *ProjectRequestService) Approve(requestID, reviewerID uint, req *ReviewRequestRequest) (*models.ProjectStageInstance, error) {
	var instance *models.ProjectStageInstance
	var requesterEmail string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		request, err := loadPendingRequest(tx, requestID)
		if err != nil {
			return err
		}

		var requester models.User
		if err := tx.First(&requester, request.RequesterID).Error; err != nil {
			return err
		}
		requesterEmail = requester.Email

		now := time.Now()
		projectDue := now.AddDate(0, 6, 0)
		if request.ProjectDueDate != nil {
			projectDue = *request.ProjectDueDate
		}

		inst := models.ProjectStageInstance{
			ProjectGroupID:   uuid.NewString(),
			Stage:            request.Stage,
			Active:           liveMarker(),
			OwnerID:          requester.ID,
			Organization:     requester.Organization,
			Name:             request.Title,
			Description:      request.Description,
			Status:           models.ProjectStatusInProgress,
			StageDuration:    request.StageDuration,
			StageStartDate:   now,
			StageDueDate:     AddBusinessDays(now, request.StageDuration),
			ProjectStartDate: now,
			ProjectDueDate:   projectDue,
		}
		if err := tx.Create(&inst).Error; err != nil {
			return err
		}

		// The requester holds both hats: the owner row carries no progress,
		// the leader row is the one that contributes to completion.
		memberships := []models.ProjectMembership{
			{
				InstanceID:   inst.ID,
				UserID:       requester.ID,
				Role:         models.RoleOwner,
				CurrentStage: inst.Stage,
			},
			{
				InstanceID:     inst.ID,
				UserID:         requester.ID,
				Role:           models.RoleLeader,
				CurrentStage:   inst.Stage,
				ProgressStatus: models.Progress(models.ProgressInProgress),
			},
		}
		for i := range memberships {
			if err := tx.Create(&memberships[i]).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(request).Updates(map[string]interface{}{
			"status":      models.RequestApproved,
			"reviewer_id": reviewerID,
			"notes":       req.Notes,
			"instance_id": inst.ID,
			"reviewed_at": now,
		}).Error; err != nil {
			return err
		}

		n := models.Notification{
			SenderID:    reviewerID,
			RecipientID: requester.ID,
			InstanceID:  &inst.ID,
			Type:        models.NotificationTypeRequestApproved,
			Message:     fmt.Sprintf("Your project request %q was approved.", request.Title),
			Status:      models.NotificationUnread,
		}
		if err := tx.Create(&n).Error; err != nil {
			return err
		}

		instance = &inst
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mailer.QueueMail(requesterEmail,
		"Project request approved",
		fmt.Sprintf("Your project %q is live and in the %s stage.", instance.Name, instance.Stage))

	logger.Info().
		Uint("request_id", requestID).
		Uint("instance_id", instance.ID).
		Str("project_id", instance.ProjectGroupID).
		Msg("project request approved")

	return instance, nil
}

// Reject marks a pending request as terminally rejected.
func (s *ProjectRequestService) Reject(requestID, reviewerID uint, req *ReviewRequestRequest) error {
	var requesterID uint
	var title string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		request, err := loadPendingRequest(tx, requestID)
		if err != nil {
			return err
		}
		requesterID = request.RequesterID
		title = request.Title

		now := time.Now()
		if err := tx.Model(request).Updates(map[string]interface{}{
			"status":      models.RequestRejected,
			"reviewer_id": reviewerID,
			"notes":       req.Notes,
			"reviewed_at": now,
		}).Error; err != nil {
			return err
		}

		n := models.Notification{
			SenderID:    reviewerID,
			RecipientID: request.RequesterID,
			Type:        models.NotificationTypeRequestRejected,
			Message:     fmt.Sprintf("Your project request %q was rejected.", request.Title),
			Status:      models.NotificationUnread,
		}
		return tx.Create(&n).Error
	})
	if err != nil {
		return err
	}

	logger.Info().
		Uint("request_id", requestID).
		Uint("requester_id", requesterID).
		Str("title", title).
		Msg("project request rejected")
	return nil
}

type RequestListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
}

type RequestListResponse struct {
	Total    int64                   `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
	Items    []models.ProjectRequest `json:"items"`
}

// List returns requests, optionally filtered by status. Admin surface.
func (s *ProjectRequestService) List(req *RequestListRequest) (*RequestListResponse, error) {
	return s.list(req, 0)
}

// ListForUser returns the caller's own requests.
func (s *ProjectRequestService) ListForUser(userID uint, req *RequestListRequest) (*RequestListResponse, error) {
	return s.list(req, userID)
}

func (s *ProjectRequestService) list(req *RequestListRequest, requesterID uint) (*RequestListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.ProjectRequest{}).Preload("Requester")
	if requesterID != 0 {
		query = query.Where("requester_id = ?", requesterID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	query.Count(&total)

	var items []models.ProjectRequest
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.PageSize).
		Find(&items).Error; err != nil {
		return nil, err
	}

	return &RequestListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

func loadPendingRequest(tx *gorm.DB, requestID uint) (*models.ProjectRequest, error) {
	var request models.ProjectRequest
	if err := tx.First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project request not found")
		}
		return nil, err
	}
	if request.Status != models.RequestPending {
		return nil, response.NewConflict("request already " + request.Status)
	}
	return &request, nil
}
