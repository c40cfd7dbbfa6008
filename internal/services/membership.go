package services

import (
	"errors"
	"fmt"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/logger"
	"github.com/ecostage/backend/pkg/response"
	"gorm.io/gorm"
)

// MembershipService manages how users join and leave project stage instances:
// invitations, invitation responses, direct admin adds and removals.
type MembershipService struct {
	db     *gorm.DB
	mailer *Mailer
}

func NewMembershipService(db *gorm.DB, mailer *Mailer) *MembershipService {
	return &MembershipService{db: db, mailer: mailer}
}

type InviteRequest struct {
	RecipientEmail string `json:"recipient_email" binding:"required,email"`
	InstanceID     uint   `json:"instance_id" binding:"required"`
	Message        string `json:"message"`
}

type RespondRequest struct {
	Response string `json:"response" binding:"required,oneof=accepted rejected"`
}

type AddMemberRequest struct {
	UserEmail string `json:"user_email" binding:"required,email"`
	Role      string `json:"role" binding:"omitempty,oneof=leader member"`
}

// Invite creates an invitation notification for the recipient. No membership
// exists until the invitation is accepted.
func (s *MembershipService) Invite(senderID uint, req *InviteRequest) (*models.Notification, error) {
	var notification *models.Notification
	err := s.db.Transaction(func(tx *gorm.DB) error {
		instance, err := loadJoinableInstance(tx, req.InstanceID)
		if err != nil {
			return err
		}

		var senderCount int64
		if err := tx.Model(&models.ProjectMembership{}).
			Where("instance_id = ? AND user_id = ?", req.InstanceID, senderID).
			Count(&senderCount).Error; err != nil {
			return err
		}
		if senderCount == 0 && instance.OwnerID != senderID {
			return response.NewForbidden("only members can invite to this project")
		}

		var recipient models.User
		if err := tx.Where("email = ?", req.RecipientEmail).First(&recipient).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("no user with that email")
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.ProjectMembership{}).
			Where("instance_id = ? AND user_id = ?", req.InstanceID, recipient.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return response.NewConflict("user is already a member")
		}

		n := models.Notification{
			SenderID:    senderID,
			RecipientID: recipient.ID,
			InstanceID:  &instance.ID,
			Type:        models.NotificationTypeInvitation,
			Message:     req.Message,
			Status:      models.NotificationUnread,
		}
		if err := tx.Create(&n).Error; err != nil {
			return err
		}
		notification = &n

		s.mailer.QueueMail(recipient.Email,
			fmt.Sprintf("Invitation to join %s", instance.Name),
			fmt.Sprintf("You have been invited to the project %q (%s stage). Log in to respond.",
				instance.Name, instance.Stage))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notification, nil
}

// Respond records the recipient's answer to an invitation. Accepting creates
// a member-role membership on the target instance; membership uniqueness makes
// a repeated accept a no-op rather than a duplicate row.
func (s *MembershipService) Respond(notificationID, recipientID uint, req *RespondRequest) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var n models.Notification
		if err := tx.Where("id = ? AND recipient_id = ?", notificationID, recipientID).
			First(&n).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("notification not found")
			}
			return err
		}
		if n.Type != models.NotificationTypeInvitation {
			return response.NewBadRequest("notification is not an invitation")
		}

		if n.Response != nil {
			if *n.Response == req.Response {
				return nil // repeated identical response is a no-op
			}
			return response.NewConflict("invitation already answered")
		}

		if err := tx.Model(&n).Updates(map[string]interface{}{
			"status":   models.NotificationRead,
			"response": req.Response,
		}).Error; err != nil {
			return err
		}

		if req.Response != models.ResponseAccepted {
			return nil
		}
		if n.InstanceID == nil {
			return response.NewBadRequest("invitation has no target project")
		}

		instance, err := loadJoinableInstance(tx, *n.InstanceID)
		if err != nil {
			return err
		}

		var already int64
		if err := tx.Model(&models.ProjectMembership{}).
			Where("instance_id = ? AND user_id = ?", instance.ID, recipientID).
			Count(&already).Error; err != nil {
			return err
		}
		if already > 0 {
			return nil // already a member; accept stays idempotent
		}

		membership := models.ProjectMembership{
			InstanceID:     instance.ID,
			UserID:         recipientID,
			Role:           models.RoleMember,
			CurrentStage:   instance.Stage,
			ProgressStatus: models.Progress(models.ProgressNotStarted),
		}
		if err := tx.Create(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil // already a member; accept stays idempotent
			}
			return err
		}

		logger.Info().
			Uint("instance_id", instance.ID).
			Uint("user_id", recipientID).
			Msg("invitation accepted, membership created")
		return nil
	})
}

// AddMember directly attaches a user to an instance (admin path). Fails with
// Conflict when a membership already exists.
func (s *MembershipService) AddMember(instanceID uint, req *AddMemberRequest) (*models.ProjectMembership, error) {
	role := req.Role
	if role == "" {
		role = models.RoleMember
	}

	var membership *models.ProjectMembership
	err := s.db.Transaction(func(tx *gorm.DB) error {
		instance, err := loadJoinableInstance(tx, instanceID)
		if err != nil {
			return err
		}

		var user models.User
		if err := tx.Where("email = ?", req.UserEmail).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("no user with that email")
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.ProjectMembership{}).
			Where("instance_id = ? AND user_id = ?", instance.ID, user.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return response.NewConflict("user already has a membership on this instance")
		}

		row := models.ProjectMembership{
			InstanceID:     instance.ID,
			UserID:         user.ID,
			Role:           role,
			CurrentStage:   instance.Stage,
			ProgressStatus: models.Progress(models.ProgressNotStarted),
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return response.NewConflict("user already has a membership on this instance")
			}
			return err
		}
		membership = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// loadJoinableInstance fetches an instance the roster may still grow on.
// A complete stage is terminal; late joiners would re-open its collective
// completion, so they are refused.
func loadJoinableInstance(tx *gorm.DB, instanceID uint) (*models.ProjectStageInstance, error) {
	instance, err := loadLiveInstance(tx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Status == models.ProjectStatusComplete {
		return nil, response.NewConflict("project stage is already complete")
	}
	return instance, nil
}

// RemoveMember deletes the (instance, user) membership row. Stage progress
// audit rows are left untouched; history survives the roster change.
func (s *MembershipService) RemoveMember(instanceID, userID uint) error {
	result := s.db.Where("instance_id = ? AND user_id = ?", instanceID, userID).
		Delete(&models.ProjectMembership{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("membership not found")
	}
	return nil
}

// ListMembers returns the roster of an instance with user details.
func (s *MembershipService) ListMembers(instanceID uint) ([]models.ProjectMembership, error) {
	if _, err := loadLiveInstance(s.db, instanceID); err != nil {
		return nil, err
	}
	var members []models.ProjectMembership
	if err := s.db.Preload("User").
		Where("instance_id = ?", instanceID).
		Order("role, created_at").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
