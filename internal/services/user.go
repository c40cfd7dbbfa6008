package services

import (
	"errors"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/internal/utils"
	"github.com/ecostage/backend/pkg/response"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UpdateProfileRequest struct {
	Nickname     *string `json:"nickname"`
	Organization *string `json:"organization"`
	Region       *string `json:"region"`
	Email        *string `json:"email" binding:"omitempty,email"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (s *UserService) GetByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies partial edits to the caller's own account.
func (s *UserService) UpdateProfile(userID uint, req *UpdateProfileRequest) (*models.User, error) {
	updates := map[string]interface{}{}
	if req.Nickname != nil {
		updates["nickname"] = *req.Nickname
	}
	if req.Organization != nil {
		updates["organization"] = *req.Organization
	}
	if req.Region != nil {
		updates["region"] = *req.Region
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if len(updates) == 0 {
		return s.GetByID(userID)
	}

	err := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("email already taken")
		}
		return nil, err
	}
	return s.GetByID(userID)
}

// ChangePassword verifies the old password before setting the new one.
func (s *UserService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	user, err := s.GetByID(userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return response.NewUnauthorized("old password is incorrect")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("password", hash).Error
}

type UserListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Keyword  string `form:"keyword"`
	Role     string `form:"role"`
}

type UserListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []models.User `json:"items"`
}

// List returns users for the admin console.
func (s *UserService) List(req *UserListRequest) (*UserListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.User{})
	if req.Keyword != "" {
		like := "%" + req.Keyword + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR nickname LIKE ?", like, like, like)
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}

	var total int64
	query.Count(&total)

	var items []models.User
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.PageSize).
		Find(&items).Error; err != nil {
		return nil, err
	}

	return &UserListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

// SetActive enables or disables an account. Admins cannot disable themselves.
func (s *UserService) SetActive(adminID, userID uint, active bool) error {
	if adminID == userID && !active {
		return response.NewBadRequest("cannot disable your own account")
	}

	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("user not found")
	}

	if !active {
		// Kill live sessions along with the account.
		s.db.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", userID).
			Update("revoked_at", gorm.Expr("CURRENT_TIMESTAMP"))
	}
	return nil
}

// Delete removes an account together with its devices, memberships, refresh
// tokens and notifications. Stage progress audit rows survive; an instance the
// user owned keeps its owner_id for history. Admins cannot delete themselves.
func (s *UserService) Delete(adminID, userID uint) error {
	if adminID == userID {
		return response.NewBadRequest("cannot delete your own account")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("user not found")
			}
			return err
		}

		if err := tx.Where("user_id = ?", userID).
			Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.ProjectMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().
			Where("recipient_id = ? OR sender_id = ?", userID, userID).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		// current_device_id references a device row; clear it first.
		if err := tx.Model(&user).Update("current_device_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.Device{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

// SetRole promotes or demotes an account.
func (s *UserService) SetRole(adminID, userID uint, role string) error {
	if role != "admin" && role != "user" {
		return response.NewBadRequest("unknown role: " + role)
	}
	if adminID == userID && role != "admin" {
		return response.NewBadRequest("cannot demote your own account")
	}

	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("user not found")
	}
	return nil
}
