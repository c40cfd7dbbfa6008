package services

import (
	"errors"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/response"
	"gorm.io/gorm"
)

type DeviceService struct {
	db *gorm.DB
}

func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{db: db}
}

type CreateDeviceRequest struct {
	Name       string `json:"name" binding:"required"`
	Category   string `json:"category" binding:"required,oneof=desktop laptop"`
	CPUModelID uint   `json:"cpu_model_id" binding:"required"`
	GPUModelID uint   `json:"gpu_model_id" binding:"required"`
	RAMModelID uint   `json:"ram_model_id" binding:"required"`
	PSUModelID uint   `json:"psu_model_id" binding:"required"`
	RAMCount   int    `json:"ram_count" binding:"omitempty,min=1"`
	MakeActive bool   `json:"make_active"`
}

type UpdateDeviceRequest struct {
	Name       *string `json:"name"`
	CPUModelID *uint   `json:"cpu_model_id"`
	GPUModelID *uint   `json:"gpu_model_id"`
	RAMModelID *uint   `json:"ram_model_id"`
	PSUModelID *uint   `json:"psu_model_id"`
	RAMCount   *int    `json:"ram_count" binding:"omitempty,min=1"`
}

// List returns the caller's devices with components preloaded.
func (s *DeviceService) List(userID uint) ([]models.Device, error) {
	var devices []models.Device
	err := s.db.Where("user_id = ?", userID).
		Preload("CPUModel").Preload("GPUModel").Preload("RAMModel").Preload("PSUModel").
		Order("created_at ASC").
		Find(&devices).Error
	return devices, err
}

// Create adds a device to the caller's inventory.
func (s *DeviceService) Create(userID uint, req *CreateDeviceRequest) (*models.Device, error) {
	ramCount := req.RAMCount
	if ramCount == 0 {
		ramCount = 1
	}

	device := models.Device{
		UserID:     userID,
		Name:       req.Name,
		Category:   req.Category,
		CPUModelID: req.CPUModelID,
		GPUModelID: req.GPUModelID,
		RAMModelID: req.RAMModelID,
		PSUModelID: req.PSUModelID,
		RAMCount:   ramCount,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		rd := RegisterDevice{
			Category:   req.Category,
			CPUModelID: req.CPUModelID,
			GPUModelID: req.GPUModelID,
			RAMModelID: req.RAMModelID,
			PSUModelID: req.PSUModelID,
		}
		if err := validateHardwareRefs(tx, &rd); err != nil {
			return err
		}
		if err := tx.Create(&device).Error; err != nil {
			return err
		}
		if req.MakeActive {
			return tx.Model(&models.User{}).Where("id = ?", userID).
				Update("current_device_id", device.ID).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// Update edits a device the caller owns. Category is immutable because the
// component catalogs are split by category.
func (s *DeviceService) Update(userID, deviceID uint, req *UpdateDeviceRequest) (*models.Device, error) {
	var device models.Device
	if err := s.db.Where("id = ? AND user_id = ?", deviceID, userID).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("device not found")
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.CPUModelID != nil {
		updates["cpu_model_id"] = *req.CPUModelID
	}
	if req.GPUModelID != nil {
		updates["gpu_model_id"] = *req.GPUModelID
	}
	if req.RAMModelID != nil {
		updates["ram_model_id"] = *req.RAMModelID
	}
	if req.PSUModelID != nil {
		updates["psu_model_id"] = *req.PSUModelID
	}
	if req.RAMCount != nil {
		updates["ram_count"] = *req.RAMCount
	}

	if len(updates) > 0 {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			rd := RegisterDevice{
				Category:   device.Category,
				CPUModelID: pick(req.CPUModelID, device.CPUModelID),
				GPUModelID: pick(req.GPUModelID, device.GPUModelID),
				RAMModelID: pick(req.RAMModelID, device.RAMModelID),
				PSUModelID: pick(req.PSUModelID, device.PSUModelID),
			}
			if err := validateHardwareRefs(tx, &rd); err != nil {
				return err
			}
			return tx.Model(&device).Updates(updates).Error
		})
		if err != nil {
			return nil, err
		}
	}

	s.db.Preload("CPUModel").Preload("GPUModel").Preload("RAMModel").Preload("PSUModel").
		First(&device, device.ID)
	return &device, nil
}

// SetCurrent switches the caller's active device.
func (s *DeviceService) SetCurrent(userID, deviceID uint) error {
	var count int64
	if err := s.db.Model(&models.Device{}).
		Where("id = ? AND user_id = ?", deviceID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return response.NewNotFound("device not found")
	}
	return s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("current_device_id", deviceID).Error
}

// Delete removes a device. The current device cannot be deleted; switch
// first so sessions always have a wattage profile to draw on.
func (s *DeviceService) Delete(userID, deviceID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		if user.CurrentDeviceID != nil && *user.CurrentDeviceID == deviceID {
			return response.NewConflict("cannot delete the current device; switch devices first")
		}

		result := tx.Where("id = ? AND user_id = ?", deviceID, userID).Delete(&models.Device{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.NewNotFound("device not found")
		}
		return nil
	})
}

func pick(override *uint, current uint) uint {
	if override != nil {
		return *override
	}
	return current
}
