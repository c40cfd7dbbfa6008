package services

import (
	"errors"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/response"
	"gorm.io/gorm"
)

// HardwareService serves the component catalog users pick devices from.
// Reads are open to any authenticated user; writes are admin-only.
type HardwareService struct {
	db *gorm.DB
}

func NewHardwareService(db *gorm.DB) *HardwareService {
	return &HardwareService{db: db}
}

type HardwareCatalog struct {
	CPUs []models.CPUModel `json:"cpus"`
	GPUs []models.GPUModel `json:"gpus"`
	RAMs []models.RAMModel `json:"rams"`
	PSUs []models.PSUModel `json:"psus"`
}

type HardwareModelRequest struct {
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category" binding:"required,oneof=desktop laptop"`
	AvgWatts float64 `json:"avg_watts" binding:"required,gt=0"`
}

// Catalog returns every component model, optionally filtered by category.
func (s *HardwareService) Catalog(category string) (*HardwareCatalog, error) {
	if category != "" && category != models.DeviceCategoryDesktop && category != models.DeviceCategoryLaptop {
		return nil, response.NewBadRequest("unknown category: " + category)
	}

	catalog := &HardwareCatalog{}
	scope := func(q *gorm.DB) *gorm.DB {
		if category != "" {
			return q.Where("category = ?", category)
		}
		return q
	}

	if err := scope(s.db.Order("name ASC")).Find(&catalog.CPUs).Error; err != nil {
		return nil, err
	}
	if err := scope(s.db.Order("name ASC")).Find(&catalog.GPUs).Error; err != nil {
		return nil, err
	}
	if err := scope(s.db.Order("name ASC")).Find(&catalog.RAMs).Error; err != nil {
		return nil, err
	}
	if err := scope(s.db.Order("name ASC")).Find(&catalog.PSUs).Error; err != nil {
		return nil, err
	}
	return catalog, nil
}

// CreateModel adds a catalog row of the given kind (cpu, gpu, ram, psu).
func (s *HardwareService) CreateModel(kind string, req *HardwareModelRequest) (interface{}, error) {
	model, err := hardwareModelFor(kind, req)
	if err != nil {
		return nil, err
	}
	if err := s.db.Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("model already exists for this category")
		}
		return nil, err
	}
	return model, nil
}

// UpdateModel edits a catalog row's name or wattage.
func (s *HardwareService) UpdateModel(kind string, id uint, req *HardwareModelRequest) error {
	target, err := emptyHardwareModel(kind)
	if err != nil {
		return err
	}

	result := s.db.Model(target).Where("id = ?", id).Updates(map[string]interface{}{
		"name":      req.Name,
		"category":  req.Category,
		"avg_watts": req.AvgWatts,
	})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return response.NewConflict("model already exists for this category")
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("hardware model not found")
	}
	return nil
}

// DeleteModel removes a catalog row unless a device still references it.
func (s *HardwareService) DeleteModel(kind string, id uint) error {
	target, err := emptyHardwareModel(kind)
	if err != nil {
		return err
	}

	var inUse int64
	refColumn := kind + "_model_id"
	if err := s.db.Model(&models.Device{}).Where(refColumn+" = ?", id).Count(&inUse).Error; err != nil {
		return err
	}
	if inUse > 0 {
		return response.NewConflict("model is referenced by existing devices")
	}

	result := s.db.Where("id = ?", id).Delete(target)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("hardware model not found")
	}
	return nil
}

func hardwareModelFor(kind string, req *HardwareModelRequest) (interface{}, error) {
	switch kind {
	case "cpu":
		return &models.CPUModel{Name: req.Name, Category: req.Category, AvgWatts: req.AvgWatts}, nil
	case "gpu":
		return &models.GPUModel{Name: req.Name, Category: req.Category, AvgWatts: req.AvgWatts}, nil
	case "ram":
		return &models.RAMModel{Name: req.Name, Category: req.Category, AvgWatts: req.AvgWatts}, nil
	case "psu":
		return &models.PSUModel{Name: req.Name, Category: req.Category, AvgWatts: req.AvgWatts}, nil
	default:
		return nil, response.NewBadRequest("unknown hardware kind: " + kind)
	}
}

func emptyHardwareModel(kind string) (interface{}, error) {
	switch kind {
	case "cpu":
		return &models.CPUModel{}, nil
	case "gpu":
		return &models.GPUModel{}, nil
	case "ram":
		return &models.RAMModel{}, nil
	case "psu":
		return &models.PSUModel{}, nil
	default:
		return nil, response.NewBadRequest("unknown hardware kind: " + kind)
	}
}
