package services

import (
	"errors"
	"strconv"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/logger"
	"github.com/ecostage/backend/pkg/response"
	"gorm.io/gorm"
)

// DefaultCarbonFactor converts watt-hours to grams CO2e when the user's
// region is not in the table.
const DefaultCarbonFactor = 0.412

// carbonFactors maps lowercase region codes to gCO2e per Wh. Sourced from
// published grid-intensity averages; coarse by design.
var carbonFactors = map[string]float64{
	"us": 0.386,
	"ca": 0.130,
	"uk": 0.225,
	"de": 0.380,
	"fr": 0.056,
	"se": 0.012,
	"no": 0.019,
	"cn": 0.555,
	"in": 0.708,
	"jp": 0.462,
	"kr": 0.459,
	"au": 0.656,
	"br": 0.090,
	"za": 0.900,
}

// EmissionService estimates the energy and carbon cost of work sessions and
// folds them into the owning stage instance's running totals.
type EmissionService struct {
	db *gorm.DB
}

func NewEmissionService(db *gorm.DB) *EmissionService {
	return &EmissionService{db: db}
}

type AccrueEmissionRequest struct {
	DurationSeconds int64 `json:"duration_seconds" binding:"required,min=1"`
}

type AccrueEmissionResult struct {
	SessionID    uint    `json:"session_id"`
	InstanceID   uint    `json:"instance_id"`
	EnergyWh     float64 `json:"energy_wh"`
	CarbonDelta  float64 `json:"carbon_delta"`
	CarbonFactor float64 `json:"carbon_factor"`
	DeviceWatts  float64 `json:"device_watts"`
}

// CarbonFactorForRegion returns the grid factor for a region code, or the
// configured fallback when the region is unknown.
func (s *EmissionService) CarbonFactorForRegion(region string) float64 {
	if f, ok := carbonFactors[region]; ok {
		return f
	}
	return s.defaultFactor()
}

func (s *EmissionService) defaultFactor() float64 {
	var cfg models.SystemConfig
	if err := s.db.Where("key = ?", "default_carbon_factor").First(&cfg).Error; err != nil {
		return DefaultCarbonFactor
	}
	if f, err := strconv.ParseFloat(cfg.Value, 64); err == nil && f > 0 {
		return f
	}
	return DefaultCarbonFactor
}

// DeviceWatts sums the average component draw of a device. RAM counts per
// installed module.
func DeviceWatts(device *models.Device) float64 {
	var watts float64
	if device.CPUModel != nil {
		watts += device.CPUModel.AvgWatts
	}
	if device.GPUModel != nil {
		watts += device.GPUModel.AvgWatts
	}
	if device.RAMModel != nil {
		n := device.RAMCount
		if n < 1 {
			n = 1
		}
		watts += device.RAMModel.AvgWatts * float64(n)
	}
	if device.PSUModel != nil {
		watts += device.PSUModel.AvgWatts
	}
	return watts
}

// Accrue computes the energy and carbon for one work session on the caller's
// current device and adds it to the instance's running totals. The increments
// are relative updates so concurrent sessions from different members never
// lose writes. Caller must be owner or member of the instance.
func (s *EmissionService) Accrue(instanceID, userID uint, req *AccrueEmissionRequest) (*AccrueEmissionResult, error) {
	var result *AccrueEmissionResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		instance, err := loadLiveInstance(tx, instanceID)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.ProjectMembership{}).
			Where("instance_id = ? AND user_id = ?", instanceID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 && instance.OwnerID != userID {
			return response.NewForbidden("not a member of this project")
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		if user.CurrentDeviceID == nil {
			return response.NewBadRequest("no current device registered")
		}

		var device models.Device
		if err := tx.
			Preload("CPUModel").Preload("GPUModel").
			Preload("RAMModel").Preload("PSUModel").
			First(&device, *user.CurrentDeviceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("current device not found")
			}
			return err
		}

		watts := DeviceWatts(&device)
		energyWh := watts / 3600.0 * float64(req.DurationSeconds)
		factor := s.CarbonFactorForRegion(user.Region)
		delta := energyWh * factor

		// Relative increments; never read-modify-write.
		if err := tx.Model(&models.ProjectStageInstance{}).
			Where("id = ?", instanceID).
			UpdateColumns(map[string]interface{}{
				"carbon_emit":      gorm.Expr("carbon_emit + ?", delta),
				"session_duration": gorm.Expr("session_duration + ?", req.DurationSeconds),
			}).Error; err != nil {
			return err
		}

		session := models.WorkSession{
			InstanceID:   instanceID,
			UserID:       userID,
			DeviceID:     device.ID,
			Duration:     req.DurationSeconds,
			EnergyWh:     energyWh,
			CarbonEmit:   delta,
			CarbonFactor: factor,
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		result = &AccrueEmissionResult{
			SessionID:    session.ID,
			InstanceID:   instanceID,
			EnergyWh:     energyWh,
			CarbonDelta:  delta,
			CarbonFactor: factor,
			DeviceWatts:  watts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Uint("instance_id", instanceID).
		Uint("user_id", userID).
		Float64("carbon_delta", result.CarbonDelta).
		Msg("emission accrued")

	return result, nil
}

type SessionListRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

type SessionListResponse struct {
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Items    []models.WorkSession `json:"items"`
}

// ListSessions returns the accrual audit rows for an instance, newest first.
func (s *EmissionService) ListSessions(instanceID uint, req *SessionListRequest) (*SessionListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.WorkSession{}).Where("instance_id = ?", instanceID)

	var total int64
	query.Count(&total)

	var items []models.WorkSession
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.PageSize).
		Find(&items).Error; err != nil {
		return nil, err
	}

	return &SessionListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}
