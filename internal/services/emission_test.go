package services

import (
	"errors"
	"math"
	"testing"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/response"
	"gorm.io/gorm"
)

// seedTestDevice creates a 250W desktop (100W CPU, 100W GPU, 2x20W RAM,
// 10W PSU) and marks it as the user's current device.
func seedTestDevice(t *testing.T, db *gorm.DB, userID uint) *models.Device {
	t.Helper()

	cpu := models.CPUModel{Name: "Test CPU", Category: models.DeviceCategoryDesktop, AvgWatts: 100}
	gpu := models.GPUModel{Name: "Test GPU", Category: models.DeviceCategoryDesktop, AvgWatts: 100}
	ram := models.RAMModel{Name: "Test RAM", Category: models.DeviceCategoryDesktop, AvgWatts: 20}
	psu := models.PSUModel{Name: "Test PSU", Category: models.DeviceCategoryDesktop, AvgWatts: 10}
	for _, m := range []interface{}{&cpu, &gpu, &ram, &psu} {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("failed to seed hardware: %v", err)
		}
	}

	device := models.Device{
		UserID:     userID,
		Name:       "workstation",
		Category:   models.DeviceCategoryDesktop,
		CPUModelID: cpu.ID,
		GPUModelID: gpu.ID,
		RAMModelID: ram.ID,
		PSUModelID: psu.ID,
		RAMCount:   2,
	}
	if err := db.Create(&device).Error; err != nil {
		t.Fatalf("failed to create device: %v", err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", userID).
		Update("current_device_id", device.ID).Error; err != nil {
		t.Fatalf("failed to set current device: %v", err)
	}
	return &device
}

func TestAccrue_ComputesEnergyAndCarbon(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEmissionService(db)

	owner := createTestUser(t, db, "owner", "")
	alice := createTestUser(t, db, "alice", "atlantis") // unknown region, default factor
	seedTestDevice(t, db, alice.ID)

	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	addTestMember(t, db, inst.ID, alice.ID, models.RoleMember, models.Progress(models.ProgressInProgress))

	result, err := svc.Accrue(inst.ID, alice.ID, &AccrueEmissionRequest{DurationSeconds: 3600})
	if err != nil {
		t.Fatalf("Accrue failed: %v", err)
	}

	// 250W for one hour is 250 Wh; 250 * 0.412 = 103 gCO2e.
	if math.Abs(result.DeviceWatts-250) > 1e-9 {
		t.Errorf("watts = %v, expected 250", result.DeviceWatts)
	}
	if math.Abs(result.EnergyWh-250) > 1e-9 {
		t.Errorf("energy = %v, expected 250", result.EnergyWh)
	}
	if math.Abs(result.CarbonDelta-103.0) > 1e-9 {
		t.Errorf("carbon = %v, expected 103.0", result.CarbonDelta)
	}
	if result.CarbonFactor != DefaultCarbonFactor {
		t.Errorf("factor = %v, expected default %v", result.CarbonFactor, DefaultCarbonFactor)
	}

	var updated models.ProjectStageInstance
	db.First(&updated, inst.ID)
	if math.Abs(updated.CarbonEmit-103.0) > 1e-9 {
		t.Errorf("instance carbon = %v, expected 103.0", updated.CarbonEmit)
	}
	if updated.SessionDuration != 3600 {
		t.Errorf("instance duration = %d, expected 3600", updated.SessionDuration)
	}
}

func TestAccrue_IncrementsAreAdditive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEmissionService(db)

	owner := createTestUser(t, db, "owner", "")
	alice := createTestUser(t, db, "alice", "fr")
	seedTestDevice(t, db, alice.ID)

	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	addTestMember(t, db, inst.ID, alice.ID, models.RoleMember, models.Progress(models.ProgressInProgress))

	for i := 0; i < 3; i++ {
		if _, err := svc.Accrue(inst.ID, alice.ID, &AccrueEmissionRequest{DurationSeconds: 1800}); err != nil {
			t.Fatalf("Accrue %d failed: %v", i, err)
		}
	}

	// 125 Wh per half hour at the French factor 0.056, three times over.
	want := 3 * 125.0 * 0.056
	var updated models.ProjectStageInstance
	db.First(&updated, inst.ID)
	if math.Abs(updated.CarbonEmit-want) > 1e-9 {
		t.Errorf("instance carbon = %v, expected %v", updated.CarbonEmit, want)
	}
	if updated.SessionDuration != 5400 {
		t.Errorf("instance duration = %d, expected 5400", updated.SessionDuration)
	}

	var sessions int64
	db.Model(&models.WorkSession{}).Where("instance_id = ?", inst.ID).Count(&sessions)
	if sessions != 3 {
		t.Errorf("work sessions = %d, expected 3", sessions)
	}
}

func TestAccrue_OwnerWithoutMembershipRow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEmissionService(db)

	owner := createTestUser(t, db, "owner", "us")
	seedTestDevice(t, db, owner.ID)

	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)

	if _, err := svc.Accrue(inst.ID, owner.ID, &AccrueEmissionRequest{DurationSeconds: 60}); err != nil {
		t.Fatalf("owner accrual failed: %v", err)
	}
}

func TestAccrue_Rejections(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEmissionService(db)

	owner := createTestUser(t, db, "owner", "us")
	alice := createTestUser(t, db, "alice", "us") // no device
	outsider := createTestUser(t, db, "outsider", "us")
	seedTestDevice(t, db, outsider.ID)

	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	addTestMember(t, db, inst.ID, alice.ID, models.RoleMember, models.Progress(models.ProgressInProgress))

	_, err := svc.Accrue(inst.ID, outsider.ID, &AccrueEmissionRequest{DurationSeconds: 60})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 403 {
		t.Errorf("outsider should be forbidden, got %v", err)
	}

	_, err = svc.Accrue(inst.ID, alice.ID, &AccrueEmissionRequest{DurationSeconds: 60})
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 400 {
		t.Errorf("member without a current device should be rejected, got %v", err)
	}
}

func TestCarbonFactorForRegion(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEmissionService(db)

	if f := svc.CarbonFactorForRegion("fr"); f != 0.056 {
		t.Errorf("fr factor = %v, expected 0.056", f)
	}
	if f := svc.CarbonFactorForRegion("nowhere"); f != DefaultCarbonFactor {
		t.Errorf("unknown region factor = %v, expected default", f)
	}

	// A configured override replaces the compiled-in default.
	db.Create(&models.SystemConfig{Key: "default_carbon_factor", Value: "0.5", Type: "float", Group: "emission"})
	if f := svc.CarbonFactorForRegion("nowhere"); f != 0.5 {
		t.Errorf("configured factor = %v, expected 0.5", f)
	}
}

func TestDeviceWatts_RAMCountMultiplies(t *testing.T) {
	device := &models.Device{
		CPUModel: &models.CPUModel{AvgWatts: 65},
		GPUModel: &models.GPUModel{AvgWatts: 170},
		RAMModel: &models.RAMModel{AvgWatts: 4},
		PSUModel: &models.PSUModel{AvgWatts: 30},
		RAMCount: 4,
	}
	if w := DeviceWatts(device); w != 65+170+16+30 {
		t.Errorf("watts = %v, expected 281", w)
	}

	device.RAMCount = 0 // unset count reads as one module
	if w := DeviceWatts(device); w != 65+170+4+30 {
		t.Errorf("watts = %v, expected 269", w)
	}
}
