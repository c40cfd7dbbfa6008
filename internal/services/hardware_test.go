package services

import (
	"errors"
	"testing"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/response"
)

func TestHardwareCatalog_CategoryFilter(t *testing.T) {
	db := setupTestDB(t)
	svc := NewHardwareService(db)

	db.Create(&models.CPUModel{Name: "Desktop CPU", Category: models.DeviceCategoryDesktop, AvgWatts: 65})
	db.Create(&models.CPUModel{Name: "Laptop CPU", Category: models.DeviceCategoryLaptop, AvgWatts: 15})

	catalog, err := svc.Catalog(models.DeviceCategoryLaptop)
	if err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}
	if len(catalog.CPUs) != 1 || catalog.CPUs[0].Name != "Laptop CPU" {
		t.Errorf("laptop catalog wrong: %+v", catalog.CPUs)
	}

	all, err := svc.Catalog("")
	if err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}
	if len(all.CPUs) != 2 {
		t.Errorf("unfiltered cpus = %d, expected 2", len(all.CPUs))
	}

	if _, err := svc.Catalog("server"); err == nil {
		t.Error("unknown category should be rejected")
	}
}

func TestHardware_CreateUpdateDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewHardwareService(db)

	created, err := svc.CreateModel("gpu", &HardwareModelRequest{
		Name:     "RTX 5080",
		Category: models.DeviceCategoryDesktop,
		AvgWatts: 220,
	})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}
	gpu := created.(*models.GPUModel)

	// Duplicate (name, category) conflicts.
	_, err = svc.CreateModel("gpu", &HardwareModelRequest{
		Name:     "RTX 5080",
		Category: models.DeviceCategoryDesktop,
		AvgWatts: 220,
	})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("duplicate model should conflict, got %v", err)
	}

	if err := svc.UpdateModel("gpu", gpu.ID, &HardwareModelRequest{
		Name:     "RTX 5080",
		Category: models.DeviceCategoryDesktop,
		AvgWatts: 240,
	}); err != nil {
		t.Fatalf("UpdateModel failed: %v", err)
	}

	if err := svc.DeleteModel("gpu", gpu.ID); err != nil {
		t.Fatalf("DeleteModel failed: %v", err)
	}
	if err := svc.DeleteModel("gpu", gpu.ID); err == nil {
		t.Error("deleting a missing model should fail")
	}

	if _, err := svc.CreateModel("motherboard", &HardwareModelRequest{
		Name: "X", Category: models.DeviceCategoryDesktop, AvgWatts: 1,
	}); err == nil {
		t.Error("unknown hardware kind should be rejected")
	}
}

func TestHardware_DeleteReferencedModelRefused(t *testing.T) {
	db := setupTestDB(t)
	svc := NewHardwareService(db)

	alice := createTestUser(t, db, "alice", "us")
	device := seedTestDevice(t, db, alice.ID)

	err := svc.DeleteModel("cpu", device.CPUModelID)
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("deleting a referenced model should conflict, got %v", err)
	}
}
