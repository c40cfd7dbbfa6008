package services

import (
	"fmt"
	"testing"

	"github.com/ecostage/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory sqlite database and migrates the
// full schema. Each test gets its own database, named after the test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Device{},
		&models.CPUModel{},
		&models.GPUModel{},
		&models.RAMModel{},
		&models.PSUModel{},
		&models.ProjectStageInstance{},
		&models.ProjectMembership{},
		&models.ProjectStageProgress{},
		&models.Notification{},
		&models.ProjectRequest{},
		&models.WorkSession{},
		&models.RefreshToken{},
		&models.SystemConfig{},
		&models.SystemLog{},
		&models.SchedulerLock{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// createTestUser inserts a user with defaults suitable for membership tests.
func createTestUser(t *testing.T, db *gorm.DB, username, region string) *models.User {
	t.Helper()

	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Region:   region,
		Role:     "user",
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return &user
}

// createTestInstance inserts a live stage instance owned by ownerID.
func createTestInstance(t *testing.T, db *gorm.DB, groupID, stage string, ownerID uint) *models.ProjectStageInstance {
	t.Helper()

	inst := models.ProjectStageInstance{
		ProjectGroupID: groupID,
		Stage:          stage,
		Active:         liveMarker(),
		OwnerID:        ownerID,
		Name:           "Test Project",
		Status:         models.ProjectStatusInProgress,
		StageDuration:  14,
	}
	if err := db.Create(&inst).Error; err != nil {
		t.Fatalf("failed to create instance: %v", err)
	}
	return &inst
}

// addTestMember inserts a membership row.
func addTestMember(t *testing.T, db *gorm.DB, instanceID, userID uint, role string, progress *string) *models.ProjectMembership {
	t.Helper()

	m := models.ProjectMembership{
		InstanceID:     instanceID,
		UserID:         userID,
		Role:           role,
		ProgressStatus: progress,
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to create membership: %v", err)
	}
	return &m
}
