package services

import (
	"errors"
	"testing"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/internal/utils"
	"github.com/ecostage/backend/pkg/response"
)

func TestUpdateProfile_PartialEdits(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)
	alice := createTestUser(t, db, "alice", "us")

	nickname := "Ally"
	region := "fr"
	updated, err := svc.UpdateProfile(alice.ID, &UpdateProfileRequest{
		Nickname: &nickname,
		Region:   &region,
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Nickname != "Ally" || updated.Region != "fr" {
		t.Errorf("profile not updated: %+v", updated)
	}
	if updated.Email != alice.Email {
		t.Error("untouched fields must survive a partial edit")
	}
}

func TestChangePassword_RequiresOldPassword(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	hash, _ := utils.HashPassword("original1")
	alice := models.User{Username: "alice", Email: "alice@example.com", Password: hash, Role: "user", IsActive: true}
	db.Create(&alice)

	err := svc.ChangePassword(alice.ID, &ChangePasswordRequest{OldPassword: "wrong", NewPassword: "replacement1"})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 401 {
		t.Errorf("wrong old password should be unauthorized, got %v", err)
	}

	if err := svc.ChangePassword(alice.ID, &ChangePasswordRequest{OldPassword: "original1", NewPassword: "replacement1"}); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	var stored models.User
	db.First(&stored, alice.ID)
	if !utils.CheckPassword("replacement1", stored.Password) {
		t.Error("new password not stored")
	}
}

func TestSetActive_SelfDisableRefused(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	admin := createTestUser(t, db, "admin", "us")
	alice := createTestUser(t, db, "alice", "us")

	err := svc.SetActive(admin.ID, admin.ID, false)
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 400 {
		t.Errorf("self-disable should be refused, got %v", err)
	}

	if err := svc.SetActive(admin.ID, alice.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	var stored models.User
	db.First(&stored, alice.ID)
	if stored.IsActive {
		t.Error("account should be disabled")
	}
}

func TestSetRole_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	admin := createTestUser(t, db, "admin", "us")
	alice := createTestUser(t, db, "alice", "us")

	if err := svc.SetRole(admin.ID, alice.ID, "superuser"); err == nil {
		t.Error("unknown role should be refused")
	}
	if err := svc.SetRole(admin.ID, admin.ID, "user"); err == nil {
		t.Error("self-demotion should be refused")
	}
	if err := svc.SetRole(admin.ID, alice.ID, "admin"); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}

	var stored models.User
	db.First(&stored, alice.ID)
	if stored.Role != "admin" {
		t.Errorf("role = %q, expected admin", stored.Role)
	}
}

func TestDelete_CascadesOwnedRows(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	admin := createTestUser(t, db, "admin", "us")
	alice := createTestUser(t, db, "alice", "us")
	seedTestDevice(t, db, alice.ID)

	inst := createTestInstance(t, db, "group-1", models.StageDesign, admin.ID)
	addTestMember(t, db, inst.ID, alice.ID, models.RoleMember, models.Progress(models.ProgressInProgress))
	db.Create(&models.Notification{SenderID: admin.ID, RecipientID: alice.ID, Type: models.NotificationTypeStageDueReminder})
	db.Create(&models.ProjectStageProgress{ProjectGroupID: "group-1", UserID: alice.ID, Stage: models.StageDesign, Status: models.StageProgressComplete})

	if err := svc.Delete(admin.ID, admin.ID); err == nil {
		t.Error("self-deletion should be refused")
	}
	if err := svc.Delete(admin.ID, alice.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var users, devices, memberships, notifications, progress int64
	db.Model(&models.User{}).Where("id = ?", alice.ID).Count(&users)
	db.Model(&models.Device{}).Where("user_id = ?", alice.ID).Count(&devices)
	db.Model(&models.ProjectMembership{}).Where("user_id = ?", alice.ID).Count(&memberships)
	db.Model(&models.Notification{}).Where("recipient_id = ?", alice.ID).Count(&notifications)
	db.Model(&models.ProjectStageProgress{}).Where("user_id = ?", alice.ID).Count(&progress)

	if users != 0 || devices != 0 || memberships != 0 || notifications != 0 {
		t.Errorf("cascade incomplete: users=%d devices=%d memberships=%d notifications=%d",
			users, devices, memberships, notifications)
	}
	if progress != 1 {
		t.Errorf("stage progress history must survive, got %d rows", progress)
	}
}

func TestUserList_KeywordFilter(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	createTestUser(t, db, "alice", "us")
	createTestUser(t, db, "bob", "us")

	result, err := svc.List(&UserListRequest{Keyword: "ali"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("filtered total = %d, expected 1", result.Total)
	}
}
