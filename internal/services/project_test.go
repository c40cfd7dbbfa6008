package services

import (
	"errors"
	"testing"
	"time"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/response"
)

func TestListForUser_OnlyOwnLiveProjects(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProjectService(db)

	owner := createTestUser(t, db, "owner", "us")
	alice := createTestUser(t, db, "alice", "us")

	mine := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	addTestMember(t, db, mine.ID, alice.ID, models.RoleMember, models.Progress(models.ProgressInProgress))

	// A project alice does not belong to.
	createTestInstance(t, db, "group-2", models.StageDesign, owner.ID)

	// An archived one she does.
	archived := createTestInstance(t, db, "group-3", models.StageDesign, owner.ID)
	addTestMember(t, db, archived.ID, alice.ID, models.RoleMember, models.Progress(models.ProgressInProgress))
	db.Model(archived).Updates(map[string]interface{}{
		"status": models.ProjectStatusArchived,
		"active": nil,
	})

	result, err := svc.ListForUser(alice.ID, &ProjectListRequest{})
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("total = %d, expected 1", result.Total)
	}
	if result.Items[0].ID != mine.ID {
		t.Errorf("listed instance = %d, expected %d", result.Items[0].ID, mine.ID)
	}
	if result.Items[0].Role != models.RoleMember {
		t.Errorf("role = %q, expected member", result.Items[0].Role)
	}
}

func TestListForUser_CreatorAppearsOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProjectService(db)

	creator := createTestUser(t, db, "creator", "us")
	inst := createTestInstance(t, db, "group-1", models.StageDesign, creator.ID)
	addTestMember(t, db, inst.ID, creator.ID, models.RoleOwner, nil)
	addTestMember(t, db, inst.ID, creator.ID, models.RoleLeader, models.Progress(models.ProgressInProgress))

	result, err := svc.ListForUser(creator.ID, &ProjectListRequest{})
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("total = %d, expected 1", result.Total)
	}
	if result.Items[0].Role != models.RoleLeader {
		t.Errorf("role = %q, expected the contributing leader row", result.Items[0].Role)
	}
}

func TestArchive_FreesTheStageSlot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProjectService(db)

	owner := createTestUser(t, db, "owner", "us")
	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)

	if err := svc.Archive(inst.ID, owner.ID); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	var archived models.ProjectStageInstance
	db.First(&archived, inst.ID)
	if archived.Status != models.ProjectStatusArchived {
		t.Errorf("status = %q, expected archived", archived.Status)
	}
	if archived.Active != nil {
		t.Error("archived instance must clear its active marker")
	}

	// The same (group, stage) slot can be occupied again.
	fresh := models.ProjectStageInstance{
		ProjectGroupID: "group-1",
		Stage:          models.StageDesign,
		Active:         liveMarker(),
		OwnerID:        owner.ID,
		Name:           "Test Project",
		Status:         models.ProjectStatusInProgress,
	}
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatalf("recreating an archived stage slot failed: %v", err)
	}
}

func TestArchive_OwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProjectService(db)

	owner := createTestUser(t, db, "owner", "us")
	alice := createTestUser(t, db, "alice", "us")
	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	addTestMember(t, db, inst.ID, alice.ID, models.RoleLeader, models.Progress(models.ProgressInProgress))

	err := svc.Archive(inst.ID, alice.ID)
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 403 {
		t.Errorf("leader archive should be forbidden, got %v", err)
	}
}

func TestUpdateTimeline_RecomputesDueDate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProjectService(db)

	owner := createTestUser(t, db, "owner", "us")
	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // a Monday
	db.Model(inst).Updates(map[string]interface{}{"stage_start_date": start})

	duration := 5
	updated, err := svc.UpdateTimeline(inst.ID, owner.ID, &UpdateTimelineRequest{
		StageDuration: &duration,
	})
	if err != nil {
		t.Fatalf("UpdateTimeline failed: %v", err)
	}
	if updated.StageDuration != 5 {
		t.Errorf("duration = %d, expected 5", updated.StageDuration)
	}

	var fresh models.ProjectStageInstance
	db.First(&fresh, inst.ID)
	// Five business days from Monday lands on the next Monday.
	if fresh.StageDueDate.Weekday() != time.Monday {
		t.Errorf("due date weekday = %v, expected Monday", fresh.StageDueDate.Weekday())
	}
}

func TestUpdateTimeline_DueBeforeStartRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProjectService(db)

	owner := createTestUser(t, db, "owner", "us")
	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	db.Model(inst).Update("stage_start_date", time.Now())

	past := time.Now().AddDate(0, 0, -7)
	_, err := svc.UpdateTimeline(inst.ID, owner.ID, &UpdateTimelineRequest{StageDueDate: &past})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 400 {
		t.Errorf("past due date should be rejected, got %v", err)
	}
}

func TestAdminDelete_CascadesButKeepsProgress(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProjectService(db)

	owner := createTestUser(t, db, "owner", "us")
	alice := createTestUser(t, db, "alice", "us")
	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	addTestMember(t, db, inst.ID, alice.ID, models.RoleMember, models.Progress(models.ProgressInProgress))
	db.Create(&models.Notification{
		SenderID:    owner.ID,
		RecipientID: alice.ID,
		InstanceID:  &inst.ID,
		Type:        models.NotificationTypeInvitation,
		Status:      models.NotificationRead,
	})
	db.Create(&models.ProjectStageProgress{
		ProjectGroupID: "group-1",
		UserID:         alice.ID,
		Stage:          models.StageDesign,
		Status:         models.StageProgressComplete,
	})

	if err := svc.AdminDelete(inst.ID); err != nil {
		t.Fatalf("AdminDelete failed: %v", err)
	}

	var instances, memberships, notifications, progress int64
	db.Model(&models.ProjectStageInstance{}).Where("id = ?", inst.ID).Count(&instances)
	db.Model(&models.ProjectMembership{}).Where("instance_id = ?", inst.ID).Count(&memberships)
	db.Model(&models.Notification{}).Where("instance_id = ?", inst.ID).Count(&notifications)
	db.Model(&models.ProjectStageProgress{}).Where("project_id = ?", "group-1").Count(&progress)

	if instances != 0 || memberships != 0 || notifications != 0 {
		t.Errorf("cascade incomplete: instances=%d memberships=%d notifications=%d",
			instances, memberships, notifications)
	}
	if progress != 1 {
		t.Error("stage progress history must survive instance deletion")
	}
}

func TestListGroup_ReturnsFullHistory(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProjectService(db)

	owner := createTestUser(t, db, "owner", "us")
	createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	createTestInstance(t, db, "group-1", models.StageDevelopment, owner.ID)

	items, err := svc.ListGroup("group-1")
	if err != nil {
		t.Fatalf("ListGroup failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("history length = %d, expected 2", len(items))
	}

	if _, err := svc.ListGroup("missing"); err == nil {
		t.Error("unknown group should be not found")
	}
}
