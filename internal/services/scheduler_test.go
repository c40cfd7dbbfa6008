package services

import (
	"testing"
	"time"

	"github.com/ecostage/backend/internal/models"
)

func TestSchedulerLock_SingleWinnerPerPeriod(t *testing.T) {
	db := setupTestDB(t)
	a := NewSchedulerService(db, nil, NewSystemLogService(db))
	b := NewSchedulerService(db, nil, NewSystemLogService(db))

	if !a.tryAcquireLock("sweep", "2026-08-25", time.Hour) {
		t.Fatal("first acquire should win")
	}
	if b.tryAcquireLock("sweep", "2026-08-25", time.Hour) {
		t.Error("second acquire for the same period must lose")
	}

	// A different period is a different lock.
	if !b.tryAcquireLock("sweep", "2026-08-26", time.Hour) {
		t.Error("acquire for a new period should win")
	}
}

func TestSchedulerLock_ExpiredLocksAreReaped(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSchedulerService(db, nil, NewSystemLogService(db))

	db.Create(&models.SchedulerLock{
		LockName:  "sweep",
		LockKey:   "2026-08-25",
		LockedBy:  "dead-instance",
		LockedAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	})

	if !svc.tryAcquireLock("sweep", "2026-08-25", time.Hour) {
		t.Error("an expired lock must not block acquisition")
	}
}

func TestSendDueReminders_NotifiesPendingContributors(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSchedulerService(db, nil, NewSystemLogService(db))

	owner := createTestUser(t, db, "owner", "us")
	alice := createTestUser(t, db, "alice", "us")
	bob := createTestUser(t, db, "bob", "us")

	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	db.Model(inst).Update("stage_due_date", time.Now().AddDate(0, 0, 1))

	addTestMember(t, db, inst.ID, owner.ID, models.RoleOwner, nil)
	addTestMember(t, db, inst.ID, alice.ID, models.RoleMember, models.Progress(models.ProgressInProgress))
	addTestMember(t, db, inst.ID, bob.ID, models.RoleMember, models.Progress(models.ProgressStageComplete))

	svc.SendDueReminders()

	// Only the member still working gets a reminder; finished members and
	// owners are left alone.
	var reminders []models.Notification
	db.Where("type = ?", models.NotificationTypeStageDueReminder).Find(&reminders)
	if len(reminders) != 1 {
		t.Fatalf("reminders = %d, expected 1", len(reminders))
	}
	if reminders[0].RecipientID != alice.ID {
		t.Errorf("reminder went to %d, expected %d", reminders[0].RecipientID, alice.ID)
	}

	// A second sweep the same day is locked out.
	svc.SendDueReminders()
	db.Where("type = ?", models.NotificationTypeStageDueReminder).Find(&reminders)
	if len(reminders) != 1 {
		t.Errorf("second sweep duplicated reminders: %d", len(reminders))
	}
}
