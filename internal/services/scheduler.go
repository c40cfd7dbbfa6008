package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SchedulerService runs periodic sweeps: stage due-date reminders and
// system log cleanup. A DB lock keyed by task and period keeps multiple
// server instances from double-running a sweep.
type SchedulerService struct {
	db            *gorm.DB
	mailer        *Mailer
	logService    *SystemLogService
	cronScheduler *cron.Cron
	instanceID    string
}

func NewSchedulerService(db *gorm.DB, mailer *Mailer, logService *SystemLogService) *SchedulerService {
	host, _ := os.Hostname()
	return &SchedulerService{
		db:         db,
		mailer:     mailer,
		logService: logService,
		instanceID: fmt.Sprintf("%s-%d", host, os.Getpid()),
	}
}

func (s *SchedulerService) StartScheduler() {
	s.cronScheduler = cron.New()

	if _, err := s.cronScheduler.AddFunc("0 9 * * *", s.SendDueReminders); err != nil {
		logger.Warnf("[Scheduler] Failed to add reminder job: %v", err)
	}
	if _, err := s.cronScheduler.AddFunc("30 3 * * *", s.CleanupLogs); err != nil {
		logger.Warnf("[Scheduler] Failed to add cleanup job: %v", err)
	}

	s.cronScheduler.Start()
	logger.Infof("[Scheduler] Started (instance %s)", s.instanceID)
}

func (s *SchedulerService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

// SendDueReminders notifies contributing members of stages due within two
// business days. One notification per member per stage per day.
func (s *SchedulerService) SendDueReminders() {
	today := time.Now().Format("2006-01-02")
	if !s.tryAcquireLock("stage_due_reminders", today, 6*time.Hour) {
		return
	}

	cutoff := AddBusinessDays(time.Now(), 2)

	var instances []models.ProjectStageInstance
	err := s.db.Where("status = ? AND stage_due_date <= ?", models.ProjectStatusInProgress, cutoff).
		Find(&instances).Error
	if err != nil {
		logger.Warnf("[Scheduler] Reminder sweep query failed: %v", err)
		return
	}

	sent := 0
	for i := range instances {
		sent += s.remindInstance(&instances[i])
	}

	if sent > 0 {
		LogInfo("scheduler", "due_reminders", fmt.Sprintf("sent %d stage due reminders", sent), nil, "", "", nil)
	}
	logger.Infof("[Scheduler] Reminder sweep done: %d instances, %d reminders", len(instances), sent)
}

func (s *SchedulerService) remindInstance(instance *models.ProjectStageInstance) int {
	var memberships []models.ProjectMembership
	err := s.db.Where("instance_id = ?", instance.ID).
		Preload("User").
		Find(&memberships).Error
	if err != nil {
		return 0
	}

	days := BusinessDaysUntil(time.Now(), instance.StageDueDate)
	message := fmt.Sprintf("Stage %s of project %q is due on %s (%d business days left).",
		instance.Stage, instance.Name, instance.StageDueDate.Format("2006-01-02"), days)

	sent := 0
	for _, m := range memberships {
		if !m.Contributing() {
			continue
		}
		if m.ProgressStatus != nil && *m.ProgressStatus == models.ProgressStageComplete {
			continue
		}

		n := models.Notification{
			RecipientID: m.UserID,
			InstanceID:  &instance.ID,
			Type:        models.NotificationTypeStageDueReminder,
			Message:     message,
			Status:      models.NotificationUnread,
		}
		if err := s.db.Create(&n).Error; err != nil {
			continue
		}
		if m.User != nil && m.User.Email != "" {
			s.mailer.QueueMail(m.User.Email, "Stage due soon: "+instance.Name, message)
		}
		sent++
	}
	return sent
}

// CleanupLogs trims system logs past the configured retention window.
func (s *SchedulerService) CleanupLogs() {
	today := time.Now().Format("2006-01-02")
	if !s.tryAcquireLock("log_cleanup", today, 6*time.Hour) {
		return
	}

	deleted, err := s.logService.Cleanup()
	if err != nil {
		logger.Warnf("[Scheduler] Log cleanup failed: %v", err)
		return
	}
	logger.Infof("[Scheduler] Log cleanup done: %d rows removed", deleted)
}

// tryAcquireLock claims the (name, key) lock for this instance. The unique
// index makes the insert a race arbiter; stale locks are reaped first.
func (s *SchedulerService) tryAcquireLock(name, key string, ttl time.Duration) bool {
	s.db.Where("expires_at < ?", time.Now()).Delete(&models.SchedulerLock{})

	lock := models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  s.instanceID,
		LockedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.db.Create(&lock).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false
		}
		logger.Warnf("[Scheduler] Lock acquire failed for %s/%s: %v", name, key, err)
		return false
	}
	return true
}
