package services

import (
	"errors"
	"time"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/logger"
	"github.com/ecostage/backend/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StageService implements per-member stage progress, collective completion
// evaluation and the forward transition of a project group to its next stage.
type StageService struct {
	db *gorm.DB
}

func NewStageService(db *gorm.DB) *StageService {
	return &StageService{db: db}
}

// Transition outcomes.
const (
	OutcomeUserStageCompleted = "user-stage-completed"
	OutcomeStageCompleted     = "stage-completed"
	OutcomeProjectCompleted   = "project-completed"
)

type CompleteStageRequest struct {
	CurrentStage string `json:"current_stage" binding:"required"`
	NextStage    string `json:"next_stage"`
}

// TransitionResult reports which branch CompleteStage took.
type TransitionResult struct {
	Outcome        string `json:"outcome"`
	InstanceID     uint   `json:"instance_id"`
	NextInstanceID *uint  `json:"next_instance_id,omitempty"`
	CompletedCount int64  `json:"completed_count"`
	TotalCount     int64  `json:"total_count"`
}

type CompletionResult struct {
	Complete       bool  `json:"complete"`
	CompletedCount int64 `json:"completed_count"`
	TotalCount     int64 `json:"total_count"`
}

// EvaluateCompletion decides whether every contributing member of the instance
// has finished the current stage. A project with no contributors is never
// complete. When all are done the instance itself is flipped to complete;
// re-evaluating an already-complete instance is a no-op.
func (s *StageService) EvaluateCompletion(instanceID uint) (*CompletionResult, error) {
	var result *CompletionResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		instance, err := loadLiveInstance(tx, instanceID)
		if err != nil {
			return err
		}
		r, err := evaluateCompletion(tx, instance)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// evaluateCompletion runs inside the caller's transaction. Completion is
// terminal: once the instance is complete it stays complete no matter how the
// roster changes afterwards.
func evaluateCompletion(tx *gorm.DB, instance *models.ProjectStageInstance) (*CompletionResult, error) {
	var total, completed int64
	if err := tx.Model(&models.ProjectMembership{}).
		Where("instance_id = ? AND role <> ?", instance.ID, models.RoleOwner).
		Count(&total).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.ProjectMembership{}).
		Where("instance_id = ? AND role <> ? AND progress_status = ?",
			instance.ID, models.RoleOwner, models.ProgressStageComplete).
		Count(&completed).Error; err != nil {
		return nil, err
	}

	complete := instance.Status == models.ProjectStatusComplete ||
		(total > 0 && completed == total)
	if complete && instance.Status != models.ProjectStatusComplete {
		if err := tx.Model(instance).Update("status", models.ProjectStatusComplete).Error; err != nil {
			return nil, err
		}
		instance.Status = models.ProjectStatusComplete
	}

	return &CompletionResult{Complete: complete, CompletedCount: completed, TotalCount: total}, nil
}

// CompleteStage records that userID finished currentStage on the instance and,
// when a next stage is named, moves the caller (and, on collective completion,
// the roster) forward. The whole operation is one transaction; any failure
// rolls back every write.
func (s *StageService) CompleteStage(instanceID, userID uint, req *CompleteStageRequest) (*TransitionResult, error) {
	if !models.ValidStage(req.CurrentStage) {
		return nil, response.NewBadRequest("unknown stage: " + req.CurrentStage)
	}
	if req.NextStage != "" {
		if !models.ValidStage(req.NextStage) {
			return nil, response.NewBadRequest("unknown stage: " + req.NextStage)
		}
		if models.NextStage(req.CurrentStage) != req.NextStage {
			return nil, response.NewBadRequest("next_stage must immediately follow current_stage")
		}
	}

	var result *TransitionResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		instance, err := loadLiveInstance(tx, instanceID)
		if err != nil {
			return err
		}
		if instance.Stage != req.CurrentStage {
			return response.NewConflict("instance is in stage " + instance.Stage)
		}

		membership, err := loadMembership(tx, instanceID, userID)
		if err != nil {
			return err
		}

		now := time.Now()
		// Durable audit row; re-completing just refreshes the timestamp.
		record := models.ProjectStageProgress{
			ProjectGroupID: instance.ProjectGroupID,
			UserID:         userID,
			Stage:          req.CurrentStage,
			Status:         models.StageProgressComplete,
			StartedAt:      now,
			CompletedAt:    &now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}, {Name: "stage"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"status": models.StageProgressComplete, "completed_at": now}),
		}).Create(&record).Error; err != nil {
			return err
		}

		// Owners carry no progress status of their own.
		if membership.Contributing() {
			if err := tx.Model(membership).
				Update("progress_status", models.ProgressStageComplete).Error; err != nil {
				return err
			}
		}

		completion, err := evaluateCompletion(tx, instance)
		if err != nil {
			return err
		}

		result = &TransitionResult{
			InstanceID:     instance.ID,
			CompletedCount: completion.CompletedCount,
			TotalCount:     completion.TotalCount,
		}

		if req.NextStage == "" {
			// Terminal stage: either the whole project is done, or only this
			// user is and the instance stays open for the rest.
			if completion.Complete {
				result.Outcome = OutcomeProjectCompleted
			} else {
				result.Outcome = OutcomeUserStageCompleted
			}
			return nil
		}

		next, err := s.findOrCreateNextInstance(tx, instance, membership, userID, req.NextStage)
		if err != nil {
			return err
		}
		result.NextInstanceID = &next.ID

		if completion.Complete {
			result.Outcome = OutcomeStageCompleted
		} else {
			result.Outcome = OutcomeUserStageCompleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Uint("instance_id", instanceID).
		Uint("user_id", userID).
		Str("outcome", result.Outcome).
		Int64("completed", result.CompletedCount).
		Int64("total", result.TotalCount).
		Msg("stage completion recorded")

	return result, nil
}

// findOrCreateNextInstance locates the live next-stage instance for the group
// or creates it, migrating the roster forward. Creation races are serialized
// by the (project_id, stage, active) unique index; the loser re-reads the
// winner's row and proceeds as if it had been found.
func (s *StageService) findOrCreateNextInstance(tx *gorm.DB, current *models.ProjectStageInstance, membership *models.ProjectMembership, userID uint, nextStage string) (*models.ProjectStageInstance, error) {
	var next models.ProjectStageInstance
	err := tx.Where("project_id = ? AND stage = ? AND status <> ?",
		current.ProjectGroupID, nextStage, models.ProjectStatusArchived).
		First(&next).Error
	if err == nil {
		// Teammate moved first; join their instance individually.
		return &next, s.joinInstance(tx, &next, membership, userID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created, err := s.createNextInstance(tx, current, nextStage)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent caller won the race; adopt their row.
		if err := tx.Where("project_id = ? AND stage = ? AND status <> ?",
			current.ProjectGroupID, nextStage, models.ProjectStatusArchived).
			First(&next).Error; err != nil {
			return nil, err
		}
		return &next, s.joinInstance(tx, &next, membership, userID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.migrateMemberships(tx, current, created, userID); err != nil {
		return nil, err
	}
	return created, nil
}

// joinInstance ensures the caller has a membership on the found instance and
// marks them in progress there.
func (s *StageService) joinInstance(tx *gorm.DB, next *models.ProjectStageInstance, membership *models.ProjectMembership, userID uint) error {
	var progress *string
	if membership.Contributing() {
		progress = models.Progress(models.ProgressInProgress)
	}

	var existing []models.ProjectMembership
	if err := tx.Where("instance_id = ? AND user_id = ?", next.ID, userID).
		Find(&existing).Error; err != nil {
		return err
	}
	for i := range existing {
		if !existing[i].Contributing() {
			continue
		}
		return tx.Model(&existing[i]).Updates(map[string]interface{}{
			"progress_status": models.ProgressInProgress,
			"current_stage":   next.Stage,
		}).Error
	}
	if len(existing) > 0 && !membership.Contributing() {
		return nil
	}

	row := models.ProjectMembership{
		InstanceID:     next.ID,
		UserID:         userID,
		Role:           membership.Role,
		CurrentStage:   next.Stage,
		ProgressStatus: progress,
	}
	if err := tx.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}

// createNextInstance clones the descriptive and timeline policy fields of the
// current instance into a fresh in-progress row for nextStage.
func (s *StageService) createNextInstance(tx *gorm.DB, current *models.ProjectStageInstance, nextStage string) (*models.ProjectStageInstance, error) {
	now := time.Now()
	next := models.ProjectStageInstance{
		ProjectGroupID:   current.ProjectGroupID,
		Stage:            nextStage,
		Active:           liveMarker(),
		OwnerID:          current.OwnerID,
		Organization:     current.Organization,
		Name:             current.Name,
		Description:      current.Description,
		Status:           models.ProjectStatusInProgress,
		StageDuration:    current.StageDuration,
		StageStartDate:   now,
		StageDueDate:     AddBusinessDays(now, current.StageDuration),
		ProjectStartDate: current.ProjectStartDate,
		ProjectDueDate:   current.ProjectDueDate,
	}
	if err := tx.Create(&next).Error; err != nil {
		return nil, err
	}
	return &next, nil
}

// migrateMemberships copies every membership of the finished instance onto the
// new one: the completing user starts in progress, other contributors at
// not-started, owners stay progress-less.
func (s *StageService) migrateMemberships(tx *gorm.DB, current, next *models.ProjectStageInstance, completingUserID uint) error {
	var roster []models.ProjectMembership
	if err := tx.Where("instance_id = ?", current.ID).Find(&roster).Error; err != nil {
		return err
	}

	for _, m := range roster {
		var progress *string
		if m.Contributing() {
			if m.UserID == completingUserID {
				progress = models.Progress(models.ProgressInProgress)
			} else {
				progress = models.Progress(models.ProgressNotStarted)
			}
		}
		row := models.ProjectMembership{
			InstanceID:     next.ID,
			UserID:         m.UserID,
			Role:           m.Role,
			CurrentStage:   next.Stage,
			ProgressStatus: progress,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// loadMembership returns the user's membership on the instance, preferring a
// contributing row when the user also holds the owner row.
func loadMembership(tx *gorm.DB, instanceID, userID uint) (*models.ProjectMembership, error) {
	var rows []models.ProjectMembership
	if err := tx.Where("instance_id = ? AND user_id = ?", instanceID, userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, response.NewForbidden("not a member of this project")
	}
	for i := range rows {
		if rows[i].Contributing() {
			return &rows[i], nil
		}
	}
	return &rows[0], nil
}

// loadLiveInstance fetches a non-archived instance; archived rows are treated
// as absent.
func loadLiveInstance(tx *gorm.DB, instanceID uint) (*models.ProjectStageInstance, error) {
	var instance models.ProjectStageInstance
	err := tx.Where("id = ? AND status <> ?", instanceID, models.ProjectStatusArchived).
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project instance not found")
		}
		return nil, err
	}
	return &instance, nil
}

func liveMarker() *bool {
	b := true
	return &b
}
