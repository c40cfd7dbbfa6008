package models

import "time"

// ProjectStageProgress is the durable per-(group, user, stage) audit row.
// Upsert-only; removal of a membership leaves its history intact.
type ProjectStageProgress struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ProjectGroupID string     `gorm:"column:project_id;uniqueIndex:idx_progress_key;size:36;not null" json:"project_id"`
	UserID         uint       `gorm:"uniqueIndex:idx_progress_key;not null" json:"user_id"`
	Stage          string     `gorm:"uniqueIndex:idx_progress_key;size:50;not null" json:"stage"`
	Status         string     `gorm:"size:50;not null" json:"status"` // in_progress, complete
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (ProjectStageProgress) TableName() string { return "project_stage_progress" }

// Progress-record statuses.
const (
	StageProgressInProgress = "in_progress"
	StageProgressComplete   = "complete"
)
