package models

import (
	"time"

	"gorm.io/gorm"
)

// Lifecycle stages, in fixed order. A project advances one stage at a time.
var StageOrder = []string{
	StagePlanning,
	StageDesign,
	StageDevelopment,
	StageTesting,
	StageDeployment,
}

const (
	StagePlanning    = "planning"
	StageDesign      = "design"
	StageDevelopment = "development"
	StageTesting     = "testing"
	StageDeployment  = "deployment"
)

// Stage-instance statuses.
const (
	ProjectStatusInProgress = "in_progress"
	ProjectStatusComplete   = "complete"
	ProjectStatusArchived   = "archived"
)

// ValidStage reports whether s is a known stage label.
func ValidStage(s string) bool {
	for _, stage := range StageOrder {
		if stage == s {
			return true
		}
	}
	return false
}

// NextStage returns the stage after s, or "" when s is terminal or unknown.
func NextStage(s string) string {
	for i, stage := range StageOrder {
		if stage == s && i+1 < len(StageOrder) {
			return StageOrder[i+1]
		}
	}
	return ""
}

// ProjectStageInstance is one row per (project group, stage). All instances of
// one effort share ProjectGroupID; at most one non-archived instance exists per
// (group, stage), enforced by the partial unique index on Active. Active is
// true for live rows and NULL once archived, so archived rows never collide.
type ProjectStageInstance struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ProjectGroupID   string         `gorm:"column:project_id;uniqueIndex:idx_group_stage_active;size:36;not null" json:"project_id"`
	Stage            string         `gorm:"uniqueIndex:idx_group_stage_active;size:50;not null" json:"stage"`
	Active           *bool          `gorm:"uniqueIndex:idx_group_stage_active" json:"-"`
	OwnerID          uint           `gorm:"index;not null" json:"owner_id"`
	Owner            *User          `gorm:"foreignKey:OwnerID" json:"-"`
	Organization     string         `gorm:"size:200" json:"organization"`
	Name             string         `gorm:"size:200;not null" json:"name"`
	Description      string         `gorm:"type:text" json:"description"`
	Status           string         `gorm:"size:50;default:in_progress" json:"status"` // in_progress, complete, archived
	StageDuration    int            `gorm:"default:14" json:"stage_duration"`          // business days per stage
	StageStartDate   time.Time      `json:"stage_start_date"`
	StageDueDate     time.Time      `json:"stage_due_date"`
	ProjectStartDate time.Time      `json:"project_start_date"`
	ProjectDueDate   time.Time      `json:"project_due_date"`
	SessionDuration  int64          `gorm:"default:0" json:"session_duration"` // accumulated seconds
	CarbonEmit       float64        `gorm:"default:0" json:"carbon_emit"`      // accumulated grams CO2e
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ProjectStageInstance) TableName() string { return "project_stage_instances" }

// Archived reports whether the instance has been soft-removed from the live set.
func (p *ProjectStageInstance) Archived() bool {
	return p.Status == ProjectStatusArchived
}
