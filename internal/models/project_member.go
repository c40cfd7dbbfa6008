package models

import (
	"time"
)

// Membership roles. Only non-owner roles contribute to stage completion.
const (
	RoleOwner  = "owner"
	RoleLeader = "leader"
	RoleMember = "member"
)

// Per-member progress within a stage. Stored as a nullable string: owners
// carry NULL because they have no progress of their own.
const (
	ProgressNotStarted    = "not_started"
	ProgressInProgress    = "in_progress"
	ProgressStageComplete = "stage_complete"
)

// ProjectMembership ties a user to one stage instance. When a project advances
// the roster is re-created on the next instance rather than updated in place.
type ProjectMembership struct {
	ID             uint                  `gorm:"primaryKey" json:"id"`
	InstanceID     uint                  `gorm:"uniqueIndex:idx_instance_user_role;not null" json:"instance_id"`
	Instance       *ProjectStageInstance `gorm:"foreignKey:InstanceID" json:"instance,omitempty"`
	UserID         uint                  `gorm:"uniqueIndex:idx_instance_user_role;not null" json:"user_id"`
	User           *User                 `gorm:"foreignKey:UserID" json:"user,omitempty"`
	// Role is part of the unique key: a project creator holds both an owner
	// row and a leader row on the same instance.
	Role           string                `gorm:"uniqueIndex:idx_instance_user_role;size:50;default:member" json:"role"` // owner, leader, member
	CurrentStage   string                `gorm:"size:50" json:"current_stage"`
	ProgressStatus *string               `gorm:"size:50" json:"progress_status"` // NULL for owners
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

func (ProjectMembership) TableName() string { return "project_memberships" }

// Contributing reports whether this member's progress counts toward stage
// completion.
func (m *ProjectMembership) Contributing() bool {
	return m.Role != RoleOwner
}

// Progress returns a pointer to s, for populating ProgressStatus.
func Progress(s string) *string { return &s }
