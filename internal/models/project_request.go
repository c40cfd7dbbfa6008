package models

import (
	"time"

	"gorm.io/gorm"
)

// Project-request statuses. pending is the only non-terminal state.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// ProjectRequest is a user-submitted proposal awaiting admin disposition.
// Approval materializes exactly one stage instance plus owner and leader
// memberships for the requester.
type ProjectRequest struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	RequesterID   uint           `gorm:"index;not null" json:"requester_id"`
	Requester     *User          `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Title         string         `gorm:"size:200;not null" json:"title"`
	Description   string         `gorm:"type:text;not null" json:"description"`
	Stage         string         `gorm:"size:50;default:design" json:"stage"`
	StageDuration int            `gorm:"default:14" json:"stage_duration"` // business days
	ProjectDueDate *time.Time    `json:"project_due_date"`
	Status        string         `gorm:"size:20;default:pending;index" json:"status"`
	ReviewerID    *uint          `json:"reviewer_id"`
	Reviewer      *User          `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Notes         string         `gorm:"type:text" json:"notes"`
	InstanceID    *uint          `json:"instance_id"` // set on approval
	ReviewedAt    *time.Time     `json:"reviewed_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ProjectRequest) TableName() string { return "project_requests" }
