package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification types.
const (
	NotificationTypeInvitation       = "project_invitation"
	NotificationTypeRequestApproved  = "request_approved"
	NotificationTypeRequestRejected  = "request_rejected"
	NotificationTypeStageDueReminder = "stage_due_reminder"
)

// Notification statuses and invitation responses.
const (
	NotificationUnread = "unread"
	NotificationRead   = "read"

	ResponseAccepted = "accepted"
	ResponseRejected = "rejected"
)

// Notification is an in-app message. Invitations additionally carry a
// one-shot Response; an accepted invitation creates the membership.
type Notification struct {
	ID          uint                  `gorm:"primaryKey" json:"id"`
	SenderID    uint                  `gorm:"index" json:"sender_id"`
	Sender      *User                 `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	RecipientID uint                  `gorm:"index;not null" json:"recipient_id"`
	Recipient   *User                 `gorm:"foreignKey:RecipientID" json:"-"`
	InstanceID  *uint                 `gorm:"index" json:"instance_id"`
	Instance    *ProjectStageInstance `gorm:"foreignKey:InstanceID" json:"instance,omitempty"`
	Type        string                `gorm:"size:50;not null" json:"type"`
	Message     string                `gorm:"type:text" json:"message"`
	Status      string                `gorm:"size:20;default:unread" json:"status"` // unread, read
	Response    *string               `gorm:"size:20" json:"response"`              // accepted, rejected; NULL until answered
	CreatedAt   time.Time             `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	DeletedAt   gorm.DeletedAt        `gorm:"index" json:"-"`
}

func (Notification) TableName() string { return "notifications" }
