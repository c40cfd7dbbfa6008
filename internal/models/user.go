package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account. Region feeds the carbon-factor lookup
// for every session the user accrues.
type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Username        string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password        string         `gorm:"size:255" json:"-"` // bcrypt hash
	Email           string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Nickname        string         `gorm:"size:100" json:"nickname"`
	Organization    string         `gorm:"size:200" json:"organization"`
	Region          string         `gorm:"size:50" json:"region"` // lowercase region code, e.g. "us", "de"
	Role            string         `gorm:"size:50;default:user" json:"role"` // admin, user
	CurrentDeviceID *uint          `json:"current_device_id"`
	IsActive        bool           `gorm:"default:true" json:"is_active"`
	LastLogin       *time.Time     `json:"last_login"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }
