package models

import (
	"time"

	"gorm.io/gorm"
)

// Device is a hardware descriptor owned by a user. A user may own several
// devices but at most one is current; sessions accrue against the current one.
type Device struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"index;not null" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID" json:"-"`
	Name       string         `gorm:"size:200;not null" json:"name"`
	Category   string         `gorm:"size:20;not null" json:"category"` // desktop, laptop
	CPUModelID uint           `gorm:"not null" json:"cpu_model_id"`
	CPUModel   *CPUModel      `gorm:"foreignKey:CPUModelID" json:"cpu_model,omitempty"`
	GPUModelID uint           `gorm:"not null" json:"gpu_model_id"`
	GPUModel   *GPUModel      `gorm:"foreignKey:GPUModelID" json:"gpu_model,omitempty"`
	RAMModelID uint           `gorm:"not null" json:"ram_model_id"`
	RAMModel   *RAMModel      `gorm:"foreignKey:RAMModelID" json:"ram_model,omitempty"`
	PSUModelID uint           `gorm:"not null" json:"psu_model_id"`
	PSUModel   *PSUModel      `gorm:"foreignKey:PSUModelID" json:"psu_model,omitempty"`
	RAMCount   int            `gorm:"default:1" json:"ram_count"` // installed RAM modules
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Device) TableName() string { return "devices" }
