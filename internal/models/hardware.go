package models

import "time"

// Device categories. Desktop and laptop components draw from separate wattage
// rows because mobile parts run far below their desktop counterparts.
const (
	DeviceCategoryDesktop = "desktop"
	DeviceCategoryLaptop  = "laptop"
)

// CPUModel is a reference row in the hardware wattage catalog.
type CPUModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex:idx_cpu_name_cat;size:200;not null" json:"name"`
	Category  string    `gorm:"uniqueIndex:idx_cpu_name_cat;size:20;not null" json:"category"` // desktop, laptop
	AvgWatts  float64   `gorm:"not null" json:"avg_watts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GPUModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex:idx_gpu_name_cat;size:200;not null" json:"name"`
	Category  string    `gorm:"uniqueIndex:idx_gpu_name_cat;size:20;not null" json:"category"`
	AvgWatts  float64   `gorm:"not null" json:"avg_watts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RAMModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex:idx_ram_name_cat;size:200;not null" json:"name"`
	Category  string    `gorm:"uniqueIndex:idx_ram_name_cat;size:20;not null" json:"category"`
	AvgWatts  float64   `gorm:"not null" json:"avg_watts"` // per module
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PSUModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex:idx_psu_name_cat;size:200;not null" json:"name"`
	Category  string    `gorm:"uniqueIndex:idx_psu_name_cat;size:20;not null" json:"category"`
	AvgWatts  float64   `gorm:"not null" json:"avg_watts"` // idle overhead draw
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CPUModel) TableName() string { return "cpu_models" }
func (GPUModel) TableName() string { return "gpu_models" }
func (RAMModel) TableName() string { return "ram_models" }
func (PSUModel) TableName() string { return "psu_models" }
