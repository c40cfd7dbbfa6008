package models

import "time"

// WorkSession is the audit row written by each emission accrual. The running
// totals live on the stage instance; sessions keep the per-call breakdown.
type WorkSession struct {
	ID           uint                  `gorm:"primaryKey" json:"id"`
	InstanceID   uint                  `gorm:"index;not null" json:"instance_id"`
	Instance     *ProjectStageInstance `gorm:"foreignKey:InstanceID" json:"-"`
	UserID       uint                  `gorm:"index;not null" json:"user_id"`
	DeviceID     uint                  `gorm:"not null" json:"device_id"`
	Duration     int64                 `gorm:"not null" json:"duration"`  // seconds
	EnergyWh     float64               `gorm:"not null" json:"energy_wh"` // watt-hours
	CarbonEmit   float64               `gorm:"not null" json:"carbon_emit"`
	CarbonFactor float64               `gorm:"not null" json:"carbon_factor"`
	CreatedAt    time.Time             `gorm:"index" json:"created_at"`
}

func (WorkSession) TableName() string { return "work_sessions" }
