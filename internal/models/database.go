package models

import (
	"fmt"

	"github.com/ecostage/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Duplicate-key races (next-stage creation, membership uniqueness)
		// are resolved by checking gorm.ErrDuplicatedKey.
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&Device{},
		&CPUModel{},
		&GPUModel{},
		&RAMModel{},
		&PSUModel{},
		&ProjectStageInstance{},
		&ProjectMembership{},
		&ProjectStageProgress{},
		&Notification{},
		&ProjectRequest{},
		&WorkSession{},
		&RefreshToken{},
		&SystemConfig{},
		&SystemLog{},
		&SchedulerLock{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates the hardware wattage catalog and default system
// configs if they are missing. Idempotent; safe to run on every boot.
func SeedDefaultData() error {
	if err := seedHardwareCatalog(); err != nil {
		return err
	}

	defaultConfigs := []SystemConfig{
		{Key: "email_enabled", Value: "false", Type: "bool", Group: "email", Label: "Enable Email Delivery"},
		{Key: "email_host", Value: "", Type: "string", Group: "email", Label: "SMTP Host"},
		{Key: "email_port", Value: "587", Type: "int", Group: "email", Label: "SMTP Port"},
		{Key: "email_username", Value: "", Type: "string", Group: "email", Label: "SMTP Username"},
		{Key: "email_password", Value: "", Type: "string", Group: "email", Label: "SMTP Password"},
		{Key: "email_from", Value: "noreply@ecostage.dev", Type: "string", Group: "email", Label: "Sender Address"},
		{Key: "email_use_tls", Value: "true", Type: "bool", Group: "email", Label: "Use TLS"},
		{Key: "log_retention_days", Value: "30", Type: "int", Group: "system", Label: "System Log Retention Days"},
		{Key: "default_carbon_factor", Value: "0.412", Type: "float", Group: "emission", Label: "Fallback Carbon Factor (gCO2e/Wh)"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		DB.Model(&SystemConfig{}).Where("key = ?", cfg.Key).Count(&count)
		if count == 0 {
			if err := DB.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// seedHardwareCatalog loads baseline average-wattage rows per component and
// category. Admins extend the catalog through the hardware endpoints.
func seedHardwareCatalog() error {
	var cpuCount int64
	DB.Model(&CPUModel{}).Count(&cpuCount)
	if cpuCount > 0 {
		return nil
	}

	cpus := []CPUModel{
		{Name: "Intel Core i5-12400", Category: DeviceCategoryDesktop, AvgWatts: 65},
		{Name: "Intel Core i7-13700K", Category: DeviceCategoryDesktop, AvgWatts: 125},
		{Name: "AMD Ryzen 5 5600X", Category: DeviceCategoryDesktop, AvgWatts: 65},
		{Name: "AMD Ryzen 9 7950X", Category: DeviceCategoryDesktop, AvgWatts: 170},
		{Name: "Intel Core i5-1240P", Category: DeviceCategoryLaptop, AvgWatts: 28},
		{Name: "Intel Core i7-1365U", Category: DeviceCategoryLaptop, AvgWatts: 15},
		{Name: "AMD Ryzen 7 7840U", Category: DeviceCategoryLaptop, AvgWatts: 28},
		{Name: "Apple M2", Category: DeviceCategoryLaptop, AvgWatts: 20},
	}
	gpus := []GPUModel{
		{Name: "NVIDIA GeForce RTX 3060", Category: DeviceCategoryDesktop, AvgWatts: 170},
		{Name: "NVIDIA GeForce RTX 4070", Category: DeviceCategoryDesktop, AvgWatts: 200},
		{Name: "AMD Radeon RX 6600", Category: DeviceCategoryDesktop, AvgWatts: 132},
		{Name: "Integrated Graphics", Category: DeviceCategoryDesktop, AvgWatts: 15},
		{Name: "NVIDIA GeForce RTX 4060 Mobile", Category: DeviceCategoryLaptop, AvgWatts: 80},
		{Name: "Integrated Graphics", Category: DeviceCategoryLaptop, AvgWatts: 8},
	}
	rams := []RAMModel{
		{Name: "DDR4-3200 8GB", Category: DeviceCategoryDesktop, AvgWatts: 3},
		{Name: "DDR4-3200 16GB", Category: DeviceCategoryDesktop, AvgWatts: 4},
		{Name: "DDR5-5600 16GB", Category: DeviceCategoryDesktop, AvgWatts: 5},
		{Name: "DDR4-3200 8GB SO-DIMM", Category: DeviceCategoryLaptop, AvgWatts: 2},
		{Name: "LPDDR5 16GB", Category: DeviceCategoryLaptop, AvgWatts: 2},
	}
	psus := []PSUModel{
		{Name: "550W 80+ Bronze", Category: DeviceCategoryDesktop, AvgWatts: 30},
		{Name: "750W 80+ Gold", Category: DeviceCategoryDesktop, AvgWatts: 25},
		{Name: "65W Power Adapter", Category: DeviceCategoryLaptop, AvgWatts: 6},
		{Name: "100W USB-C Adapter", Category: DeviceCategoryLaptop, AvgWatts: 8},
	}

	for i := range cpus {
		if err := DB.Create(&cpus[i]).Error; err != nil {
			return err
		}
	}
	for i := range gpus {
		if err := DB.Create(&gpus[i]).Error; err != nil {
			return err
		}
	}
	for i := range rams {
		if err := DB.Create(&rams[i]).Error; err != nil {
			return err
		}
	}
	for i := range psus {
		if err := DB.Create(&psus[i]).Error; err != nil {
			return err
		}
	}

	return nil
}
