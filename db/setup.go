package db

import (
	"github.com/signalboard/signalboard/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})

	if err != nil {
		return err
	}

	return nil
}

func MigrateDatabase() error {
	models := []interface{}{
		&models.Role{},
		&models.User{},
		&models.ComponentGroup{},
		&models.Component{},
		&models.Incident{},
		&models.IncidentUpdate{},
		&models.MaintenanceWindow{},
		&models.MaintenanceUpdate{},
		&models.Automation{},
		&models.AuditLog{},
		&models.SiteSetting{},
	}

	migrator := DB.Migrator()

	for _, model := range models {
		if !migrator.HasTable(model) {
			if err := DB.AutoMigrate(model); err != nil {
				return err
			}
		}
	}

	return nil
}
