package models

import (
	"time"

	"gorm.io/gorm"
)

type MaintenanceWindow struct {
	gorm.Model

	Title       string `gorm:"not null"`
	Description string
	StartTime   time.Time `gorm:"not null;index"`
	EndTime     time.Time `gorm:"not null;index"`
	Status      string    `gorm:"not null;default:scheduled"`

	// Relationships
	Updates    []MaintenanceUpdate `gorm:"foreignKey:WindowID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Components []Component         `gorm:"many2many:maintenance_components"`
}
