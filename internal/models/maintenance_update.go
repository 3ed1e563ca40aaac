package models

import (
	"time"

	"gorm.io/gorm"
)

type MaintenanceUpdate struct {
	gorm.Model

	WindowID  uint      `gorm:"not null;index"`
	Message   string    `gorm:"not null"`
	Timestamp time.Time `gorm:"not null;index"`
}
