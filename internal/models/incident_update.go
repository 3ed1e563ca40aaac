package models

import (
	"time"

	"gorm.io/gorm"
)

// IncidentUpdate is a timeline entry on an incident. Creating one is the
// mechanism by which an incident's status changes over time: the update's
// status snapshot overwrites the parent's current status.
type IncidentUpdate struct {
	gorm.Model

	IncidentID uint      `gorm:"not null;index"`
	Message    string    `gorm:"not null"`
	Status     string    `gorm:"not null"`
	Timestamp  time.Time `gorm:"not null;index"`
}
