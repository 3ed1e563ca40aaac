package models

import "gorm.io/gorm"

// Automation is a named batch status transition: executing it forces every
// target component to NewStatus.
type Automation struct {
	gorm.Model

	Name      string `gorm:"not null"`
	NewStatus string `gorm:"not null"`

	// Relationships
	Components []Component `gorm:"many2many:automation_components"`
}
