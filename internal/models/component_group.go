package models

import "gorm.io/gorm"

type ComponentGroup struct {
	gorm.Model

	Name               string `gorm:"not null"`
	DisplayOrder       int    `gorm:"not null;default:0"`
	CollapsedByDefault bool   `gorm:"not null;default:false"`

	// Relationships
	Components []Component `gorm:"foreignKey:GroupID"`
}
