package models

import "gorm.io/gorm"

type Component struct {
	gorm.Model

	Name         string `gorm:"not null"`
	Status       string `gorm:"not null;default:operational"`
	DisplayOrder int    `gorm:"not null;default:0"`
	GroupID      uint   `gorm:"not null;index"`

	// Relationships
	Group ComponentGroup `gorm:"foreignKey:GroupID"`
}
