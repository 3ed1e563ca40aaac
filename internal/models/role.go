package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role struct {
	gorm.Model

	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	Permissions datatypes.JSON `gorm:"type:jsonb"` // string -> bool; "all" grants everything

	// Relationships
	Users []User `gorm:"foreignKey:RoleID"`
}
