package models

import (
	"time"

	"gorm.io/gorm"
)

type Incident struct {
	gorm.Model

	Title             string `gorm:"not null"`
	Status            string `gorm:"not null"`
	Impact            string `gorm:"not null"`
	ImpactDescription string
	RootCause         string
	ResolvedAt        *time.Time

	// Relationships
	Updates    []IncidentUpdate `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Components []Component      `gorm:"many2many:incident_components"`
}
