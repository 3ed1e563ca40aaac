package models

import "gorm.io/gorm"

// AuditLog rows are append-only; the system never updates or deletes them.
type AuditLog struct {
	gorm.Model

	Username string `gorm:"not null;index"`
	Action   string `gorm:"not null;index"`
	Details  string
}
