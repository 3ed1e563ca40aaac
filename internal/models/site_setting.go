package models

import "gorm.io/gorm"

// SiteSetting is a generic key/value row. Value is a pointer so a key can
// hold an explicit empty string, distinct from holding nothing.
type SiteSetting struct {
	gorm.Model

	Key   string  `gorm:"uniqueIndex;not null"`
	Value *string
}
