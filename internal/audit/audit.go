package audit

import (
	"github.com/signalboard/signalboard/internal/models"
	"gorm.io/gorm"
)

// Record appends an audit-log row describing an administrative action.
// It writes through tx so the entry commits and rolls back together with
// the mutation that triggered it.
func Record(tx *gorm.DB, username, action, details string) error {
	entry := models.AuditLog{
		Username: username,
		Action:   action,
		Details:  details,
	}

	return tx.Create(&entry).Error
}
