package aggregate

import (
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
)

// OverallStatus folds a set of components into the single worst status
// present. An empty set is operational. Severity follows the total order
// operational < under_maintenance < degraded < partial_outage <
// major_outage.
func OverallStatus(components []models.Component) types.ComponentStatus {
	overall := types.StatusOperational

	for _, component := range components {
		status := types.ComponentStatus(component.Status)
		if status.Severity() > overall.Severity() {
			overall = status
		}
	}

	return overall
}
