package types

// ComponentStatus is the discrete health state of a monitored component.
type ComponentStatus string

const (
	StatusOperational      ComponentStatus = "operational"
	StatusUnderMaintenance ComponentStatus = "under_maintenance"
	StatusDegraded         ComponentStatus = "degraded"
	StatusPartialOutage    ComponentStatus = "partial_outage"
	StatusMajorOutage      ComponentStatus = "major_outage"
)

// statusSeverity is a total order over component statuses. under_maintenance
// ranks below degraded on purpose: a mix of maintenance and degraded
// components reports degraded.
var statusSeverity = map[ComponentStatus]int{
	StatusOperational:      0,
	StatusUnderMaintenance: 1,
	StatusDegraded:         2,
	StatusPartialOutage:    3,
	StatusMajorOutage:      4,
}

// Severity returns the rank of s in the status order, or -1 for an
// unknown status string.
func (s ComponentStatus) Severity() int {
	if rank, ok := statusSeverity[s]; ok {
		return rank
	}
	return -1
}

// IsValidComponentStatus reports whether s is one of the five component
// status values.
func IsValidComponentStatus(s string) bool {
	_, ok := statusSeverity[ComponentStatus(s)]
	return ok
}

// IncidentStatus is the lifecycle state of an incident.
type IncidentStatus string

const (
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentIdentified    IncidentStatus = "identified"
	IncidentMonitoring    IncidentStatus = "monitoring"
	IncidentResolved      IncidentStatus = "resolved"
)

func IsValidIncidentStatus(s string) bool {
	switch IncidentStatus(s) {
	case IncidentInvestigating, IncidentIdentified, IncidentMonitoring, IncidentResolved:
		return true
	}
	return false
}

// IncidentImpact grades the severity of an incident.
type IncidentImpact string

const (
	ImpactNone     IncidentImpact = "none"
	ImpactMinor    IncidentImpact = "minor"
	ImpactMajor    IncidentImpact = "major"
	ImpactCritical IncidentImpact = "critical"
)

func IsValidIncidentImpact(s string) bool {
	switch IncidentImpact(s) {
	case ImpactNone, ImpactMinor, ImpactMajor, ImpactCritical:
		return true
	}
	return false
}

// MaintenanceStatus is the lifecycle state of a maintenance window.
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
)

func IsValidMaintenanceStatus(s string) bool {
	switch MaintenanceStatus(s) {
	case MaintenanceScheduled, MaintenanceInProgress, MaintenanceCompleted:
		return true
	}
	return false
}
