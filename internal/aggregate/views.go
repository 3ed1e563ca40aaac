package aggregate

import (
	"time"
)

// ComponentView is the projection of a component used inside read models.
type ComponentView struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	DisplayOrder int    `json:"display_order"`
	GroupID      uint   `json:"group_id"`
}

// GroupDetail is a component group together with its components, both in
// display order. Groups with no components keep an empty component list.
type GroupDetail struct {
	ID                 uint            `json:"id"`
	Name               string          `json:"name"`
	DisplayOrder       int             `json:"display_order"`
	CollapsedByDefault bool            `json:"collapsed_by_default"`
	Components         []ComponentView `json:"components"`
}

// IncidentUpdateView is a single timeline entry on an incident.
type IncidentUpdateView struct {
	ID        uint      `json:"id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// IncidentDetail is the composite read model for an incident: the base row
// plus its updates (most recent first) and affected components.
type IncidentDetail struct {
	ID                uint                 `json:"id"`
	Title             string               `json:"title"`
	Status            string               `json:"status"`
	Impact            string               `json:"impact"`
	ImpactDescription string               `json:"impact_description,omitempty"`
	RootCause         string               `json:"root_cause,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
	ResolvedAt        *time.Time           `json:"resolved_at"`
	Updates           []IncidentUpdateView `json:"updates"`
	Components        []ComponentView      `json:"affected_components"`
}

// MaintenanceUpdateView is a single timeline entry on a maintenance window.
type MaintenanceUpdateView struct {
	ID        uint      `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MaintenanceDetail is the composite read model for a maintenance window.
type MaintenanceDetail struct {
	ID          uint                    `json:"id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description,omitempty"`
	StartTime   time.Time               `json:"start_time"`
	EndTime     time.Time               `json:"end_time"`
	Status      string                  `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
	Updates     []MaintenanceUpdateView `json:"updates"`
	Components  []ComponentView         `json:"affected_components"`
}
