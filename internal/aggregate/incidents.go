package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"gorm.io/gorm"
)

// Incident assembles the composite read model for a single incident.
// Returns types.ErrNotFound when the base row is absent.
func Incident(dbc *gorm.DB, id uint) (IncidentDetail, error) {
	var incident models.Incident

	if err := dbc.First(&incident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IncidentDetail{}, fmt.Errorf("incident %d %w", id, types.ErrNotFound)
		}
		return IncidentDetail{}, err
	}

	details, err := assembleIncidents(dbc, []models.Incident{incident})
	if err != nil {
		return IncidentDetail{}, err
	}

	return details[0], nil
}

// AllIncidents returns every incident, newest first.
func AllIncidents(dbc *gorm.DB) ([]IncidentDetail, error) {
	var incidents []models.Incident

	if err := dbc.Order("created_at DESC").Find(&incidents).Error; err != nil {
		return nil, err
	}

	return assembleIncidents(dbc, incidents)
}

// ActiveIncidents returns incidents that have not reached resolved,
// newest first.
func ActiveIncidents(dbc *gorm.DB) ([]IncidentDetail, error) {
	var incidents []models.Incident

	if err := dbc.Where("status <> ?", string(types.IncidentResolved)).
		Order("created_at DESC").
		Find(&incidents).Error; err != nil {
		return nil, err
	}

	return assembleIncidents(dbc, incidents)
}

// RecentIncidents returns resolved incidents whose resolved_at falls
// within the last days days, boundary inclusive, newest first.
func RecentIncidents(dbc *gorm.DB, now time.Time, days int) ([]IncidentDetail, error) {
	cutoff := now.AddDate(0, 0, -days)

	var incidents []models.Incident

	if err := dbc.Where("status = ? AND resolved_at >= ?", string(types.IncidentResolved), cutoff).
		Order("created_at DESC").
		Find(&incidents).Error; err != nil {
		return nil, err
	}

	return assembleIncidents(dbc, incidents)
}

// IncidentHistory filters incidents by creation time. year == 0 returns
// everything; month == 0 covers the whole year; otherwise the range spans
// the first through last instant of that month, inclusive.
func IncidentHistory(dbc *gorm.DB, year int, month int) ([]IncidentDetail, error) {
	query := dbc.Order("created_at DESC")

	if year > 0 {
		var start, end time.Time
		if month >= 1 && month <= 12 {
			start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
		} else {
			start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			end = start.AddDate(1, 0, 0).Add(-time.Nanosecond)
		}
		query = query.Where("created_at >= ? AND created_at <= ?", start, end)
	}

	var incidents []models.Incident

	if err := query.Find(&incidents).Error; err != nil {
		return nil, err
	}

	return assembleIncidents(dbc, incidents)
}

// PublicIncidents drives the unauthenticated incidents view. With
// includeResolved false only open incidents are returned, regardless of
// days. With includeResolved true, days > 0 adds resolved incidents whose
// resolved_at is within the window; days <= 0 returns everything.
func PublicIncidents(dbc *gorm.DB, now time.Time, includeResolved bool, days int) ([]IncidentDetail, error) {
	query := dbc.Order("created_at DESC")

	if !includeResolved {
		query = query.Where("status <> ?", string(types.IncidentResolved))
	} else if days > 0 {
		cutoff := now.AddDate(0, 0, -days)
		query = query.Where("status <> ? OR resolved_at >= ?", string(types.IncidentResolved), cutoff)
	}

	var incidents []models.Incident

	if err := query.Find(&incidents).Error; err != nil {
		return nil, err
	}

	return assembleIncidents(dbc, incidents)
}

type incidentComponentRow struct {
	IncidentID  uint
	ComponentID uint
}

// assembleIncidents batch-fetches updates and affected components for a
// page of incidents: one query per child table, grouped in memory, instead
// of per-parent follow-ups.
func assembleIncidents(dbc *gorm.DB, incidents []models.Incident) ([]IncidentDetail, error) {
	details := make([]IncidentDetail, 0, len(incidents))
	if len(incidents) == 0 {
		return details, nil
	}

	ids := make([]uint, 0, len(incidents))
	for _, incident := range incidents {
		ids = append(ids, incident.ID)
	}

	var updates []models.IncidentUpdate
	if err := dbc.Where("incident_id IN ?", ids).
		Order("timestamp DESC").
		Find(&updates).Error; err != nil {
		return nil, err
	}

	updatesByIncident := make(map[uint][]IncidentUpdateView)
	for _, update := range updates {
		updatesByIncident[update.IncidentID] = append(updatesByIncident[update.IncidentID], IncidentUpdateView{
			ID:        update.ID,
			Message:   update.Message,
			Status:    update.Status,
			Timestamp: update.Timestamp,
		})
	}

	var links []incidentComponentRow
	if err := dbc.Table("incident_components").
		Where("incident_id IN ?", ids).
		Find(&links).Error; err != nil {
		return nil, err
	}

	componentsByIncident, err := componentsByParent(dbc, links, func(row incidentComponentRow) (uint, uint) {
		return row.IncidentID, row.ComponentID
	})
	if err != nil {
		return nil, err
	}

	for _, incident := range incidents {
		detail := IncidentDetail{
			ID:                incident.ID,
			Title:             incident.Title,
			Status:            incident.Status,
			Impact:            incident.Impact,
			ImpactDescription: incident.ImpactDescription,
			RootCause:         incident.RootCause,
			CreatedAt:         incident.CreatedAt,
			UpdatedAt:         incident.UpdatedAt,
			ResolvedAt:        incident.ResolvedAt,
			Updates:           updatesByIncident[incident.ID],
			Components:        componentsByIncident[incident.ID],
		}
		if detail.Updates == nil {
			detail.Updates = []IncidentUpdateView{}
		}
		if detail.Components == nil {
			detail.Components = []ComponentView{}
		}
		details = append(details, detail)
	}

	return details, nil
}

// componentsByParent resolves join-table rows into component views grouped
// by parent id, with each parent's components in (group_id, display_order)
// order.
func componentsByParent[T any](dbc *gorm.DB, links []T, split func(T) (parentID, componentID uint)) (map[uint][]ComponentView, error) {
	grouped := make(map[uint][]ComponentView)
	if len(links) == 0 {
		return grouped, nil
	}

	componentIDs := make([]uint, 0, len(links))
	for _, link := range links {
		_, componentID := split(link)
		componentIDs = append(componentIDs, componentID)
	}

	var components []models.Component
	if err := dbc.Where("id IN ?", componentIDs).
		Order("group_id ASC, display_order ASC, id ASC").
		Find(&components).Error; err != nil {
		return nil, err
	}

	views := make(map[uint]ComponentView, len(components))
	order := make(map[uint]int, len(components))
	for i, component := range components {
		views[component.ID] = ComponentView{
			ID:           component.ID,
			Name:         component.Name,
			Status:       component.Status,
			DisplayOrder: component.DisplayOrder,
			GroupID:      component.GroupID,
		}
		order[component.ID] = i
	}

	parentLinks := make(map[uint][]uint)
	for _, link := range links {
		parentID, componentID := split(link)
		if _, ok := views[componentID]; !ok {
			continue
		}
		parentLinks[parentID] = append(parentLinks[parentID], componentID)
	}

	for parentID, componentIDs := range parentLinks {
		sort.Slice(componentIDs, func(i, j int) bool {
			return order[componentIDs[i]] < order[componentIDs[j]]
		})
		for _, componentID := range componentIDs {
			grouped[parentID] = append(grouped[parentID], views[componentID])
		}
	}

	return grouped, nil
}
