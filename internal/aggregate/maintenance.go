package aggregate

import (
	"errors"
	"fmt"
	"time"

	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"gorm.io/gorm"
)

// Maintenance assembles the composite read model for a single maintenance
// window. Returns types.ErrNotFound when the base row is absent.
func Maintenance(dbc *gorm.DB, id uint) (MaintenanceDetail, error) {
	var window models.MaintenanceWindow

	if err := dbc.First(&window, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MaintenanceDetail{}, fmt.Errorf("maintenance window %d %w", id, types.ErrNotFound)
		}
		return MaintenanceDetail{}, err
	}

	details, err := assembleMaintenance(dbc, []models.MaintenanceWindow{window})
	if err != nil {
		return MaintenanceDetail{}, err
	}

	return details[0], nil
}

// AllMaintenance returns every maintenance window, latest start first.
func AllMaintenance(dbc *gorm.DB) ([]MaintenanceDetail, error) {
	var windows []models.MaintenanceWindow

	if err := dbc.Order("start_time DESC").Find(&windows).Error; err != nil {
		return nil, err
	}

	return assembleMaintenance(dbc, windows)
}

// ActiveMaintenance returns windows that are both flagged in_progress and
// whose time range brackets now. A window flagged in_progress outside its
// own time bounds is not active.
func ActiveMaintenance(dbc *gorm.DB, now time.Time) ([]MaintenanceDetail, error) {
	var windows []models.MaintenanceWindow

	if err := dbc.Where("status = ? AND start_time <= ? AND end_time >= ?",
		string(types.MaintenanceInProgress), now, now).
		Order("start_time ASC").
		Find(&windows).Error; err != nil {
		return nil, err
	}

	return assembleMaintenance(dbc, windows)
}

// UpcomingMaintenance returns scheduled windows that start after now.
func UpcomingMaintenance(dbc *gorm.DB, now time.Time) ([]MaintenanceDetail, error) {
	var windows []models.MaintenanceWindow

	if err := dbc.Where("status = ? AND start_time > ?", string(types.MaintenanceScheduled), now).
		Order("start_time ASC").
		Find(&windows).Error; err != nil {
		return nil, err
	}

	return assembleMaintenance(dbc, windows)
}

// RecentCompletedMaintenance returns completed windows whose end_time falls
// within the last days days, boundary inclusive.
func RecentCompletedMaintenance(dbc *gorm.DB, now time.Time, days int) ([]MaintenanceDetail, error) {
	cutoff := now.AddDate(0, 0, -days)

	var windows []models.MaintenanceWindow

	if err := dbc.Where("status = ? AND end_time >= ?", string(types.MaintenanceCompleted), cutoff).
		Order("start_time DESC").
		Find(&windows).Error; err != nil {
		return nil, err
	}

	return assembleMaintenance(dbc, windows)
}

// PublicMaintenance drives the unauthenticated maintenance view: every
// scheduled and in-progress window, plus completed windows that ended
// within the recent window, ordered by start time ascending.
func PublicMaintenance(dbc *gorm.DB, now time.Time) ([]MaintenanceDetail, error) {
	cutoff := now.AddDate(0, 0, -types.DefaultRecentWindowDays)

	var windows []models.MaintenanceWindow

	if err := dbc.Where("status IN ? OR (status = ? AND end_time >= ?)",
		[]string{string(types.MaintenanceScheduled), string(types.MaintenanceInProgress)},
		string(types.MaintenanceCompleted), cutoff).
		Order("start_time ASC").
		Find(&windows).Error; err != nil {
		return nil, err
	}

	return assembleMaintenance(dbc, windows)
}

type maintenanceComponentRow struct {
	MaintenanceWindowID uint
	ComponentID         uint
}

func assembleMaintenance(dbc *gorm.DB, windows []models.MaintenanceWindow) ([]MaintenanceDetail, error) {
	details := make([]MaintenanceDetail, 0, len(windows))
	if len(windows) == 0 {
		return details, nil
	}

	ids := make([]uint, 0, len(windows))
	for _, window := range windows {
		ids = append(ids, window.ID)
	}

	var updates []models.MaintenanceUpdate
	if err := dbc.Where("window_id IN ?", ids).
		Order("timestamp DESC").
		Find(&updates).Error; err != nil {
		return nil, err
	}

	updatesByWindow := make(map[uint][]MaintenanceUpdateView)
	for _, update := range updates {
		updatesByWindow[update.WindowID] = append(updatesByWindow[update.WindowID], MaintenanceUpdateView{
			ID:        update.ID,
			Message:   update.Message,
			Timestamp: update.Timestamp,
		})
	}

	var links []maintenanceComponentRow
	if err := dbc.Table("maintenance_components").
		Where("maintenance_window_id IN ?", ids).
		Find(&links).Error; err != nil {
		return nil, err
	}

	componentsByWindow, err := componentsByParent(dbc, links, func(row maintenanceComponentRow) (uint, uint) {
		return row.MaintenanceWindowID, row.ComponentID
	})
	if err != nil {
		return nil, err
	}

	for _, window := range windows {
		detail := MaintenanceDetail{
			ID:          window.ID,
			Title:       window.Title,
			Description: window.Description,
			StartTime:   window.StartTime,
			EndTime:     window.EndTime,
			Status:      window.Status,
			CreatedAt:   window.CreatedAt,
			UpdatedAt:   window.UpdatedAt,
			Updates:     updatesByWindow[window.ID],
			Components:  componentsByWindow[window.ID],
		}
		if detail.Updates == nil {
			detail.Updates = []MaintenanceUpdateView{}
		}
		if detail.Components == nil {
			detail.Components = []ComponentView{}
		}
		details = append(details, detail)
	}

	return details, nil
}
