package aggregate

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbc, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, dbc.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.ComponentGroup{},
		&models.Component{},
		&models.Incident{},
		&models.IncidentUpdate{},
		&models.MaintenanceWindow{},
		&models.MaintenanceUpdate{},
		&models.Automation{},
		&models.AuditLog{},
		&models.SiteSetting{},
	))

	return dbc
}

func createComponent(t *testing.T, dbc *gorm.DB, groupID uint, name, status string, order int) models.Component {
	t.Helper()

	component := models.Component{Name: name, Status: status, DisplayOrder: order, GroupID: groupID}
	require.NoError(t, dbc.Create(&component).Error)
	return component
}

func linkIncidentComponent(t *testing.T, dbc *gorm.DB, incidentID, componentID uint) {
	t.Helper()
	require.NoError(t, dbc.Exec(
		"INSERT INTO incident_components (incident_id, component_id) VALUES (?, ?)",
		incidentID, componentID).Error)
}

func TestIncidentAssembly(t *testing.T) {
	dbc := openTestDB(t)

	group := models.ComponentGroup{Name: "API"}
	require.NoError(t, dbc.Create(&group).Error)

	first := createComponent(t, dbc, group.ID, "gateway", "degraded", 0)
	second := createComponent(t, dbc, group.ID, "auth", "operational", 1)

	incident := models.Incident{Title: "Elevated error rates", Status: "investigating", Impact: "major"}
	require.NoError(t, dbc.Create(&incident).Error)

	base := time.Now().Add(-2 * time.Hour)
	for i, message := range []string{"first", "second", "third"} {
		update := models.IncidentUpdate{
			IncidentID: incident.ID,
			Message:    message,
			Status:     "investigating",
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, dbc.Create(&update).Error)
	}

	linkIncidentComponent(t, dbc, incident.ID, first.ID)
	linkIncidentComponent(t, dbc, incident.ID, second.ID)

	detail, err := Incident(dbc, incident.ID)
	require.NoError(t, err)

	assert.Equal(t, incident.ID, detail.ID)
	assert.Nil(t, detail.ResolvedAt)

	// Updates come back most recent first.
	require.Len(t, detail.Updates, 3)
	assert.Equal(t, "third", detail.Updates[0].Message)
	assert.Equal(t, "second", detail.Updates[1].Message)
	assert.Equal(t, "first", detail.Updates[2].Message)

	require.Len(t, detail.Components, 2)
	assert.Equal(t, "gateway", detail.Components[0].Name)
	assert.Equal(t, "auth", detail.Components[1].Name)
}

func TestIncidentNotFound(t *testing.T) {
	dbc := openTestDB(t)

	_, err := Incident(dbc, 42)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.Contains(t, err.Error(), "not found")
}

func TestActiveIncidents(t *testing.T) {
	dbc := openTestDB(t)

	resolvedAt := time.Now().Add(-time.Hour)
	for _, incident := range []models.Incident{
		{Title: "open one", Status: "investigating", Impact: "minor"},
		{Title: "open two", Status: "monitoring", Impact: "major"},
		{Title: "closed", Status: "resolved", Impact: "critical", ResolvedAt: &resolvedAt},
	} {
		require.NoError(t, dbc.Create(&incident).Error)
	}

	details, err := ActiveIncidents(dbc)
	require.NoError(t, err)

	require.Len(t, details, 2)
	for _, detail := range details {
		assert.NotEqual(t, "resolved", detail.Status)
	}
}

func TestRecentIncidentsBoundary(t *testing.T) {
	dbc := openTestDB(t)

	now := time.Now()
	within := now.AddDate(0, 0, -1)
	outside := now.AddDate(0, 0, -20)

	recent := models.Incident{Title: "recent", Status: "resolved", Impact: "minor", ResolvedAt: &within}
	old := models.Incident{Title: "old", Status: "resolved", Impact: "minor", ResolvedAt: &outside}
	open := models.Incident{Title: "open", Status: "investigating", Impact: "minor"}
	require.NoError(t, dbc.Create(&recent).Error)
	require.NoError(t, dbc.Create(&old).Error)
	require.NoError(t, dbc.Create(&open).Error)

	details, err := RecentIncidents(dbc, now, 15)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "recent", details[0].Title)

	details, err = RecentIncidents(dbc, now, 30)
	require.NoError(t, err)
	assert.Len(t, details, 2)
}

func TestIncidentHistoryFilters(t *testing.T) {
	dbc := openTestDB(t)

	makeIncident := func(title string, createdAt time.Time) {
		incident := models.Incident{Title: title, Status: "resolved", Impact: "minor"}
		require.NoError(t, dbc.Create(&incident).Error)
		require.NoError(t, dbc.Model(&models.Incident{}).Where("id = ?", incident.ID).
			Update("created_at", createdAt).Error)
	}

	makeIncident("march", time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
	makeIncident("july", time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))
	makeIncident("last year", time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC))

	all, err := IncidentHistory(dbc, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	year, err := IncidentHistory(dbc, 2025, 0)
	require.NoError(t, err)
	assert.Len(t, year, 2)

	march, err := IncidentHistory(dbc, 2025, 3)
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, "march", march[0].Title)
}

func TestPublicIncidents(t *testing.T) {
	dbc := openTestDB(t)

	now := time.Now()
	within := now.AddDate(0, 0, -3)
	outside := now.AddDate(0, 0, -40)

	open := models.Incident{Title: "open", Status: "identified", Impact: "major"}
	recent := models.Incident{Title: "recent", Status: "resolved", Impact: "minor", ResolvedAt: &within}
	old := models.Incident{Title: "old", Status: "resolved", Impact: "minor", ResolvedAt: &outside}
	require.NoError(t, dbc.Create(&open).Error)
	require.NoError(t, dbc.Create(&recent).Error)
	require.NoError(t, dbc.Create(&old).Error)

	onlyOpen, err := PublicIncidents(dbc, now, false, 15)
	require.NoError(t, err)
	require.Len(t, onlyOpen, 1)
	assert.Equal(t, "open", onlyOpen[0].Title)

	windowed, err := PublicIncidents(dbc, now, true, 15)
	require.NoError(t, err)
	assert.Len(t, windowed, 2)

	everything, err := PublicIncidents(dbc, now, true, 0)
	require.NoError(t, err)
	assert.Len(t, everything, 3)
}

func createWindow(t *testing.T, dbc *gorm.DB, title, status string, start, end time.Time) models.MaintenanceWindow {
	t.Helper()

	window := models.MaintenanceWindow{Title: title, Status: status, StartTime: start, EndTime: end}
	require.NoError(t, dbc.Create(&window).Error)
	return window
}

func TestActiveMaintenanceRequiresStatusAndTimeAgreement(t *testing.T) {
	dbc := openTestDB(t)

	now := time.Now()
	createWindow(t, dbc, "running", "in_progress", now.Add(-time.Hour), now.Add(time.Hour))
	createWindow(t, dbc, "flagged but future", "in_progress", now.Add(time.Hour), now.Add(2*time.Hour))
	createWindow(t, dbc, "flagged but past", "in_progress", now.Add(-3*time.Hour), now.Add(-2*time.Hour))
	createWindow(t, dbc, "scheduled now", "scheduled", now.Add(-time.Hour), now.Add(time.Hour))

	details, err := ActiveMaintenance(dbc, now)
	require.NoError(t, err)

	require.Len(t, details, 1)
	assert.Equal(t, "running", details[0].Title)
}

func TestUpcomingMaintenance(t *testing.T) {
	dbc := openTestDB(t)

	now := time.Now()
	createWindow(t, dbc, "future", "scheduled", now.Add(time.Hour), now.Add(2*time.Hour))
	createWindow(t, dbc, "already started", "scheduled", now.Add(-time.Hour), now.Add(time.Hour))
	createWindow(t, dbc, "future but completed", "completed", now.Add(time.Hour), now.Add(2*time.Hour))

	details, err := UpcomingMaintenance(dbc, now)
	require.NoError(t, err)

	require.Len(t, details, 1)
	assert.Equal(t, "future", details[0].Title)
}

func TestRecentCompletedMaintenanceWindows(t *testing.T) {
	dbc := openTestDB(t)

	now := time.Now()
	createWindow(t, dbc, "yesterday", "completed", now.AddDate(0, 0, -1).Add(-time.Hour), now.AddDate(0, 0, -1))
	createWindow(t, dbc, "twenty days ago", "completed", now.AddDate(0, 0, -20).Add(-time.Hour), now.AddDate(0, 0, -20))

	details, err := RecentCompletedMaintenance(dbc, now, 15)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "yesterday", details[0].Title)

	details, err = RecentCompletedMaintenance(dbc, now, 10)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "yesterday", details[0].Title)

	details, err = RecentCompletedMaintenance(dbc, now, 30)
	require.NoError(t, err)
	assert.Len(t, details, 2)
}

func TestPublicMaintenanceOrdering(t *testing.T) {
	dbc := openTestDB(t)

	now := time.Now()
	createWindow(t, dbc, "running", "in_progress", now.Add(-time.Hour), now.Add(time.Hour))
	createWindow(t, dbc, "upcoming", "scheduled", now.Add(24*time.Hour), now.Add(26*time.Hour))
	createWindow(t, dbc, "recently done", "completed", now.AddDate(0, 0, -2).Add(-time.Hour), now.AddDate(0, 0, -2))
	createWindow(t, dbc, "long done", "completed", now.AddDate(0, 0, -30).Add(-time.Hour), now.AddDate(0, 0, -30))

	details, err := PublicMaintenance(dbc, now)
	require.NoError(t, err)

	require.Len(t, details, 3)
	assert.Equal(t, "recently done", details[0].Title)
	assert.Equal(t, "running", details[1].Title)
	assert.Equal(t, "upcoming", details[2].Title)
}

func TestComponentGroupsListing(t *testing.T) {
	dbc := openTestDB(t)

	second := models.ComponentGroup{Name: "second", DisplayOrder: 1}
	first := models.ComponentGroup{Name: "first", DisplayOrder: 0}
	empty := models.ComponentGroup{Name: "empty", DisplayOrder: 2}
	require.NoError(t, dbc.Create(&second).Error)
	require.NoError(t, dbc.Create(&first).Error)
	require.NoError(t, dbc.Create(&empty).Error)

	createComponent(t, dbc, first.ID, "b", "operational", 1)
	createComponent(t, dbc, first.ID, "a", "operational", 0)
	createComponent(t, dbc, second.ID, "c", "degraded", 0)

	groups, err := ComponentGroups(dbc)
	require.NoError(t, err)

	require.Len(t, groups, 3)
	assert.Equal(t, "first", groups[0].Name)
	assert.Equal(t, "second", groups[1].Name)
	assert.Equal(t, "empty", groups[2].Name)

	require.Len(t, groups[0].Components, 2)
	assert.Equal(t, "a", groups[0].Components[0].Name)
	assert.Equal(t, "b", groups[0].Components[1].Name)

	// Empty groups come back with an empty slice, not nil.
	assert.NotNil(t, groups[2].Components)
	assert.Len(t, groups[2].Components, 0)
}

func TestMaintenanceAssembly(t *testing.T) {
	dbc := openTestDB(t)

	group := models.ComponentGroup{Name: "infra"}
	require.NoError(t, dbc.Create(&group).Error)
	component := createComponent(t, dbc, group.ID, "db", "under_maintenance", 0)

	now := time.Now()
	window := createWindow(t, dbc, "db upgrade", "in_progress", now.Add(-time.Hour), now.Add(time.Hour))

	require.NoError(t, dbc.Exec(
		"INSERT INTO maintenance_components (maintenance_window_id, component_id) VALUES (?, ?)",
		window.ID, component.ID).Error)

	for i, message := range []string{"starting", "halfway"} {
		update := models.MaintenanceUpdate{
			WindowID:  window.ID,
			Message:   message,
			Timestamp: now.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, dbc.Create(&update).Error)
	}

	detail, err := Maintenance(dbc, window.ID)
	require.NoError(t, err)

	require.Len(t, detail.Updates, 2)
	assert.Equal(t, "halfway", detail.Updates[0].Message)
	require.Len(t, detail.Components, 1)
	assert.Equal(t, "db", detail.Components[0].Name)

	_, err = Maintenance(dbc, window.ID+100)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}
