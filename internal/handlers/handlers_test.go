package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/middleware"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	db.DB = dbc
}

// newTestContext builds a gin context with an authenticated admin user,
// an optional JSON body, and route params.
func newTestContext(t *testing.T, method string, body interface{}, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)

	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	ctx.Request = httptest.NewRequest(method, "/", reader)
	ctx.Request.Header.Set("Content-Type", "application/json")
	ctx.Params = params
	ctx.Set(types.ContextUserKey, middleware.AuthenticatedUser{ID: 1, Username: "admin", RoleID: 1})

	return ctx, recorder
}

func mustCreateGroup(t *testing.T, name string) models.ComponentGroup {
	t.Helper()
	group := models.ComponentGroup{Name: name}
	require.NoError(t, db.DB.Create(&group).Error)
	return group
}

func mustCreateComponent(t *testing.T, groupID uint, name, status string) models.Component {
	t.Helper()
	component := models.Component{Name: name, Status: status, GroupID: groupID}
	require.NoError(t, db.DB.Create(&component).Error)
	return component
}

func TestDeleteComponentGroupGuard(t *testing.T) {
	setupTestDB(t)

	group := mustCreateGroup(t, "core")
	mustCreateComponent(t, group.ID, "api", "operational")

	ctx, recorder := newTestContext(t, http.MethodDelete, nil,
		gin.Params{{Key: "id", Value: fmt.Sprint(group.ID)}})
	DeleteComponentGroup(ctx)

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "contains components")

	empty := mustCreateGroup(t, "empty")
	ctx, recorder = newTestContext(t, http.MethodDelete, nil,
		gin.Params{{Key: "id", Value: fmt.Sprint(empty.ID)}})
	DeleteComponentGroup(ctx)
	ctx.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestDeleteRoleGuard(t *testing.T) {
	setupTestDB(t)

	role := models.Role{Name: "operator"}
	require.NoError(t, db.DB.Create(&role).Error)
	user := models.User{Username: "op", PasswordHash: "x", RoleID: role.ID}
	require.NoError(t, db.DB.Create(&user).Error)

	ctx, recorder := newTestContext(t, http.MethodDelete, nil,
		gin.Params{{Key: "id", Value: fmt.Sprint(role.ID)}})
	DeleteRole(ctx)

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "users are assigned")

	unused := models.Role{Name: "unused"}
	require.NoError(t, db.DB.Create(&unused).Error)

	ctx, recorder = newTestContext(t, http.MethodDelete, nil,
		gin.Params{{Key: "id", Value: fmt.Sprint(unused.ID)}})
	DeleteRole(ctx)
	ctx.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestCreateIncidentComposite(t *testing.T) {
	setupTestDB(t)

	group := mustCreateGroup(t, "core")
	first := mustCreateComponent(t, group.ID, "api", "operational")
	second := mustCreateComponent(t, group.ID, "worker", "operational")

	ctx, recorder := newTestContext(t, http.MethodPost, CreateIncidentRequest{
		Title:                "Elevated latency",
		Status:               "investigating",
		Impact:               "major",
		InitialUpdateMessage: "We are looking into it",
		AffectedComponentIDs: []uint{first.ID, second.ID},
	}, nil)
	CreateIncident(ctx)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var detail struct {
		ID         uint                     `json:"id"`
		ResolvedAt *time.Time               `json:"resolved_at"`
		Updates    []map[string]interface{} `json:"updates"`
		Components []map[string]interface{} `json:"affected_components"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &detail))

	assert.Nil(t, detail.ResolvedAt)
	require.Len(t, detail.Updates, 1)
	assert.Equal(t, "We are looking into it", detail.Updates[0]["message"])
	assert.Equal(t, "investigating", detail.Updates[0]["status"])
	assert.Len(t, detail.Components, 2)

	// The whole create is one transaction; the audit entry landed too.
	var audits int64
	require.NoError(t, db.DB.Model(&models.AuditLog{}).Where("action = ?", "create_incident").Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestCreateIncidentRejectsUnknownComponents(t *testing.T) {
	setupTestDB(t)

	ctx, recorder := newTestContext(t, http.MethodPost, CreateIncidentRequest{
		Title:                "Bad refs",
		Status:               "investigating",
		Impact:               "minor",
		AffectedComponentIDs: []uint{999},
	}, nil)
	CreateIncident(ctx)

	assert.Equal(t, http.StatusConflict, recorder.Code)

	// Rolled back: no incident row survives the failed create.
	var incidents int64
	require.NoError(t, db.DB.Model(&models.Incident{}).Count(&incidents).Error)
	assert.Equal(t, int64(0), incidents)
}

func TestCreateIncidentUpdatePropagatesStatus(t *testing.T) {
	setupTestDB(t)

	incident := models.Incident{Title: "Outage", Status: "investigating", Impact: "critical"}
	require.NoError(t, db.DB.Create(&incident).Error)

	ctx, recorder := newTestContext(t, http.MethodPost, CreateIncidentUpdateRequest{
		Message: "Mitigation in place",
		Status:  "monitoring",
	}, gin.Params{{Key: "id", Value: fmt.Sprint(incident.ID)}})
	CreateIncidentUpdate(ctx)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var reloaded models.Incident
	require.NoError(t, db.DB.First(&reloaded, incident.ID).Error)
	assert.Equal(t, "monitoring", reloaded.Status)
	assert.Nil(t, reloaded.ResolvedAt)
}

func TestCreateIncidentUpdateResolvedStampsParent(t *testing.T) {
	setupTestDB(t)

	incident := models.Incident{Title: "Outage", Status: "monitoring", Impact: "major"}
	require.NoError(t, db.DB.Create(&incident).Error)

	ctx, recorder := newTestContext(t, http.MethodPost, CreateIncidentUpdateRequest{
		Message: "All clear",
		Status:  "resolved",
	}, gin.Params{{Key: "id", Value: fmt.Sprint(incident.ID)}})
	CreateIncidentUpdate(ctx)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var reloaded models.Incident
	require.NoError(t, db.DB.First(&reloaded, incident.ID).Error)
	assert.Equal(t, "resolved", reloaded.Status)
	require.NotNil(t, reloaded.ResolvedAt)
	assert.WithinDuration(t, time.Now(), *reloaded.ResolvedAt, time.Minute)
}

func TestUpdateIncidentResolvedStamps(t *testing.T) {
	setupTestDB(t)

	incident := models.Incident{Title: "Outage", Status: "monitoring", Impact: "major"}
	require.NoError(t, db.DB.Create(&incident).Error)

	status := "resolved"
	ctx, recorder := newTestContext(t, http.MethodPatch, UpdateIncidentRequest{
		Status: &status,
	}, gin.Params{{Key: "id", Value: fmt.Sprint(incident.ID)}})
	UpdateIncident(ctx)

	require.Equal(t, http.StatusOK, recorder.Code)

	var reloaded models.Incident
	require.NoError(t, db.DB.First(&reloaded, incident.ID).Error)
	require.NotNil(t, reloaded.ResolvedAt)
}

func TestUpdateIncidentNotFound(t *testing.T) {
	setupTestDB(t)

	title := "nope"
	ctx, recorder := newTestContext(t, http.MethodPatch, UpdateIncidentRequest{
		Title: &title,
	}, gin.Params{{Key: "id", Value: "12345"}})
	UpdateIncident(ctx)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "not found")
}

func TestDeleteIncidentCascades(t *testing.T) {
	setupTestDB(t)

	group := mustCreateGroup(t, "core")
	component := mustCreateComponent(t, group.ID, "api", "operational")

	incident := models.Incident{Title: "Outage", Status: "investigating", Impact: "minor"}
	require.NoError(t, db.DB.Create(&incident).Error)
	update := models.IncidentUpdate{IncidentID: incident.ID, Message: "m", Status: "investigating", Timestamp: time.Now()}
	require.NoError(t, db.DB.Create(&update).Error)
	require.NoError(t, db.DB.Exec(
		"INSERT INTO incident_components (incident_id, component_id) VALUES (?, ?)",
		incident.ID, component.ID).Error)

	ctx, recorder := newTestContext(t, http.MethodDelete, nil,
		gin.Params{{Key: "id", Value: fmt.Sprint(incident.ID)}})
	DeleteIncident(ctx)
	ctx.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, recorder.Code)

	var updates, links int64
	require.NoError(t, db.DB.Model(&models.IncidentUpdate{}).Where("incident_id = ?", incident.ID).Count(&updates).Error)
	require.NoError(t, db.DB.Table("incident_components").Where("incident_id = ?", incident.ID).Count(&links).Error)
	assert.Equal(t, int64(0), updates)
	assert.Equal(t, int64(0), links)

	// The affected component outlives the incident.
	var components int64
	require.NoError(t, db.DB.Model(&models.Component{}).Count(&components).Error)
	assert.Equal(t, int64(1), components)
}

func TestExecuteAutomation(t *testing.T) {
	setupTestDB(t)

	group := mustCreateGroup(t, "core")
	first := mustCreateComponent(t, group.ID, "api", "operational")
	second := mustCreateComponent(t, group.ID, "worker", "degraded")

	automation := models.Automation{Name: "kill switch", NewStatus: "major_outage"}
	require.NoError(t, db.DB.Create(&automation).Error)
	for _, componentID := range []uint{first.ID, second.ID} {
		require.NoError(t, db.DB.Exec(
			"INSERT INTO automation_components (automation_id, component_id) VALUES (?, ?)",
			automation.ID, componentID).Error)
	}

	ctx, recorder := newTestContext(t, http.MethodPost, nil,
		gin.Params{{Key: "id", Value: fmt.Sprint(automation.ID)}})
	ExecuteAutomation(ctx)

	require.Equal(t, http.StatusOK, recorder.Code)

	var result struct {
		Affected int  `json:"affected_components"`
		Success  bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Affected)
	assert.True(t, result.Success)

	for _, componentID := range []uint{first.ID, second.ID} {
		var component models.Component
		require.NoError(t, db.DB.First(&component, componentID).Error)
		assert.Equal(t, "major_outage", component.Status)
	}
}

func TestExecuteAutomationWithoutTargets(t *testing.T) {
	setupTestDB(t)

	automation := models.Automation{Name: "noop", NewStatus: "operational"}
	require.NoError(t, db.DB.Create(&automation).Error)

	ctx, recorder := newTestContext(t, http.MethodPost, nil,
		gin.Params{{Key: "id", Value: fmt.Sprint(automation.ID)}})
	ExecuteAutomation(ctx)

	require.Equal(t, http.StatusOK, recorder.Code)

	var result struct {
		Affected int  `json:"affected_components"`
		Success  bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.Equal(t, 0, result.Affected)
	assert.True(t, result.Success)

	// The run is audited even when nothing changed.
	var audits int64
	require.NoError(t, db.DB.Model(&models.AuditLog{}).Where("action = ?", "execute_automation").Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestExecuteAutomationNotFound(t *testing.T) {
	setupTestDB(t)

	ctx, recorder := newTestContext(t, http.MethodPost, nil,
		gin.Params{{Key: "id", Value: "999"}})
	ExecuteAutomation(ctx)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreateComponentDisplayOrderScopedToGroup(t *testing.T) {
	setupTestDB(t)

	first := mustCreateGroup(t, "first")
	second := mustCreateGroup(t, "second")

	create := func(groupID uint, name string) models.Component {
		ctx, recorder := newTestContext(t, http.MethodPost, CreateComponentRequest{
			Name:    name,
			GroupID: groupID,
		}, nil)
		CreateComponent(ctx)
		require.Equal(t, http.StatusCreated, recorder.Code)

		var component models.Component
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &component))
		return component
	}

	a := create(first.ID, "a")
	b := create(first.ID, "b")
	c := create(second.ID, "c")

	assert.Equal(t, 0, a.DisplayOrder)
	assert.Equal(t, 1, b.DisplayOrder)
	// A fresh group starts from zero; ordering does not leak across groups.
	assert.Equal(t, 0, c.DisplayOrder)
}

func TestSiteSettingUpsert(t *testing.T) {
	setupTestDB(t)

	value := "v"
	ctx, recorder := newTestContext(t, http.MethodPut, UpdateSiteSettingRequest{Key: "k", Value: &value}, nil)
	UpdateSiteSetting(ctx)
	require.Equal(t, http.StatusOK, recorder.Code)

	var firstWrite SiteSettingResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &firstWrite))

	next := "v2"
	ctx, recorder = newTestContext(t, http.MethodPut, UpdateSiteSettingRequest{Key: "k", Value: &next}, nil)
	UpdateSiteSetting(ctx)
	require.Equal(t, http.StatusOK, recorder.Code)

	var secondWrite SiteSettingResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &secondWrite))

	assert.Equal(t, firstWrite.ID, secondWrite.ID)
	require.NotNil(t, secondWrite.Value)
	assert.Equal(t, "v2", *secondWrite.Value)

	var rows int64
	require.NoError(t, db.DB.Model(&models.SiteSetting{}).Where("key = ?", "k").Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestMaintenanceModeMessageSemantics(t *testing.T) {
	setupTestDB(t)

	message := "msg"
	ctx, recorder := newTestContext(t, http.MethodPut, SetMaintenanceModeRequest{Enabled: true, Message: &message}, nil)
	SetMaintenanceMode(ctx)
	require.Equal(t, http.StatusOK, recorder.Code)

	// Toggling the flag without a message leaves the stored one alone.
	ctx, recorder = newTestContext(t, http.MethodPut, SetMaintenanceModeRequest{Enabled: false}, nil)
	SetMaintenanceMode(ctx)
	require.Equal(t, http.StatusOK, recorder.Code)

	assert.False(t, maintenanceModeEnabled(db.DB))
	stored := maintenanceModeMessage(db.DB)
	require.NotNil(t, stored)
	assert.Equal(t, "msg", *stored)

	// An explicit empty string clears the message to "", not null.
	empty := ""
	ctx, recorder = newTestContext(t, http.MethodPut, SetMaintenanceModeRequest{Enabled: true, Message: &empty}, nil)
	SetMaintenanceMode(ctx)
	require.Equal(t, http.StatusOK, recorder.Code)

	assert.True(t, maintenanceModeEnabled(db.DB))
	stored = maintenanceModeMessage(db.DB)
	require.NotNil(t, stored)
	assert.Equal(t, "", *stored)
}
