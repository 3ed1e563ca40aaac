package middleware

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbc, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, dbc.AutoMigrate(&models.Role{}, &models.User{}))

	db.DB = dbc
}

func createUserWithPermissions(t *testing.T, username string, permissions string) models.User {
	t.Helper()

	role := models.Role{Name: username + "-role", Permissions: datatypes.JSON(permissions)}
	require.NoError(t, db.DB.Create(&role).Error)
	user := models.User{Username: username, PasswordHash: "x", RoleID: role.ID}
	require.NoError(t, db.DB.Create(&user).Error)
	return user
}

func TestHasPermission(t *testing.T) {
	setupTestDB(t)

	admin := createUserWithPermissions(t, "admin", `{"all": true}`)
	operator := createUserWithPermissions(t, "operator", `{"manage_incidents": true, "manage_components": false}`)
	nobody := createUserWithPermissions(t, "nobody", `{}`)

	// "all" grants every key without listing them.
	assert.True(t, HasPermission(admin.ID, types.PermissionManageRoles))
	assert.True(t, HasPermission(admin.ID, types.PermissionManageIncidents))

	assert.True(t, HasPermission(operator.ID, types.PermissionManageIncidents))
	assert.False(t, HasPermission(operator.ID, types.PermissionManageComponents))
	assert.False(t, HasPermission(operator.ID, types.PermissionManageRoles))

	assert.False(t, HasPermission(nobody.ID, types.PermissionManageIncidents))
	assert.False(t, HasPermission(99999, types.PermissionManageIncidents))
}

func TestDecodePermissions(t *testing.T) {
	permissions, err := DecodePermissions([]byte(`{"manage_users": true}`))
	require.NoError(t, err)
	assert.True(t, permissions["manage_users"])
	assert.False(t, permissions["manage_roles"])

	permissions, err = DecodePermissions(nil)
	require.NoError(t, err)
	assert.Empty(t, permissions)

	_, err = DecodePermissions([]byte(`not json`))
	assert.Error(t, err)
}
