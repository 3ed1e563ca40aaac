package handlers

import (
	"net/http"
	"os"
	"testing"

	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/auth"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

func TestLoginDoesNotRevealWhichCredentialFailed(t *testing.T) {
	setupTestDB(t)
	os.Setenv("JWT_SECRET", "test-secret")
	require.NoError(t, auth.InitJWTSecret())

	role := models.Role{Name: "admin", Permissions: datatypes.JSON(`{"all": true}`)}
	require.NoError(t, db.DB.Create(&role).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := models.User{Username: "alice", PasswordHash: string(hash), RoleID: role.ID}
	require.NoError(t, db.DB.Create(&user).Error)

	ctx, recorder := newTestContext(t, http.MethodPost, LoginRequest{
		Username: "nobody",
		Password: "whatever",
	}, nil)
	LoginUser(ctx)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	unknownUserBody := recorder.Body.String()

	ctx, recorder = newTestContext(t, http.MethodPost, LoginRequest{
		Username: "alice",
		Password: "wrong",
	}, nil)
	LoginUser(ctx)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	// Same body both ways so a caller cannot probe for valid usernames.
	assert.Equal(t, unknownUserBody, recorder.Body.String())
	assert.Contains(t, recorder.Body.String(), "Invalid username or password")
}

func TestLoginSuccessReturnsTokenAndUser(t *testing.T) {
	setupTestDB(t)
	os.Setenv("JWT_SECRET", "test-secret")
	require.NoError(t, auth.InitJWTSecret())

	role := models.Role{Name: "admin", Permissions: datatypes.JSON(`{"all": true}`)}
	require.NoError(t, db.DB.Create(&role).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := models.User{Username: "alice", PasswordHash: string(hash), RoleID: role.ID}
	require.NoError(t, db.DB.Create(&user).Error)

	ctx, recorder := newTestContext(t, http.MethodPost, LoginRequest{
		Username: "alice",
		Password: "correct horse",
	}, nil)
	LoginUser(ctx)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"token"`)
	assert.Contains(t, recorder.Body.String(), `"alice"`)
	assert.NotContains(t, recorder.Body.String(), user.PasswordHash)
}
