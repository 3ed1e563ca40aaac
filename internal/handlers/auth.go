package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/auth"
	"github.com/signalboard/signalboard/internal/middleware"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginUser verifies credentials and issues a session token. Unknown
// username and wrong password answer identically so usernames cannot be
// enumerated.
func LoginUser(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	var user models.User

	err := db.DB.Preload("Role").Where("username = ?", req.Username).First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		logrus.WithError(err).Error("login lookup failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Username)

	if err != nil {
		logrus.WithError(err).Error("failed to generate token")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": types.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role.Name,
			RoleID:   user.RoleID,
		},
	})
}

// Me returns the authenticated caller together with their effective
// permission map.
func Me(ctx *gin.Context) {
	value, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	currentUser, ok := value.(middleware.AuthenticatedUser)

	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User

	if err := db.DB.Preload("Role").First(&user, currentUser.ID).Error; err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	permissions, err := middleware.DecodePermissions(user.Role.Permissions)
	if err != nil {
		logrus.WithError(err).Error("failed to decode role permissions")
		permissions = map[string]bool{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role.Name,
			RoleID:   user.RoleID,
			Perms:    permissions,
		},
	})
}
