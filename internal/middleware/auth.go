package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/auth"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
)

type AuthenticatedUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	RoleID   uint   `json:"role_id"`
}

func AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")

		if authHeader == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)

		if len(parts) != 2 || parts[0] != "Bearer" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		tokenString := parts[1]

		token, err := auth.VerifyJWT(tokenString)

		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)

		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		userIDFloat, ok := claims["user_id"].(float64)

		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token claims"})
			return
		}

		userID := uint(userIDFloat)

		var user models.User

		if err := db.DB.Where("id = ?", userID).First(&user).Error; err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			ID:       user.ID,
			Username: user.Username,
			RoleID:   user.RoleID,
		})
		ctx.Next()
	}
}

// RequirePermission gates a route group on a single permission key. Runs
// after AuthMiddleware so the user is already resolved.
func RequirePermission(key string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		value, exists := ctx.Get(types.ContextUserKey)

		if !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		user, ok := value.(AuthenticatedUser)

		if !ok || !HasPermission(user.ID, key) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
			return
		}

		ctx.Next()
	}
}

// HasPermission resolves the user's role and reports whether its
// permission map grants key, either directly or through the reserved
// "all" super-permission. Missing user, missing role, and undecodable
// permission maps all deny.
func HasPermission(userID uint, key string) bool {
	var user models.User

	if err := db.DB.Preload("Role").First(&user, userID).Error; err != nil {
		return false
	}

	permissions, err := DecodePermissions(user.Role.Permissions)
	if err != nil {
		return false
	}

	return permissions[key] || permissions[types.PermissionAll]
}

// DecodePermissions unpacks a role's JSON permission column into a
// string->bool map. A null column decodes to an empty map.
func DecodePermissions(raw []byte) (map[string]bool, error) {
	permissions := make(map[string]bool)

	if len(raw) == 0 {
		return permissions, nil
	}

	if err := json.Unmarshal(raw, &permissions); err != nil {
		return nil, err
	}

	return permissions, nil
}
