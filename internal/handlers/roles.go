package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/audit"
	"github.com/signalboard/signalboard/internal/middleware"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/signalboard/signalboard/internal/utils"
	"gorm.io/gorm"
)

type CreateRoleRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Permissions map[string]bool `json:"permissions"`
}

type UpdateRoleRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Permissions *map[string]bool `json:"permissions"`
}

type RoleResponse struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Permissions map[string]bool `json:"permissions"`
}

func roleResponse(role models.Role) RoleResponse {
	permissions, err := middleware.DecodePermissions(role.Permissions)
	if err != nil {
		permissions = map[string]bool{}
	}

	return RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: permissions,
	}
}

func CreateRole(ctx *gin.Context) {
	var req CreateRoleRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if req.Permissions == nil {
		req.Permissions = map[string]bool{}
	}

	permissionsJSON, err := json.Marshal(req.Permissions)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid permissions format"})
		return
	}

	role := models.Role{
		Name:        req.Name,
		Description: req.Description,
		Permissions: permissionsJSON,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Role{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: role %q already exists", types.ErrConflict, req.Name)
		}

		if err := tx.Create(&role).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "create_role", fmt.Sprintf("created role %q", role.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, roleResponse(role))
}

func ListRoles(ctx *gin.Context) {
	var roles []models.Role

	if err := db.DB.Order("id ASC").Find(&roles).Error; err != nil {
		respondError(ctx, err)
		return
	}

	response := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		response = append(response, roleResponse(role))
	}

	ctx.JSON(http.StatusOK, response)
}

func GetRole(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role ID"})
		return
	}

	var role models.Role

	if err := db.DB.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, fmt.Errorf("role %d %w", id, types.ErrNotFound))
		} else {
			respondError(ctx, err)
		}
		return
	}

	ctx.JSON(http.StatusOK, roleResponse(role))
}

func UpdateRole(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role ID"})
		return
	}

	var req UpdateRoleRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var role models.Role

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("role %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if req.Name != nil && *req.Name != role.Name {
			var count int64
			if err := tx.Model(&models.Role{}).Where("name = ? AND id <> ?", *req.Name, id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("%w: role %q already exists", types.ErrConflict, *req.Name)
			}
			role.Name = *req.Name
		}

		if req.Description != nil {
			role.Description = *req.Description
		}

		if req.Permissions != nil {
			permissionsJSON, err := json.Marshal(*req.Permissions)
			if err != nil {
				return err
			}
			role.Permissions = permissionsJSON
		}

		if err := tx.Save(&role).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "update_role", fmt.Sprintf("updated role %q", role.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, roleResponse(role))
}

func DeleteRole(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role ID"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var role models.Role

		if err := tx.First(&role, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("role %d %w", id, types.ErrNotFound)
			}
			return err
		}

		var users int64
		if err := tx.Model(&models.User{}).Where("role_id = ?", id).Count(&users).Error; err != nil {
			return err
		}
		if users > 0 {
			return fmt.Errorf("%w: cannot delete role %q: users are assigned to it", types.ErrConflict, role.Name)
		}

		if err := tx.Unscoped().Delete(&role).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "delete_role", fmt.Sprintf("deleted role %q", role.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
