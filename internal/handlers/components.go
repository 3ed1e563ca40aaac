package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/aggregate"
	"github.com/signalboard/signalboard/internal/audit"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/signalboard/signalboard/internal/utils"
	"gorm.io/gorm"
)

type CreateComponentRequest struct {
	Name         string `json:"name" binding:"required"`
	Status       string `json:"status"`
	DisplayOrder *int   `json:"display_order"`
	GroupID      uint   `json:"group_id" binding:"required"`
}

type UpdateComponentRequest struct {
	Name         *string `json:"name"`
	Status       *string `json:"status"`
	DisplayOrder *int    `json:"display_order"`
	GroupID      *uint   `json:"group_id"`
}

// nextComponentDisplayOrder assigns 1 + max(display_order) among the
// components of the same group, or 0 when the group has none. Ordering is
// scoped per group: the grouped listing sorts within each group, so a
// global counter would only leave gaps.
func nextComponentDisplayOrder(tx *gorm.DB, groupID uint) (int, error) {
	var count int64
	if err := tx.Model(&models.Component{}).Where("group_id = ?", groupID).Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var max int
	if err := tx.Model(&models.Component{}).Where("group_id = ?", groupID).Select("MAX(display_order)").Scan(&max).Error; err != nil {
		return 0, err
	}

	return max + 1, nil
}

func CreateComponent(ctx *gin.Context) {
	var req CreateComponentRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if req.Status == "" {
		req.Status = string(types.StatusOperational)
	}

	if !types.IsValidComponentStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid component status"})
		return
	}

	var component models.Component

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var group models.ComponentGroup
		if err := tx.First(&group, req.GroupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: component group %d does not exist", types.ErrConflict, req.GroupID)
			}
			return err
		}

		displayOrder := 0
		if req.DisplayOrder != nil {
			displayOrder = *req.DisplayOrder
		} else {
			order, err := nextComponentDisplayOrder(tx, req.GroupID)
			if err != nil {
				return err
			}
			displayOrder = order
		}

		component = models.Component{
			Name:         req.Name,
			Status:       req.Status,
			DisplayOrder: displayOrder,
			GroupID:      req.GroupID,
		}

		if err := tx.Create(&component).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "create_component", fmt.Sprintf("created component %q in group %q", component.Name, group.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, component)
}

func ListComponents(ctx *gin.Context) {
	var components []models.Component

	if err := db.DB.Order("group_id ASC, display_order ASC, id ASC").Find(&components).Error; err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, components)
}

func GetComponent(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid component ID"})
		return
	}

	var component models.Component

	if err := db.DB.First(&component, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, fmt.Errorf("component %d %w", id, types.ErrNotFound))
		} else {
			respondError(ctx, err)
		}
		return
	}

	ctx.JSON(http.StatusOK, component)
}

func UpdateComponent(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid component ID"})
		return
	}

	var req UpdateComponentRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Status != nil && !types.IsValidComponentStatus(*req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid component status"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var component models.Component

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&component, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("component %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if req.GroupID != nil && *req.GroupID != component.GroupID {
			var group models.ComponentGroup
			if err := tx.First(&group, *req.GroupID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: component group %d does not exist", types.ErrConflict, *req.GroupID)
				}
				return err
			}
			component.GroupID = *req.GroupID
		}

		if req.Name != nil {
			component.Name = *req.Name
		}
		if req.Status != nil {
			component.Status = *req.Status
		}
		if req.DisplayOrder != nil {
			component.DisplayOrder = *req.DisplayOrder
		}

		if err := tx.Save(&component).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "update_component", fmt.Sprintf("updated component %q", component.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, component)
}

func DeleteComponent(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid component ID"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var component models.Component

		if err := tx.First(&component, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("component %d %w", id, types.ErrNotFound)
			}
			return err
		}

		// Drop join rows before the component itself.
		for _, table := range []string{"incident_components", "maintenance_components", "automation_components"} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE component_id = ?", id).Error; err != nil {
				return err
			}
		}

		if err := tx.Unscoped().Delete(&component).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "delete_component", fmt.Sprintf("deleted component %q", component.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// GetOverallStatus reports the single worst status across all components.
func GetOverallStatus(ctx *gin.Context) {
	var components []models.Component

	if err := db.DB.Find(&components).Error; err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": aggregate.OverallStatus(components)})
}
