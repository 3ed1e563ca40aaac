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

type CreateComponentGroupRequest struct {
	Name               string `json:"name" binding:"required"`
	DisplayOrder       *int   `json:"display_order"`
	CollapsedByDefault bool   `json:"collapsed_by_default"`
}

type UpdateComponentGroupRequest struct {
	Name               *string `json:"name"`
	DisplayOrder       *int    `json:"display_order"`
	CollapsedByDefault *bool   `json:"collapsed_by_default"`
}

// nextGroupDisplayOrder assigns 1 + max(display_order) across existing
// groups, or 0 for the first group.
func nextGroupDisplayOrder(tx *gorm.DB) (int, error) {
	var count int64
	if err := tx.Model(&models.ComponentGroup{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var max int
	if err := tx.Model(&models.ComponentGroup{}).Select("MAX(display_order)").Scan(&max).Error; err != nil {
		return 0, err
	}

	return max + 1, nil
}

func CreateComponentGroup(ctx *gin.Context) {
	var req CreateComponentGroupRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var group models.ComponentGroup

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		displayOrder := 0
		if req.DisplayOrder != nil {
			displayOrder = *req.DisplayOrder
		} else {
			order, err := nextGroupDisplayOrder(tx)
			if err != nil {
				return err
			}
			displayOrder = order
		}

		group = models.ComponentGroup{
			Name:               req.Name,
			DisplayOrder:       displayOrder,
			CollapsedByDefault: req.CollapsedByDefault,
		}

		if err := tx.Create(&group).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "create_component_group", fmt.Sprintf("created component group %q", group.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, group)
}

// ListComponentGroups returns every group with its components, both in
// display order.
func ListComponentGroups(ctx *gin.Context) {
	groups, err := aggregate.ComponentGroups(db.DB)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, groups)
}

func GetComponentGroup(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var group models.ComponentGroup

	if err := db.DB.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, fmt.Errorf("component group %d %w", id, types.ErrNotFound))
		} else {
			respondError(ctx, err)
		}
		return
	}

	ctx.JSON(http.StatusOK, group)
}

func UpdateComponentGroup(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var req UpdateComponentGroupRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var group models.ComponentGroup

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&group, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("component group %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if req.Name != nil {
			group.Name = *req.Name
		}
		if req.DisplayOrder != nil {
			group.DisplayOrder = *req.DisplayOrder
		}
		if req.CollapsedByDefault != nil {
			group.CollapsedByDefault = *req.CollapsedByDefault
		}

		if err := tx.Save(&group).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "update_component_group", fmt.Sprintf("updated component group %q", group.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, group)
}

func DeleteComponentGroup(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var group models.ComponentGroup

		if err := tx.First(&group, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("component group %d %w", id, types.ErrNotFound)
			}
			return err
		}

		var components int64
		if err := tx.Model(&models.Component{}).Where("group_id = ?", id).Count(&components).Error; err != nil {
			return err
		}
		if components > 0 {
			return fmt.Errorf("%w: cannot delete group %q: it contains components", types.ErrConflict, group.Name)
		}

		if err := tx.Unscoped().Delete(&group).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "delete_component_group", fmt.Sprintf("deleted component group %q", group.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
