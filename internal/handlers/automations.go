package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/audit"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/signalboard/signalboard/internal/utils"
	"gorm.io/gorm"
)

type CreateAutomationRequest struct {
	Name         string `json:"name" binding:"required"`
	NewStatus    string `json:"new_status" binding:"required"`
	ComponentIDs []uint `json:"component_ids"`
}

type UpdateAutomationRequest struct {
	Name         *string `json:"name"`
	NewStatus    *string `json:"new_status"`
	ComponentIDs *[]uint `json:"component_ids"`
}

type AutomationComponentsRequest struct {
	ComponentIDs []uint `json:"component_ids" binding:"required"`
}

type AutomationResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	NewStatus    string `json:"new_status"`
	ComponentIDs []uint `json:"component_ids"`
}

func automationTargetIDs(tx *gorm.DB, automationID uint) ([]uint, error) {
	var ids []uint

	if err := tx.Table("automation_components").
		Where("automation_id = ?", automationID).
		Pluck("component_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func automationResponse(tx *gorm.DB, automation models.Automation) (AutomationResponse, error) {
	ids, err := automationTargetIDs(tx, automation.ID)
	if err != nil {
		return AutomationResponse{}, err
	}
	if ids == nil {
		ids = []uint{}
	}

	return AutomationResponse{
		ID:           automation.ID,
		Name:         automation.Name,
		NewStatus:    automation.NewStatus,
		ComponentIDs: ids,
	}, nil
}

func CreateAutomation(ctx *gin.Context) {
	var req CreateAutomationRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !types.IsValidComponentStatus(req.NewStatus) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid component status"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	automation := models.Automation{
		Name:      req.Name,
		NewStatus: req.NewStatus,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := checkComponentsExist(tx, req.ComponentIDs); err != nil {
			return err
		}

		if err := tx.Create(&automation).Error; err != nil {
			return err
		}

		for _, componentID := range req.ComponentIDs {
			if err := tx.Exec("INSERT INTO automation_components (automation_id, component_id) VALUES (?, ?)",
				automation.ID, componentID).Error; err != nil {
				return err
			}
		}

		return audit.Record(tx, currentUser.Username, "create_automation",
			fmt.Sprintf("created automation %q targeting %d components", automation.Name, len(req.ComponentIDs)))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	response, err := automationResponse(db.DB, automation)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, response)
}

func ListAutomations(ctx *gin.Context) {
	var automations []models.Automation

	if err := db.DB.Order("id ASC").Find(&automations).Error; err != nil {
		respondError(ctx, err)
		return
	}

	response := make([]AutomationResponse, 0, len(automations))
	for _, automation := range automations {
		item, err := automationResponse(db.DB, automation)
		if err != nil {
			respondError(ctx, err)
			return
		}
		response = append(response, item)
	}

	ctx.JSON(http.StatusOK, response)
}

func GetAutomation(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	var automation models.Automation

	if err := db.DB.First(&automation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, fmt.Errorf("automation %d %w", id, types.ErrNotFound))
		} else {
			respondError(ctx, err)
		}
		return
	}

	response, err := automationResponse(db.DB, automation)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}

func UpdateAutomation(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	var req UpdateAutomationRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.NewStatus != nil && !types.IsValidComponentStatus(*req.NewStatus) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid component status"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var automation models.Automation

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&automation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("automation %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if req.Name != nil {
			automation.Name = *req.Name
		}
		if req.NewStatus != nil {
			automation.NewStatus = *req.NewStatus
		}

		if err := tx.Save(&automation).Error; err != nil {
			return err
		}

		if req.ComponentIDs != nil {
			if err := checkComponentsExist(tx, *req.ComponentIDs); err != nil {
				return err
			}
			if err := tx.Exec("DELETE FROM automation_components WHERE automation_id = ?", id).Error; err != nil {
				return err
			}
			for _, componentID := range *req.ComponentIDs {
				if err := tx.Exec("INSERT INTO automation_components (automation_id, component_id) VALUES (?, ?)",
					id, componentID).Error; err != nil {
					return err
				}
			}
		}

		return audit.Record(tx, currentUser.Username, "update_automation", fmt.Sprintf("updated automation %q", automation.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	response, err := automationResponse(db.DB, automation)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}

func DeleteAutomation(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var automation models.Automation

		if err := tx.First(&automation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("automation %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if err := tx.Exec("DELETE FROM automation_components WHERE automation_id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Delete(&automation).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "delete_automation", fmt.Sprintf("deleted automation %q", automation.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// ExecuteAutomation forces every target component to the automation's
// status in one batch write. A target-less automation is a successful
// no-op; the run is audited either way.
func ExecuteAutomation(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var affected int

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var automation models.Automation

		if err := tx.First(&automation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("automation %d %w", id, types.ErrNotFound)
			}
			return err
		}

		targets, err := automationTargetIDs(tx, id)
		if err != nil {
			return err
		}

		if len(targets) > 0 {
			if err := tx.Model(&models.Component{}).
				Where("id IN ?", targets).
				Update("status", automation.NewStatus).Error; err != nil {
				return err
			}
		}

		affected = len(targets)

		return audit.Record(tx, currentUser.Username, "execute_automation",
			fmt.Sprintf("executed automation %q: set %d components to %s", automation.Name, affected, automation.NewStatus))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"affected_components": affected, "success": true})
}

// AddAutomationComponents appends targets, skipping ones already linked.
func AddAutomationComponents(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	var req AutomationComponentsRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var automation models.Automation

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&automation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("automation %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if err := checkComponentsExist(tx, req.ComponentIDs); err != nil {
			return err
		}

		existing, err := automationTargetIDs(tx, id)
		if err != nil {
			return err
		}

		linked := make(map[uint]bool, len(existing))
		for _, componentID := range existing {
			linked[componentID] = true
		}

		added := 0
		for _, componentID := range req.ComponentIDs {
			if linked[componentID] {
				continue
			}
			if err := tx.Exec("INSERT INTO automation_components (automation_id, component_id) VALUES (?, ?)",
				id, componentID).Error; err != nil {
				return err
			}
			linked[componentID] = true
			added++
		}

		return audit.Record(tx, currentUser.Username, "add_automation_components",
			fmt.Sprintf("added %d components to automation %q", added, automation.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	response, err := automationResponse(db.DB, automation)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}

func RemoveAutomationComponents(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	var req AutomationComponentsRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var automation models.Automation

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&automation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("automation %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if len(req.ComponentIDs) > 0 {
			if err := tx.Exec("DELETE FROM automation_components WHERE automation_id = ? AND component_id IN ?",
				id, req.ComponentIDs).Error; err != nil {
				return err
			}
		}

		return audit.Record(tx, currentUser.Username, "remove_automation_components",
			fmt.Sprintf("removed %d components from automation %q", len(req.ComponentIDs), automation.Name))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	response, err := automationResponse(db.DB, automation)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}
