package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/aggregate"
	"github.com/signalboard/signalboard/internal/audit"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/signalboard/signalboard/internal/utils"
	"gorm.io/gorm"
)

type CreateMaintenanceRequest struct {
	Title                string    `json:"title" binding:"required"`
	Description          string    `json:"description"`
	StartTime            time.Time `json:"start_time" binding:"required"`
	EndTime              time.Time `json:"end_time" binding:"required"`
	Status               string    `json:"status"`
	AffectedComponentIDs []uint    `json:"affected_component_ids"`
}

type UpdateMaintenanceRequest struct {
	Title                *string    `json:"title"`
	Description          *string    `json:"description"`
	StartTime            *time.Time `json:"start_time"`
	EndTime              *time.Time `json:"end_time"`
	Status               *string    `json:"status"`
	AffectedComponentIDs *[]uint    `json:"affected_component_ids"`
}

type CreateMaintenanceUpdateRequest struct {
	Message   string     `json:"message" binding:"required"`
	Timestamp *time.Time `json:"timestamp"`
}

type UpdateMaintenanceUpdateRequest struct {
	Message   *string    `json:"message"`
	Timestamp *time.Time `json:"timestamp"`
}

func replaceMaintenanceComponents(tx *gorm.DB, windowID uint, componentIDs []uint) error {
	if err := checkComponentsExist(tx, componentIDs); err != nil {
		return err
	}

	if err := tx.Exec("DELETE FROM maintenance_components WHERE maintenance_window_id = ?", windowID).Error; err != nil {
		return err
	}

	for _, componentID := range componentIDs {
		if err := tx.Exec("INSERT INTO maintenance_components (maintenance_window_id, component_id) VALUES (?, ?)",
			windowID, componentID).Error; err != nil {
			return err
		}
	}

	return nil
}

func CreateMaintenance(ctx *gin.Context) {
	var req CreateMaintenanceRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Status == "" {
		req.Status = string(types.MaintenanceScheduled)
	}

	if !types.IsValidMaintenanceStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maintenance status"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	window := models.MaintenanceWindow{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      req.Status,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&window).Error; err != nil {
			return err
		}

		if err := replaceMaintenanceComponents(tx, window.ID, req.AffectedComponentIDs); err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "create_maintenance",
			fmt.Sprintf("scheduled maintenance %q affecting %d components", window.Title, len(req.AffectedComponentIDs)))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	detail, err := aggregate.Maintenance(db.DB, window.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, detail)
}

func GetMaintenance(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maintenance ID"})
		return
	}

	detail, err := aggregate.Maintenance(db.DB, id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

func ListMaintenance(ctx *gin.Context) {
	details, err := aggregate.AllMaintenance(db.DB)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, details)
}

func GetActiveMaintenance(ctx *gin.Context) {
	details, err := aggregate.ActiveMaintenance(db.DB, time.Now())
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, details)
}

func GetUpcomingMaintenance(ctx *gin.Context) {
	details, err := aggregate.UpcomingMaintenance(db.DB, time.Now())
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, details)
}

func GetRecentCompletedMaintenance(ctx *gin.Context) {
	days := types.RecentWindowDays()
	if raw := ctx.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}

	details, err := aggregate.RecentCompletedMaintenance(db.DB, time.Now(), days)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, details)
}

func UpdateMaintenance(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maintenance ID"})
		return
	}

	var req UpdateMaintenanceRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Status != nil && !types.IsValidMaintenanceStatus(*req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maintenance status"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var window models.MaintenanceWindow

		if err := tx.First(&window, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("maintenance window %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if req.Title != nil {
			window.Title = *req.Title
		}
		if req.Description != nil {
			window.Description = *req.Description
		}
		if req.StartTime != nil {
			window.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			window.EndTime = *req.EndTime
		}
		if req.Status != nil {
			window.Status = *req.Status
		}

		if err := tx.Save(&window).Error; err != nil {
			return err
		}

		if req.AffectedComponentIDs != nil {
			if err := replaceMaintenanceComponents(tx, window.ID, *req.AffectedComponentIDs); err != nil {
				return err
			}
		}

		return audit.Record(tx, currentUser.Username, "update_maintenance", fmt.Sprintf("updated maintenance %q", window.Title))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	detail, err := aggregate.Maintenance(db.DB, id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

func DeleteMaintenance(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maintenance ID"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var window models.MaintenanceWindow

		if err := tx.First(&window, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("maintenance window %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if err := tx.Where("window_id = ?", id).Unscoped().Delete(&models.MaintenanceUpdate{}).Error; err != nil {
			return err
		}

		if err := tx.Exec("DELETE FROM maintenance_components WHERE maintenance_window_id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Delete(&window).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "delete_maintenance", fmt.Sprintf("deleted maintenance %q", window.Title))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func CreateMaintenanceUpdate(ctx *gin.Context) {
	windowID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maintenance ID"})
		return
	}

	var req CreateMaintenanceUpdateRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	timestamp := time.Now()
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	var update models.MaintenanceUpdate

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var window models.MaintenanceWindow

		if err := tx.First(&window, windowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("maintenance window %d %w", windowID, types.ErrNotFound)
			}
			return err
		}

		update = models.MaintenanceUpdate{
			WindowID:  windowID,
			Message:   req.Message,
			Timestamp: timestamp,
		}

		if err := tx.Create(&update).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "create_maintenance_update",
			fmt.Sprintf("posted update to maintenance %q", window.Title))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, update)
}

func GetMaintenanceUpdate(ctx *gin.Context) {
	windowID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maintenance ID"})
		return
	}

	updateID, err := parseIDParam(ctx, "update_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update ID"})
		return
	}

	var update models.MaintenanceUpdate

	if err := db.DB.Where("id = ? AND window_id = ?", updateID, windowID).First(&update).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, fmt.Errorf("maintenance update %d %w", updateID, types.ErrNotFound))
		} else {
			respondError(ctx, err)
		}
		return
	}

	ctx.JSON(http.StatusOK, update)
}

func UpdateMaintenanceUpdate(ctx *gin.Context) {
	windowID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maintenance ID"})
		return
	}

	updateID, err := parseIDParam(ctx, "update_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update ID"})
		return
	}

	var req UpdateMaintenanceUpdateRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var update models.MaintenanceUpdate

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND window_id = ?", updateID, windowID).First(&update).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("maintenance update %d %w", updateID, types.ErrNotFound)
			}
			return err
		}

		if req.Message != nil {
			update.Message = *req.Message
		}
		if req.Timestamp != nil {
			update.Timestamp = *req.Timestamp
		}

		if err := tx.Save(&update).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "update_maintenance_update",
			fmt.Sprintf("edited update %d on maintenance %d", updateID, windowID))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, update)
}

func DeleteMaintenanceUpdate(ctx *gin.Context) {
	windowID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maintenance ID"})
		return
	}

	updateID, err := parseIDParam(ctx, "update_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update ID"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var update models.MaintenanceUpdate

		if err := tx.Where("id = ? AND window_id = ?", updateID, windowID).First(&update).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("maintenance update %d %w", updateID, types.ErrNotFound)
			}
			return err
		}

		if err := tx.Unscoped().Delete(&update).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "delete_maintenance_update",
			fmt.Sprintf("deleted update %d from maintenance %d", updateID, windowID))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
