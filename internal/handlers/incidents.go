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

type CreateIncidentRequest struct {
	Title                string     `json:"title" binding:"required"`
	Status               string     `json:"status" binding:"required"`
	Impact               string     `json:"impact" binding:"required"`
	ImpactDescription    string     `json:"impact_description"`
	RootCause            string     `json:"root_cause"`
	ResolvedAt           *time.Time `json:"resolved_at"`
	InitialUpdateMessage string     `json:"initial_update_message"`
	AffectedComponentIDs []uint     `json:"affected_component_ids"`
}

type UpdateIncidentRequest struct {
	Title                *string    `json:"title"`
	Status               *string    `json:"status"`
	Impact               *string    `json:"impact"`
	ImpactDescription    *string    `json:"impact_description"`
	RootCause            *string    `json:"root_cause"`
	ResolvedAt           *time.Time `json:"resolved_at"`
	AffectedComponentIDs *[]uint    `json:"affected_component_ids"`
}

type CreateIncidentUpdateRequest struct {
	Message   string     `json:"message" binding:"required"`
	Status    string     `json:"status" binding:"required"`
	Timestamp *time.Time `json:"timestamp"`
}

type UpdateIncidentUpdateRequest struct {
	Message   *string    `json:"message"`
	Status    *string    `json:"status"`
	Timestamp *time.Time `json:"timestamp"`
}

func replaceIncidentComponents(tx *gorm.DB, incidentID uint, componentIDs []uint) error {
	if err := checkComponentsExist(tx, componentIDs); err != nil {
		return err
	}

	if err := tx.Exec("DELETE FROM incident_components WHERE incident_id = ?", incidentID).Error; err != nil {
		return err
	}

	for _, componentID := range componentIDs {
		if err := tx.Exec("INSERT INTO incident_components (incident_id, component_id) VALUES (?, ?)",
			incidentID, componentID).Error; err != nil {
			return err
		}
	}

	return nil
}

// CreateIncident creates the incident, its optional initial update, its
// component links and the audit entry in one transaction; partial failure
// leaves no orphaned rows.
func CreateIncident(ctx *gin.Context) {
	var req CreateIncidentRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !types.IsValidIncidentStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident status"})
		return
	}

	if !types.IsValidIncidentImpact(req.Impact) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident impact"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	incident := models.Incident{
		Title:             req.Title,
		Status:            req.Status,
		Impact:            req.Impact,
		ImpactDescription: req.ImpactDescription,
		RootCause:         req.RootCause,
		ResolvedAt:        req.ResolvedAt,
	}

	if incident.ResolvedAt == nil && req.Status == string(types.IncidentResolved) {
		now := time.Now()
		incident.ResolvedAt = &now
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&incident).Error; err != nil {
			return err
		}

		if req.InitialUpdateMessage != "" {
			update := models.IncidentUpdate{
				IncidentID: incident.ID,
				Message:    req.InitialUpdateMessage,
				Status:     req.Status,
				Timestamp:  time.Now(),
			}
			if err := tx.Create(&update).Error; err != nil {
				return err
			}
		}

		if err := replaceIncidentComponents(tx, incident.ID, req.AffectedComponentIDs); err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "create_incident",
			fmt.Sprintf("created incident %q with impact %s affecting %d components", incident.Title, incident.Impact, len(req.AffectedComponentIDs)))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	detail, err := aggregate.Incident(db.DB, incident.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, detail)
}

func GetIncident(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	detail, err := aggregate.Incident(db.DB, id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

func ListIncidents(ctx *gin.Context) {
	details, err := aggregate.AllIncidents(db.DB)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, details)
}

func GetActiveIncidents(ctx *gin.Context) {
	details, err := aggregate.ActiveIncidents(db.DB)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, details)
}

func GetRecentIncidents(ctx *gin.Context) {
	days := types.RecentWindowDays()
	if raw := ctx.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}

	details, err := aggregate.RecentIncidents(db.DB, time.Now(), days)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, details)
}

func GetIncidentHistory(ctx *gin.Context) {
	year, _ := strconv.Atoi(ctx.Query("year"))
	month, _ := strconv.Atoi(ctx.Query("month"))

	details, err := aggregate.IncidentHistory(db.DB, year, month)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, details)
}

func UpdateIncident(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var req UpdateIncidentRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Status != nil && !types.IsValidIncidentStatus(*req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident status"})
		return
	}

	if req.Impact != nil && !types.IsValidIncidentImpact(*req.Impact) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident impact"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var incident models.Incident

		if err := tx.First(&incident, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("incident %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if req.Title != nil {
			incident.Title = *req.Title
		}
		if req.Impact != nil {
			incident.Impact = *req.Impact
		}
		if req.ImpactDescription != nil {
			incident.ImpactDescription = *req.ImpactDescription
		}
		if req.RootCause != nil {
			incident.RootCause = *req.RootCause
		}
		if req.ResolvedAt != nil {
			incident.ResolvedAt = req.ResolvedAt
		}
		if req.Status != nil {
			incident.Status = *req.Status
			// Reaching resolved stamps resolved_at unless the caller
			// supplied an explicit value.
			if *req.Status == string(types.IncidentResolved) && incident.ResolvedAt == nil {
				now := time.Now()
				incident.ResolvedAt = &now
			}
		}

		if err := tx.Save(&incident).Error; err != nil {
			return err
		}

		if req.AffectedComponentIDs != nil {
			if err := replaceIncidentComponents(tx, incident.ID, *req.AffectedComponentIDs); err != nil {
				return err
			}
		}

		return audit.Record(tx, currentUser.Username, "update_incident", fmt.Sprintf("updated incident %q", incident.Title))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	detail, err := aggregate.Incident(db.DB, id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

func DeleteIncident(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var incident models.Incident

		if err := tx.First(&incident, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("incident %d %w", id, types.ErrNotFound)
			}
			return err
		}

		if err := tx.Where("incident_id = ?", id).Unscoped().Delete(&models.IncidentUpdate{}).Error; err != nil {
			return err
		}

		if err := tx.Exec("DELETE FROM incident_components WHERE incident_id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Delete(&incident).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "delete_incident", fmt.Sprintf("deleted incident %q", incident.Title))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// CreateIncidentUpdate appends a timeline entry and propagates its status
// snapshot to the parent incident. A resolved snapshot also stamps the
// parent's resolved_at when it is still null, keeping the status and
// resolved_at fields consistent on both mutation paths.
func CreateIncidentUpdate(ctx *gin.Context) {
	incidentID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var req CreateIncidentUpdateRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !types.IsValidIncidentStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident status"})
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

	var update models.IncidentUpdate

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var incident models.Incident

		if err := tx.First(&incident, incidentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("incident %d %w", incidentID, types.ErrNotFound)
			}
			return err
		}

		update = models.IncidentUpdate{
			IncidentID: incidentID,
			Message:    req.Message,
			Status:     req.Status,
			Timestamp:  timestamp,
		}

		if err := tx.Create(&update).Error; err != nil {
			return err
		}

		incident.Status = req.Status
		if req.Status == string(types.IncidentResolved) && incident.ResolvedAt == nil {
			now := time.Now()
			incident.ResolvedAt = &now
		}

		if err := tx.Save(&incident).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "create_incident_update",
			fmt.Sprintf("posted update to incident %q with status %s", incident.Title, req.Status))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, update)
}

func GetIncidentUpdate(ctx *gin.Context) {
	incidentID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	updateID, err := parseIDParam(ctx, "update_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update ID"})
		return
	}

	var update models.IncidentUpdate

	if err := db.DB.Where("id = ? AND incident_id = ?", updateID, incidentID).First(&update).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, fmt.Errorf("incident update %d %w", updateID, types.ErrNotFound))
		} else {
			respondError(ctx, err)
		}
		return
	}

	ctx.JSON(http.StatusOK, update)
}

func UpdateIncidentUpdate(ctx *gin.Context) {
	incidentID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	updateID, err := parseIDParam(ctx, "update_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update ID"})
		return
	}

	var req UpdateIncidentUpdateRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Status != nil && !types.IsValidIncidentStatus(*req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident status"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var update models.IncidentUpdate

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND incident_id = ?", updateID, incidentID).First(&update).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("incident update %d %w", updateID, types.ErrNotFound)
			}
			return err
		}

		if req.Message != nil {
			update.Message = *req.Message
		}
		if req.Status != nil {
			update.Status = *req.Status
		}
		if req.Timestamp != nil {
			update.Timestamp = *req.Timestamp
		}

		if err := tx.Save(&update).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "update_incident_update",
			fmt.Sprintf("edited update %d on incident %d", updateID, incidentID))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, update)
}

func DeleteIncidentUpdate(ctx *gin.Context) {
	incidentID, err := parseIDParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
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
		var update models.IncidentUpdate

		if err := tx.Where("id = ? AND incident_id = ?", updateID, incidentID).First(&update).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("incident update %d %w", updateID, types.ErrNotFound)
			}
			return err
		}

		if err := tx.Unscoped().Delete(&update).Error; err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "delete_incident_update",
			fmt.Sprintf("deleted update %d from incident %d", updateID, incidentID))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
