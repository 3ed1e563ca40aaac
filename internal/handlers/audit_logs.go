package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/audit"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/utils"
)

type CreateAuditLogRequest struct {
	Action  string `json:"action" binding:"required"`
	Details string `json:"details"`
}

// CreateAuditLog lets operators append a manual entry, attributed to the
// authenticated caller rather than anything in the request body.
func CreateAuditLog(ctx *gin.Context) {
	var req CreateAuditLogRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := audit.Record(db.DB, currentUser.Username, req.Action, req.Details); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusCreated)
}

// ListAuditLogs reads the audit trail, newest first, optionally filtered
// by id range, username, action, and creation date range.
func ListAuditLogs(ctx *gin.Context) {
	query := db.DB.Model(&models.AuditLog{}).Order("id DESC")

	if raw := ctx.Query("from_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			query = query.Where("id >= ?", id)
		}
	}
	if raw := ctx.Query("to_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			query = query.Where("id <= ?", id)
		}
	}
	if username := ctx.Query("username"); username != "" {
		query = query.Where("username = ?", username)
	}
	if action := ctx.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if raw := ctx.Query("from"); raw != "" {
		if from, err := time.Parse(time.RFC3339, raw); err == nil {
			query = query.Where("created_at >= ?", from)
		}
	}
	if raw := ctx.Query("to"); raw != "" {
		if to, err := time.Parse(time.RFC3339, raw); err == nil {
			query = query.Where("created_at <= ?", to)
		}
	}

	var entries []models.AuditLog

	if err := query.Find(&entries).Error; err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, entries)
}
