package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/aggregate"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
)

// PublicStatus serves the unauthenticated status header: the overall
// status figure plus the grouped component listing.
func PublicStatus(ctx *gin.Context) {
	var components []models.Component

	if err := db.DB.Find(&components).Error; err != nil {
		respondError(ctx, err)
		return
	}

	groups, err := aggregate.ComponentGroups(db.DB)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": aggregate.OverallStatus(components),
		"groups": groups,
	})
}

// PublicIncidents serves the unauthenticated incident list. By default
// only open incidents are returned; include_resolved=true widens the view
// to resolved ones within the days window (days<=0 means everything).
func PublicIncidents(ctx *gin.Context) {
	includeResolved := ctx.Query("include_resolved") == "true"

	days := types.RecentWindowDays()
	if raw := ctx.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			days = parsed
		}
	}

	details, err := aggregate.PublicIncidents(db.DB, time.Now(), includeResolved, days)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, details)
}

// PublicMaintenance serves scheduled, in-progress, and recently completed
// maintenance in start-time order.
func PublicMaintenance(ctx *gin.Context) {
	details, err := aggregate.PublicMaintenance(db.DB, time.Now())
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, details)
}

// PublicSummary is the single payload the status page polls: overall
// status, grouped components, open and recent incidents, visible
// maintenance, and the maintenance-mode banner.
func PublicSummary(ctx *gin.Context) {
	now := time.Now()

	var components []models.Component
	if err := db.DB.Find(&components).Error; err != nil {
		respondError(ctx, err)
		return
	}

	groups, err := aggregate.ComponentGroups(db.DB)
	if err != nil {
		respondError(ctx, err)
		return
	}

	activeIncidents, err := aggregate.ActiveIncidents(db.DB)
	if err != nil {
		respondError(ctx, err)
		return
	}

	recentIncidents, err := aggregate.RecentIncidents(db.DB, now, types.RecentWindowDays())
	if err != nil {
		respondError(ctx, err)
		return
	}

	maintenance, err := aggregate.PublicMaintenance(db.DB, now)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":           aggregate.OverallStatus(components),
		"groups":           groups,
		"active_incidents": activeIncidents,
		"recent_incidents": recentIncidents,
		"maintenance":      maintenance,
		"maintenance_mode": gin.H{
			"enabled": maintenanceModeEnabled(db.DB),
			"message": maintenanceModeMessage(db.DB),
		},
	})
}
