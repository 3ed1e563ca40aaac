package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/audit"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/signalboard/signalboard/internal/utils"
	"gorm.io/gorm"
)

type UpdateSiteSettingRequest struct {
	Key   string  `json:"key" binding:"required"`
	Value *string `json:"value"`
}

type SetMaintenanceModeRequest struct {
	Enabled bool    `json:"enabled"`
	Message *string `json:"message"`
}

type SiteSettingResponse struct {
	ID    uint    `json:"id"`
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

func settingResponse(setting models.SiteSetting) SiteSettingResponse {
	return SiteSettingResponse{ID: setting.ID, Key: setting.Key, Value: setting.Value}
}

// upsertSetting writes a key's value, reusing the existing row so a key
// never duplicates and keeps a stable id.
func upsertSetting(tx *gorm.DB, key string, value *string) (models.SiteSetting, error) {
	var setting models.SiteSetting

	err := tx.Where("key = ?", key).First(&setting).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.SiteSetting{}, err
		}
		setting = models.SiteSetting{Key: key, Value: value}
		if err := tx.Create(&setting).Error; err != nil {
			return models.SiteSetting{}, err
		}
		return setting, nil
	}

	setting.Value = value
	if err := tx.Save(&setting).Error; err != nil {
		return models.SiteSetting{}, err
	}

	return setting, nil
}

func GetSiteSetting(ctx *gin.Context) {
	key := ctx.Param("key")

	var setting models.SiteSetting

	if err := db.DB.Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, fmt.Errorf("setting %q %w", key, types.ErrNotFound))
		} else {
			respondError(ctx, err)
		}
		return
	}

	ctx.JSON(http.StatusOK, settingResponse(setting))
}

func ListSiteSettings(ctx *gin.Context) {
	var settings []models.SiteSetting

	if err := db.DB.Order("key ASC").Find(&settings).Error; err != nil {
		respondError(ctx, err)
		return
	}

	response := make([]SiteSettingResponse, 0, len(settings))
	for _, setting := range settings {
		response = append(response, settingResponse(setting))
	}

	ctx.JSON(http.StatusOK, response)
}

func UpdateSiteSetting(ctx *gin.Context) {
	var req UpdateSiteSettingRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var setting models.SiteSetting

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		setting, err = upsertSetting(tx, req.Key, req.Value)
		if err != nil {
			return err
		}

		return audit.Record(tx, currentUser.Username, "update_setting", fmt.Sprintf("updated setting %q", req.Key))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, settingResponse(setting))
}

// maintenanceModeEnabled reads the reserved flag key; only the exact
// string "true" enables it.
func maintenanceModeEnabled(dbc *gorm.DB) bool {
	var setting models.SiteSetting

	if err := dbc.Where("key = ?", types.SettingMaintenanceModeEnabled).First(&setting).Error; err != nil {
		return false
	}

	return setting.Value != nil && *setting.Value == "true"
}

func maintenanceModeMessage(dbc *gorm.DB) *string {
	var setting models.SiteSetting

	if err := dbc.Where("key = ?", types.SettingMaintenanceModeMessage).First(&setting).Error; err != nil {
		return nil
	}

	return setting.Value
}

func GetMaintenanceMode(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"enabled": maintenanceModeEnabled(db.DB),
		"message": maintenanceModeMessage(db.DB),
	})
}

// SetMaintenanceMode flips the flag and, only when the message field is
// present in the request, rewrites the message. An omitted message leaves
// the stored one untouched; an explicit empty string clears it to "".
func SetMaintenanceMode(ctx *gin.Context) {
	var req SetMaintenanceModeRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		enabled := strconv.FormatBool(req.Enabled)
		if _, err := upsertSetting(tx, types.SettingMaintenanceModeEnabled, &enabled); err != nil {
			return err
		}

		if req.Message != nil {
			if _, err := upsertSetting(tx, types.SettingMaintenanceModeMessage, req.Message); err != nil {
				return err
			}
		}

		return audit.Record(tx, currentUser.Username, "set_maintenance_mode",
			fmt.Sprintf("maintenance mode set to %s", enabled))
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"enabled": maintenanceModeEnabled(db.DB),
		"message": maintenanceModeMessage(db.DB),
	})
}
