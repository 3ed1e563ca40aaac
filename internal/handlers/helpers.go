package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// respondError maps domain errors onto transport status codes. Not-found
// and conflict carry their message through; anything else is an opaque 500.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrConflict):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).Error("request failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func parseIDParam(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}

	return uint(id), nil
}

// checkComponentsExist verifies every id references a component row.
// Missing references are a conflict: the write would create dangling
// join rows.
func checkComponentsExist(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Component{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}

	if count != int64(len(ids)) {
		return fmt.Errorf("%w: one or more referenced components do not exist", types.ErrConflict)
	}

	return nil
}
