package main

import (
	"encoding/json"
	"os"

	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/models"
	"github.com/signalboard/signalboard/internal/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// seedAdminUser bootstraps an admin role and user on an empty install so
// the role-gated API has a first login. Does nothing once any user exists.
func seedAdminUser() error {
	var users int64
	if err := db.DB.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
		logrus.Warn("ADMIN_PASSWORD not set, seeding admin user with default password")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	permissions, err := json.Marshal(map[string]bool{types.PermissionAll: true})
	if err != nil {
		return err
	}

	return db.DB.Transaction(func(tx *gorm.DB) error {
		role := models.Role{
			Name:        "admin",
			Description: "Full administrative access",
			Permissions: permissions,
		}

		if err := tx.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err != nil {
			return err
		}

		user := models.User{
			Username:     username,
			PasswordHash: string(passwordHash),
			RoleID:       role.ID,
		}

		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		logrus.WithField("username", username).Info("Seeded initial admin user")
		return nil
	})
}
