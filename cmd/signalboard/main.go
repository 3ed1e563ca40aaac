package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/signalboard/signalboard/db"
	"github.com/signalboard/signalboard/internal/auth"
	"github.com/signalboard/signalboard/internal/router"
	"github.com/sirupsen/logrus"
)

func setupLogger() {
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	setupLogger()

	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("No .env file loaded")
	}

	if err := auth.InitJWTSecret(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize JWT secret")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logrus.Fatal("DATABASE_URL is not set")
	}

	if err := db.ConnectDatabase(dsn); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	if err := db.MigrateDatabase(); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}

	if err := seedAdminUser(); err != nil {
		logrus.WithError(err).Fatal("Failed to seed admin user")
	}

	r := router.NewRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
		logrus.Info("PORT not set, defaulting to 3000")
	}

	if err := r.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}
