package services

import (
	"fmt"
	"sync/atomic"

	"github.com/fitpulse/fitpulse-backend/internal/config"
	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBCounter int64

func setupTestDB() {
	dsn := fmt.Sprintf("file:services_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, _ := gorm.Open(sqlite.Open(dsn), &gorm.Config{})

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	database.DB = db
	database.DB.AutoMigrate(
		&models.User{},
		&models.Thread{},
		&models.ThreadParticipant{},
		&models.DirectThreadKey{},
		&models.Message{},
		&models.Attachment{},
		&models.ChatFolder{},
	)

	config.AppConfig = &config.Config{
		JWTSecret:       "test_secret_key_12345",
		OpenAIModel:     "gpt-4o-mini",
		CoachTimeoutSec: 2,
	}

	EnsureCoachUser()
}

func seedUser(id, username string) models.User {
	user := models.User{ID: id, Username: username, Email: username + "@example.com", Name: username}
	database.DB.Create(&user)
	return user
}
