package handlers

import (
	"fmt"
	"sync/atomic"

	"github.com/fitpulse/fitpulse-backend/internal/config"
	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	"github.com/fitpulse/fitpulse-backend/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBCounter int64

// SetupTestDB initializes a fresh in-memory SQLite DB for a test and seeds
// the coach account. A unique DSN per call keeps tests isolated while the
// shared cache lets the connection pool see the same database.
func SetupTestDB() {
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
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

	services.EnsureCoachUser()
}

func createTestUser(id, username string) models.User {
	user := models.User{ID: id, Username: username, Email: username + "@example.com", Name: username}
	database.DB.Create(&user)
	return user
}
