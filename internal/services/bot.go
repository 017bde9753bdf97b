package services

import (
	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	"github.com/fitpulse/fitpulse-backend/pkg/logger"
)

const coachUsername = "fitpulse-coach"

var coachUserID string

// EnsureCoachUser makes sure the assistant account row exists and caches its
// ID. Called once at startup (and from test setup) before any coach thread
// is created.
func EnsureCoachUser() error {
	var coach models.User
	err := database.DB.First(&coach, "username = ?", coachUsername).Error
	if err == nil {
		coachUserID = coach.ID
		return nil
	}

	coach = models.User{
		Username: coachUsername,
		Name:     "FitPulse Coach",
		Email:    "coach@fitpulse.app",
		IsBot:    true,
	}
	if err := database.DB.Create(&coach).Error; err != nil {
		return err
	}
	coachUserID = coach.ID
	logger.Info().Str("userId", coachUserID).Msg("Created coach assistant account")
	return nil
}

// CoachUserID returns the assistant account's user ID.
func CoachUserID() string {
	return coachUserID
}
