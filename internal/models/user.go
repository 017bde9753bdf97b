package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the slice of the platform account this service needs: identity,
// display fields for thread summaries, and the IsBot flag marking the coach
// assistant account. Account lifecycle lives in the accounts service.
type User struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username string `gorm:"uniqueIndex" json:"username"`
	Name     string `json:"name"`
	Email    string `gorm:"uniqueIndex" json:"-"`
	Image    string `json:"image"` // avatar URL

	IsBot bool `gorm:"default:false" json:"isBot"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
