package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatFolder is a user-owned label for organizing coach threads. Deletion is
// guarded, not cascading: a folder that still has threads returns a conflict.
type ChatFolder struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	UserID    string    `gorm:"type:text;not null;index" json:"userId"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (f *ChatFolder) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return
}
