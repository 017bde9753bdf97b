package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultCoachThreadTitle is the placeholder set on new coach threads until
// the first user turn produces a real title.
const DefaultCoachThreadTitle = "New conversation"

// Thread is a conversation container. Direct threads hold exactly two humans
// and are unique per pair (see DirectThreadKey). Coach threads are owned by
// one human, may be organized into folders, and a user can have any number
// of them in parallel.
type Thread struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	IsBotThread bool    `gorm:"default:false;index" json:"isBotThread"`
	OwnerUserID *string `gorm:"index" json:"ownerUserId,omitempty"` // set only for coach threads
	Title       string  `json:"title"`
	FolderID    *string `gorm:"index" json:"folderId,omitempty"` // coach threads only

	Participants []ThreadParticipant `gorm:"foreignKey:ThreadID" json:"participants,omitempty"`
}

func (t *Thread) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return
}

// ThreadParticipant joins a user to a thread and carries their read state.
// LastReadMessageID is a monotonic high-water mark: 0 means nothing read,
// and it never decreases or points outside the thread.
type ThreadParticipant struct {
	ThreadID          string    `gorm:"primaryKey;type:text" json:"threadId"`
	UserID            string    `gorm:"primaryKey;type:text;index" json:"userId"`
	LastReadMessageID uint64    `gorm:"not null;default:0" json:"lastReadMessageId"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// DirectThreadKey maps the canonical ordered pair (UserA < UserB) to its
// direct thread. The composite primary key is the uniqueness constraint that
// resolves the create-or-reuse race between concurrent first-contact calls.
type DirectThreadKey struct {
	UserA     string    `gorm:"primaryKey;type:text" json:"userA"`
	UserB     string    `gorm:"primaryKey;type:text" json:"userB"`
	ThreadID  string    `gorm:"not null;index" json:"threadId"`
	CreatedAt time.Time `json:"createdAt"`
}
