package models

import "time"

// Message is an immutable, append-only unit of content within a thread.
// The auto-increment ID is the canonical ordering and read-tracking key;
// CreatedAt is display-only and may collide at clock resolution (e.g. a user
// turn and its coach reply created in the same transactional window).
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ThreadID  string    `gorm:"type:text;not null;index" json:"threadId"`
	SenderID  string    `gorm:"type:text;not null;index" json:"senderId"`
	Body      string    `gorm:"type:text" json:"body"` // empty only when an attachment is present
	CreatedAt time.Time `json:"createdAt"`

	Attachment *Attachment `gorm:"foreignKey:MessageID" json:"attachment,omitempty"`
}

// Attachment is an optional 1:1 extension of a Message, created in the same
// transaction. Binary storage is external; only the reference is recorded.
type Attachment struct {
	MessageID uint64    `gorm:"primaryKey" json:"messageId"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	MimeType  string    `gorm:"type:text;not null" json:"mimeType"`
	FileName  string    `gorm:"type:text;not null" json:"fileName"`
	Size      int64     `gorm:"not null" json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
