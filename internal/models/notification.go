package models

import (
	"time"
)

// Notification represents an entry in a user's notification feed
type Notification struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	RecipientID int64     `gorm:"not null;index;column:recipient_id"`
	SenderID    int64     `gorm:"not null;column:sender_id"`
	Kind        string    `gorm:"type:varchar(16);not null;column:kind"`
	Content     string    `gorm:"type:varchar(300);not null;column:content"`
	Read        bool      `gorm:"not null;default:false;column:read"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Recipient *Profile `gorm:"foreignKey:RecipientID;references:ID"`
	Sender    *Profile `gorm:"foreignKey:SenderID;references:ID"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// Notification kind constants
const (
	NotifyKindLike    = "like"
	NotifyKindComment = "comment"
	NotifyKindRating  = "rating"
	NotifyKindFollow  = "follow"
)

// ValidNotifyKind reports whether kind is one of the known notification kinds.
func ValidNotifyKind(kind string) bool {
	switch kind {
	case NotifyKindLike, NotifyKindComment, NotifyKindRating, NotifyKindFollow:
		return true
	}
	return false
}
