package models

import (
	"time"
)

// Like represents a user liking a photo. Presence only, no value.
type Like struct {
	LikerID   int64     `gorm:"primaryKey;column:liker_id"`
	PhotoID   int64     `gorm:"primaryKey;index;column:photo_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Liker *Profile `gorm:"foreignKey:LikerID;references:ID"`
	Photo *Photo   `gorm:"foreignKey:PhotoID;references:ID"`
}

// TableName specifies the table name for Like
func (Like) TableName() string {
	return "likes"
}
