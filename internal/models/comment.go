package models

import (
	"time"
)

// Comment represents a comment on a photo. Append-only, deletable by
// its author.
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PhotoID   int64     `gorm:"not null;index;column:photo_id"`
	AuthorID  int64     `gorm:"not null;column:author_id"`
	Body      string    `gorm:"type:varchar(2000);not null;column:body"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Author *Profile `gorm:"foreignKey:AuthorID;references:ID"`
	Photo  *Photo   `gorm:"foreignKey:PhotoID;references:ID"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}
