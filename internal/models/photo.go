package models

import (
	"database/sql"
	"time"
)

// Photo represents an uploaded progress photo
type Photo struct {
	ID          int64          `gorm:"primaryKey;autoIncrement;column:id"`
	OwnerID     int64          `gorm:"not null;index;column:owner_id"`
	Title       string         `gorm:"type:varchar(128);not null;column:title"`
	Description sql.NullString `gorm:"type:varchar(2000);column:description"`
	ImageKey    string         `gorm:"type:varchar(256);not null;column:image_key"`
	CreatedAt   time.Time      `gorm:"not null;column:created_at"`
	UpdatedAt   time.Time      `gorm:"not null;column:updated_at"`

	// Denormalized aggregates. Rating is the mean of all ratings rows
	// for this photo and zero while VotesCount is zero; the zero value
	// is never a rating a user can cast.
	Rating        float64 `gorm:"not null;default:0;column:rating"`
	VotesCount    int64   `gorm:"not null;default:0;column:votes_count"`
	LikesCount    int64   `gorm:"not null;default:0;column:likes_count"`
	CommentsCount int64   `gorm:"not null;default:0;column:comments_count"`

	// Relationships
	Owner *Profile `gorm:"foreignKey:OwnerID;references:ID"`
}

// TableName specifies the table name for Photo
func (Photo) TableName() string {
	return "photos"
}
