package models

import (
	"time"
)

// Rating value bounds
const (
	RatingMin = 1
	RatingMax = 10
)

// Rating represents one user's numeric rating of one photo.
// A re-rate overwrites the existing row rather than adding a second one.
type Rating struct {
	RaterID   int64     `gorm:"primaryKey;column:rater_id"`
	PhotoID   int64     `gorm:"primaryKey;index;column:photo_id"`
	Value     int16     `gorm:"type:smallint;not null;check:value >= 1 AND value <= 10;column:value"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`

	// Relationships
	Rater *Profile `gorm:"foreignKey:RaterID;references:ID"`
	Photo *Photo   `gorm:"foreignKey:PhotoID;references:ID"`
}

// TableName specifies the table name for Rating
func (Rating) TableName() string {
	return "ratings"
}
