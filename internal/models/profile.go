package models

import (
	"database/sql"
	"time"
)

// Profile represents a user profile
type Profile struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Username  string    `gorm:"type:varchar(32);not null;uniqueIndex:profiles_ux1;column:username"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`

	// Credentials
	PasswordHash string `gorm:"type:varchar(128);not null;column:password_hash"`

	// Profile fields
	DisplayName sql.NullString `gorm:"type:varchar(64);column:display_name"`
	Bio         sql.NullString `gorm:"type:varchar(300);column:bio"`
	AvatarKey   string         `gorm:"type:varchar(256);not null;default:'';column:avatar_key"`

	// Denormalized social counters, maintained transactionally
	// alongside follow edge mutations
	FollowersCount int64 `gorm:"not null;default:0;column:followers_count"`
	FollowingCount int64 `gorm:"not null;default:0;column:following_count"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}
