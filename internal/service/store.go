package service

import (
	"context"

	"github.com/fitsnap/fitsnap/internal/models"
)

// Store is the persistence boundary for the service layer. The GORM
// implementation lives in internal/db; tests use an in-memory fake.
//
// All Get-style methods return (nil, nil) when the row is absent, never
// a sentinel error, so callers see one consistent shape.
type Store interface {
	Profiles() ProfileRepo
	Photos() PhotoRepo
	Ratings() RatingRepo
	Likes() LikeRepo
	Comments() CommentRepo
	Follows() FollowRepo
	Notifications() NotificationRepo

	// InTx runs fn against a transactional view of the store. The edge
	// mutation and its counter update always share one InTx call.
	InTx(ctx context.Context, fn func(Store) error) error
}

// ProfileRepo provides profile persistence
type ProfileRepo interface {
	GetByID(ctx context.Context, id int64) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	// Update persists the editable fields only (display name, bio,
	// avatar). Counter columns move through AdjustFollowCounters, so a
	// profile edit can never overwrite a concurrent counter change.
	Update(ctx context.Context, profile *models.Profile) error
	// AdjustFollowCounters moves followerID's following_count and
	// followedID's followers_count by delta as in-database column
	// arithmetic. Decrements clamp at zero.
	AdjustFollowCounters(ctx context.Context, followerID, followedID, delta int64) error
}

// PhotoRepo provides photo persistence
type PhotoRepo interface {
	GetByID(ctx context.Context, id int64) (*models.Photo, error)
	// GetForUpdate loads a photo and holds its row lock until the
	// enclosing transaction ends, serializing aggregate recomputes on
	// the same photo.
	GetForUpdate(ctx context.Context, id int64) (*models.Photo, error)
	Create(ctx context.Context, photo *models.Photo) error
	// UpdateAggregates writes the rating aggregate columns and nothing
	// else.
	UpdateAggregates(ctx context.Context, id int64, mean float64, votes int64) error
	// AdjustLikes and AdjustComments move a counter as in-database
	// column arithmetic. Decrements clamp at zero.
	AdjustLikes(ctx context.Context, id, delta int64) error
	AdjustComments(ctx context.Context, id, delta int64) error
	Delete(ctx context.Context, id int64) error
	ListRecent(ctx context.Context, limit, offset int) ([]*models.Photo, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Photo, error)
}

// RatingRepo provides rating persistence
type RatingRepo interface {
	Get(ctx context.Context, raterID, photoID int64) (*models.Rating, error)
	// Save upserts on the (rater, photo) pair.
	Save(ctx context.Context, rating *models.Rating) error
	// Aggregate recomputes the mean and count from the rating rows
	// themselves, not from the stored counters.
	Aggregate(ctx context.Context, photoID int64) (mean float64, count int64, err error)
	DeleteByPhoto(ctx context.Context, photoID int64) error
}

// LikeRepo provides like persistence
type LikeRepo interface {
	Exists(ctx context.Context, likerID, photoID int64) (bool, error)
	// Create reports whether a row was actually inserted; the
	// uniqueness constraint on (liker, photo) absorbs duplicates, so
	// the caller moves the counter only on true.
	Create(ctx context.Context, like *models.Like) (bool, error)
	// Delete reports whether a row was actually removed.
	Delete(ctx context.Context, likerID, photoID int64) (bool, error)
	DeleteByPhoto(ctx context.Context, photoID int64) error
}

// CommentRepo provides comment persistence
type CommentRepo interface {
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
	// Delete reports whether a row was actually removed.
	Delete(ctx context.Context, id int64) (bool, error)
	// ListByPhoto returns comments oldest-first with Author preloaded.
	ListByPhoto(ctx context.Context, photoID int64, limit, offset int) ([]*models.Comment, error)
	DeleteByPhoto(ctx context.Context, photoID int64) error
}

// FollowRepo provides follow edge persistence
type FollowRepo interface {
	Exists(ctx context.Context, followerID, followedID int64) (bool, error)
	// Create reports whether an edge was actually inserted; the
	// uniqueness constraint on (follower, followed) absorbs duplicates.
	Create(ctx context.Context, follow *models.Follow) (bool, error)
	// Delete reports whether an edge was actually removed.
	Delete(ctx context.Context, followerID, followedID int64) (bool, error)
	// ListFollowers returns the profiles following profileID in a
	// stable order (edge creation time, then follower id).
	ListFollowers(ctx context.Context, profileID int64) ([]*models.Profile, error)
	ListFollowing(ctx context.Context, profileID int64) ([]*models.Profile, error)
}

// NotificationRepo provides notification persistence
type NotificationRepo interface {
	Create(ctx context.Context, notification *models.Notification) error
	// MarkRead is scoped to the recipient and idempotent.
	MarkRead(ctx context.Context, id, recipientID int64) error
	MarkAllRead(ctx context.Context, recipientID int64) error
	// ListRecent returns notifications newest-first with Sender preloaded.
	ListRecent(ctx context.Context, recipientID int64, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int64, error)
}
