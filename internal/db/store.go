package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitsnap/fitsnap/internal/models"
	"github.com/fitsnap/fitsnap/internal/service"
)

// Store is the GORM-backed implementation of service.Store. This is the
// single place where backing-store response shapes are normalized:
// record-not-found becomes (nil, nil), never a sentinel error or an
// empty-vs-single-element ambiguity.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over a database connection
func NewStore(database *DB) *Store {
	return &Store{db: database.DB}
}

// Migrate creates or updates the schema for all entities
func Migrate(database *DB) error {
	return database.AutoMigrate(
		&models.Profile{},
		&models.Photo{},
		&models.Rating{},
		&models.Like{},
		&models.Comment{},
		&models.Follow{},
		&models.Notification{},
	)
}

// InTx runs fn inside a single database transaction.
func (s *Store) InTx(ctx context.Context, fn func(service.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Profiles returns the profile repository
func (s *Store) Profiles() service.ProfileRepo { return &profileRepo{db: s.db} }

// Photos returns the photo repository
func (s *Store) Photos() service.PhotoRepo { return &photoRepo{db: s.db} }

// Ratings returns the rating repository
func (s *Store) Ratings() service.RatingRepo { return &ratingRepo{db: s.db} }

// Likes returns the like repository
func (s *Store) Likes() service.LikeRepo { return &likeRepo{db: s.db} }

// Comments returns the comment repository
func (s *Store) Comments() service.CommentRepo { return &commentRepo{db: s.db} }

// Follows returns the follow edge repository
func (s *Store) Follows() service.FollowRepo { return &followRepo{db: s.db} }

// Notifications returns the notification repository
func (s *Store) Notifications() service.NotificationRepo { return &notificationRepo{db: s.db} }

type profileRepo struct {
	db *gorm.DB
}

func (r *profileRepo) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) Search(ctx context.Context, query string, limit, offset int) ([]*models.Profile, error) {
	var profiles []*models.Profile
	if err := r.db.WithContext(ctx).
		Where("username ILIKE ?", "%"+query+"%").
		Order("username ASC").
		Limit(limit).
		Offset(offset).
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepo) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepo) Update(ctx context.Context, profile *models.Profile) error {
	// Only the editable columns. Writing the counter columns from a
	// struct loaded earlier would overwrite concurrent follow counter
	// moves with stale values.
	return r.db.WithContext(ctx).Model(profile).
		Select("display_name", "bio", "avatar_key", "updated_at").
		Updates(profile).Error
}

func (r *profileRepo) AdjustFollowCounters(ctx context.Context, followerID, followedID, delta int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", followerID).
		Update("following_count", counterExpr("following_count", delta)).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", followedID).
		Update("followers_count", counterExpr("followers_count", delta)).Error
}

// counterExpr moves a counter as column arithmetic inside the database,
// so concurrent transactions cannot lose each other's updates the way
// read-modify-write of a loaded struct would. Decrements clamp at zero.
func counterExpr(column string, delta int64) clause.Expr {
	if delta < 0 {
		return gorm.Expr("GREATEST(0, "+column+" - ?)", -delta)
	}
	return gorm.Expr(column+" + ?", delta)
}

type photoRepo struct {
	db *gorm.DB
}

func (r *photoRepo) GetByID(ctx context.Context, id int64) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).Preload("Owner").First(&photo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &photo, nil
}

// GetForUpdate takes the row lock so concurrent rating recomputes on
// the same photo serialize; the later transaction's aggregate query
// then sees the earlier one's committed rating rows.
func (r *photoRepo) GetForUpdate(ctx context.Context, id int64) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&photo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &photo, nil
}

func (r *photoRepo) Create(ctx context.Context, photo *models.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *photoRepo) UpdateAggregates(ctx context.Context, id int64, mean float64, votes int64) error {
	return r.db.WithContext(ctx).Model(&models.Photo{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"rating":      mean,
			"votes_count": votes,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *photoRepo) AdjustLikes(ctx context.Context, id, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.Photo{}).
		Where("id = ?", id).
		Update("likes_count", counterExpr("likes_count", delta)).Error
}

func (r *photoRepo) AdjustComments(ctx context.Context, id, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.Photo{}).
		Where("id = ?", id).
		Update("comments_count", counterExpr("comments_count", delta)).Error
}

func (r *photoRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Photo{}, id).Error
}

func (r *photoRepo) ListRecent(ctx context.Context, limit, offset int) ([]*models.Photo, error) {
	var photos []*models.Photo
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&photos).Error; err != nil {
		return nil, err
	}
	return photos, nil
}

func (r *photoRepo) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Photo, error) {
	var photos []*models.Photo
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&photos).Error; err != nil {
		return nil, err
	}
	return photos, nil
}

type ratingRepo struct {
	db *gorm.DB
}

func (r *ratingRepo) Get(ctx context.Context, raterID, photoID int64) (*models.Rating, error) {
	var rating models.Rating
	if err := r.db.WithContext(ctx).
		Where("rater_id = ? AND photo_id = ?", raterID, photoID).
		First(&rating).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rating, nil
}

func (r *ratingRepo) Save(ctx context.Context, rating *models.Rating) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rater_id"}, {Name: "photo_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(rating).Error
}

func (r *ratingRepo) Aggregate(ctx context.Context, photoID int64) (float64, int64, error) {
	var result struct {
		Mean  float64
		Count int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select("COALESCE(AVG(value), 0) AS mean, COUNT(*) AS count").
		Where("photo_id = ?", photoID).
		Scan(&result).Error; err != nil {
		return 0, 0, err
	}
	return result.Mean, result.Count, nil
}

func (r *ratingRepo) DeleteByPhoto(ctx context.Context, photoID int64) error {
	return r.db.WithContext(ctx).Where("photo_id = ?", photoID).Delete(&models.Rating{}).Error
}

type likeRepo struct {
	db *gorm.DB
}

func (r *likeRepo) Exists(ctx context.Context, likerID, photoID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("liker_id = ? AND photo_id = ?", likerID, photoID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *likeRepo) Create(ctx context.Context, like *models.Like) (bool, error) {
	// The uniqueness constraint absorbs concurrent duplicates; the
	// affected-row count tells the caller whether this insert won.
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *likeRepo) Delete(ctx context.Context, likerID, photoID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("liker_id = ? AND photo_id = ?", likerID, photoID).
		Delete(&models.Like{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *likeRepo) DeleteByPhoto(ctx context.Context, photoID int64) error {
	return r.db.WithContext(ctx).Where("photo_id = ?", photoID).Delete(&models.Like{}).Error
}

type commentRepo struct {
	db *gorm.DB
}

func (r *commentRepo) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *commentRepo) ListByPhoto(ctx context.Context, photoID int64, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("photo_id = ?", photoID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepo) DeleteByPhoto(ctx context.Context, photoID int64) error {
	return r.db.WithContext(ctx).Where("photo_id = ?", photoID).Delete(&models.Comment{}).Error
}

type followRepo struct {
	db *gorm.DB
}

func (r *followRepo) Exists(ctx context.Context, followerID, followedID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *followRepo) Create(ctx context.Context, follow *models.Follow) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(follow)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepo) Delete(ctx context.Context, followerID, followedID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepo) ListFollowers(ctx context.Context, profileID int64) ([]*models.Profile, error) {
	var profiles []*models.Profile
	if err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Joins("JOIN followers ON followers.follower_id = profiles.id").
		Where("followers.followed_id = ?", profileID).
		Order("followers.created_at ASC, followers.follower_id ASC").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *followRepo) ListFollowing(ctx context.Context, profileID int64) ([]*models.Profile, error) {
	var profiles []*models.Profile
	if err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Joins("JOIN followers ON followers.followed_id = profiles.id").
		Where("followers.follower_id = ?", profileID).
		Order("followers.created_at ASC, followers.followed_id ASC").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

type notificationRepo struct {
	db *gorm.DB
}

func (r *notificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, recipientID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read", true).Error
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, recipientID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true).Error
}

func (r *notificationRepo) ListRecent(ctx context.Context, recipientID int64, limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepo) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
