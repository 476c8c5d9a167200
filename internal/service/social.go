package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/models"
)

// DefaultPageLimit bounds list reads when the caller does not paginate.
const DefaultPageLimit = 20

// MaxPageLimit is the hard ceiling on a single page.
const MaxPageLimit = 100

// Social is the aggregation facade: the only type the API layer calls.
// Each user action validates, mutates transactionally through the
// underlying stores, enqueues its notification best-effort, and returns
// the fresh aggregates for optimistic UI reconciliation.
type Social struct {
	store      Store
	ratings    *Ratings
	follows    *Follows
	engagement *Engagement
	notifier   *Notifier
	logger     *zap.Logger
}

// NewSocial creates the aggregation facade over a store.
func NewSocial(store Store, logger *zap.Logger) *Social {
	return &Social{
		store:      store,
		ratings:    NewRatings(store, logger),
		follows:    NewFollows(store, logger),
		engagement: NewEngagement(store, logger),
		notifier:   NewNotifier(store, logger),
		logger:     logger,
	}
}

// PhotoStats is the public aggregate shape returned after a mutation.
type PhotoStats struct {
	PhotoID       int64   `json:"photo_id"`
	Rating        float64 `json:"rating"`
	VotesCount    int64   `json:"votes_count"`
	LikesCount    int64   `json:"likes_count"`
	CommentsCount int64   `json:"comments_count"`
}

func statsOf(photo *models.Photo) PhotoStats {
	return PhotoStats{
		PhotoID:       photo.ID,
		Rating:        photo.Rating,
		VotesCount:    photo.VotesCount,
		LikesCount:    photo.LikesCount,
		CommentsCount: photo.CommentsCount,
	}
}

// Rate records actorID's rating of a photo and returns the updated
// aggregates. The photo owner is notified on the actor's first rating
// of the photo only; re-rates stay silent.
func (s *Social) Rate(ctx context.Context, actorID, photoID int64, value int16) (PhotoStats, error) {
	photo, first, err := s.ratings.Rate(ctx, actorID, photoID, value)
	if err != nil {
		return PhotoStats{}, err
	}
	if first {
		s.dispatch(ctx, photo.OwnerID, actorID, models.NotifyKindRating,
			func(actor string) string {
				return fmt.Sprintf("%s rated your photo %q %d/10", actor, photo.Title, value)
			})
	}
	return statsOf(photo), nil
}

// UserRating returns actorID's rating of a photo with an explicit
// presence flag, never a zero sentinel.
func (s *Social) UserRating(ctx context.Context, actorID, photoID int64) (UserRating, error) {
	return s.ratings.Get(ctx, actorID, photoID)
}

// Like records actorID liking a photo. Idempotent; the owner is
// notified only when a like was actually added.
func (s *Social) Like(ctx context.Context, actorID, photoID int64) (PhotoStats, error) {
	photo, created, err := s.engagement.Like(ctx, actorID, photoID)
	if err != nil {
		return PhotoStats{}, err
	}
	if created {
		s.dispatch(ctx, photo.OwnerID, actorID, models.NotifyKindLike,
			func(actor string) string {
				return fmt.Sprintf("%s liked your photo %q", actor, photo.Title)
			})
	}
	return statsOf(photo), nil
}

// Unlike removes actorID's like of a photo. Idempotent, never notifies.
func (s *Social) Unlike(ctx context.Context, actorID, photoID int64) (PhotoStats, error) {
	photo, _, err := s.engagement.Unlike(ctx, actorID, photoID)
	if err != nil {
		return PhotoStats{}, err
	}
	return statsOf(photo), nil
}

// HasLiked reports whether actorID has liked photoID.
func (s *Social) HasLiked(ctx context.Context, actorID, photoID int64) (bool, error) {
	return s.engagement.HasLiked(ctx, actorID, photoID)
}

// Comment appends actorID's comment to a photo, notifies the owner, and
// returns the created comment alongside the updated aggregates.
func (s *Social) Comment(ctx context.Context, actorID, photoID int64, body string) (*models.Comment, PhotoStats, error) {
	comment, photo, err := s.engagement.AddComment(ctx, actorID, photoID, body)
	if err != nil {
		return nil, PhotoStats{}, err
	}
	s.dispatch(ctx, photo.OwnerID, actorID, models.NotifyKindComment,
		func(actor string) string {
			return fmt.Sprintf("%s commented on your photo %q", actor, photo.Title)
		})
	return comment, statsOf(photo), nil
}

// DeleteComment removes actorID's own comment from a photo.
func (s *Social) DeleteComment(ctx context.Context, actorID, commentID int64) (PhotoStats, error) {
	photo, err := s.engagement.DeleteComment(ctx, commentID, actorID)
	if err != nil {
		return PhotoStats{}, err
	}
	if photo == nil {
		return PhotoStats{}, nil
	}
	return statsOf(photo), nil
}

// ListComments returns a photo's comments oldest-first.
func (s *Social) ListComments(ctx context.Context, photoID int64, limit, offset int) ([]*models.Comment, error) {
	return s.engagement.ListComments(ctx, photoID, clampLimit(limit), offset)
}

// Follow creates the actor -> target edge and notifies the target when
// the edge is new.
func (s *Social) Follow(ctx context.Context, actorID, targetID int64) error {
	created, err := s.follows.Follow(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if created {
		s.dispatch(ctx, targetID, actorID, models.NotifyKindFollow,
			func(actor string) string {
				return fmt.Sprintf("%s started following you", actor)
			})
	}
	return nil
}

// Unfollow removes the actor -> target edge. Idempotent, never notifies.
func (s *Social) Unfollow(ctx context.Context, actorID, targetID int64) error {
	_, err := s.follows.Unfollow(ctx, actorID, targetID)
	return err
}

// IsFollowing reports whether actorID follows targetID.
func (s *Social) IsFollowing(ctx context.Context, actorID, targetID int64) (bool, error) {
	return s.follows.IsFollowing(ctx, actorID, targetID)
}

// ListFollowers returns the profiles following profileID.
func (s *Social) ListFollowers(ctx context.Context, profileID int64) ([]*models.Profile, error) {
	return s.follows.ListFollowers(ctx, profileID)
}

// ListFollowing returns the profiles profileID follows.
func (s *Social) ListFollowing(ctx context.Context, profileID int64) ([]*models.Profile, error) {
	return s.follows.ListFollowing(ctx, profileID)
}

// CreatePhoto records a freshly uploaded photo. The image bytes are
// already in object storage under imageKey by the time this runs.
func (s *Social) CreatePhoto(ctx context.Context, ownerID int64, title, description, imageKey string) (*models.Photo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ValidationError("photo title must not be empty")
	}
	if imageKey == "" {
		return nil, ValidationError("photo image is required")
	}

	owner, err := s.store.Profiles().GetByID(ctx, ownerID)
	if err != nil {
		return nil, StoreError("load owner profile", err)
	}
	if owner == nil {
		return nil, NotFoundError("profile %d not found", ownerID)
	}

	now := time.Now().UTC()
	photo := &models.Photo{
		OwnerID:   ownerID,
		Title:     title,
		ImageKey:  imageKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if description = strings.TrimSpace(description); description != "" {
		photo.Description = sql.NullString{String: description, Valid: true}
	}
	if err := s.store.Photos().Create(ctx, photo); err != nil {
		return nil, StoreError("create photo", err)
	}
	photo.Owner = owner
	return photo, nil
}

// DeletePhoto removes a photo and everything hanging off it. Owner only;
// ratings, likes and comments cascade in the same transaction.
func (s *Social) DeletePhoto(ctx context.Context, actorID, photoID int64) error {
	return s.store.InTx(ctx, func(tx Store) error {
		photo, err := tx.Photos().GetByID(ctx, photoID)
		if err != nil {
			return StoreError("load photo", err)
		}
		if photo == nil {
			return NotFoundError("photo %d not found", photoID)
		}
		if photo.OwnerID != actorID {
			return AuthorizationError("only the photo owner may delete it")
		}

		if err := tx.Ratings().DeleteByPhoto(ctx, photoID); err != nil {
			return StoreError("delete photo ratings", err)
		}
		if err := tx.Likes().DeleteByPhoto(ctx, photoID); err != nil {
			return StoreError("delete photo likes", err)
		}
		if err := tx.Comments().DeleteByPhoto(ctx, photoID); err != nil {
			return StoreError("delete photo comments", err)
		}
		if err := tx.Photos().Delete(ctx, photoID); err != nil {
			return StoreError("delete photo", err)
		}
		return nil
	})
}

// GetPhoto returns one photo.
func (s *Social) GetPhoto(ctx context.Context, photoID int64) (*models.Photo, error) {
	photo, err := s.store.Photos().GetByID(ctx, photoID)
	if err != nil {
		return nil, StoreError("load photo", err)
	}
	if photo == nil {
		return nil, NotFoundError("photo %d not found", photoID)
	}
	return photo, nil
}

// ListPhotos returns the newest photos first.
func (s *Social) ListPhotos(ctx context.Context, limit, offset int) ([]*models.Photo, error) {
	photos, err := s.store.Photos().ListRecent(ctx, clampLimit(limit), offset)
	if err != nil {
		return nil, StoreError("list photos", err)
	}
	return photos, nil
}

// ListUserPhotos returns one profile's photos, newest first.
func (s *Social) ListUserPhotos(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Photo, error) {
	photos, err := s.store.Photos().ListByOwner(ctx, ownerID, clampLimit(limit), offset)
	if err != nil {
		return nil, StoreError("list photos", err)
	}
	return photos, nil
}

// ProfileView is a profile plus the viewer's relationship to it.
type ProfileView struct {
	Profile     *models.Profile
	IsFollowing bool
}

// GetProfile returns a profile by username together with whether the
// viewer follows it. viewerID zero means an anonymous viewer.
func (s *Social) GetProfile(ctx context.Context, username string, viewerID int64) (*ProfileView, error) {
	profile, err := s.store.Profiles().GetByUsername(ctx, username)
	if err != nil {
		return nil, StoreError("load profile", err)
	}
	if profile == nil {
		return nil, NotFoundError("profile %q not found", username)
	}

	view := &ProfileView{Profile: profile}
	if viewerID != 0 && viewerID != profile.ID {
		view.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, profile.ID)
		if err != nil {
			return nil, err
		}
	}
	return view, nil
}

// SearchProfiles finds profiles whose username matches query as a
// case-insensitive substring.
func (s *Social) SearchProfiles(ctx context.Context, query string, limit, offset int) ([]*models.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ValidationError("search query must not be empty")
	}
	profiles, err := s.store.Profiles().Search(ctx, query, clampLimit(limit), offset)
	if err != nil {
		return nil, StoreError("search profiles", err)
	}
	return profiles, nil
}

// ProfileUpdate carries the optional fields of a profile edit. Nil
// means "leave unchanged".
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	AvatarKey   *string
}

// UpdateProfile applies a profile edit for the actor's own profile.
func (s *Social) UpdateProfile(ctx context.Context, actorID int64, update ProfileUpdate) (*models.Profile, error) {
	profile, err := s.store.Profiles().GetByID(ctx, actorID)
	if err != nil {
		return nil, StoreError("load profile", err)
	}
	if profile == nil {
		return nil, NotFoundError("profile %d not found", actorID)
	}

	if update.DisplayName != nil {
		profile.DisplayName = sql.NullString{String: *update.DisplayName, Valid: *update.DisplayName != ""}
	}
	if update.Bio != nil {
		profile.Bio = sql.NullString{String: *update.Bio, Valid: *update.Bio != ""}
	}
	if update.AvatarKey != nil {
		profile.AvatarKey = *update.AvatarKey
	}
	profile.UpdatedAt = time.Now().UTC()

	if err := s.store.Profiles().Update(ctx, profile); err != nil {
		return nil, StoreError("update profile", err)
	}
	return profile, nil
}

// Notifications returns the actor's notification feed, newest first.
func (s *Social) Notifications(ctx context.Context, actorID int64, limit int) ([]*models.Notification, error) {
	return s.notifier.ListRecent(ctx, actorID, limit)
}

// UnreadNotifications returns the actor's unread notification count.
func (s *Social) UnreadNotifications(ctx context.Context, actorID int64) (int64, error) {
	return s.notifier.UnreadCount(ctx, actorID)
}

// MarkNotificationRead marks one of the actor's notifications read.
func (s *Social) MarkNotificationRead(ctx context.Context, actorID, notificationID int64) error {
	return s.notifier.MarkRead(ctx, notificationID, actorID)
}

// MarkAllNotificationsRead marks the actor's whole feed read.
func (s *Social) MarkAllNotificationsRead(ctx context.Context, actorID int64) error {
	return s.notifier.MarkAllRead(ctx, actorID)
}

// dispatch enqueues a notification best-effort. A dispatch failure is
// logged and swallowed so it can never fail the primary action that
// triggered it.
func (s *Social) dispatch(ctx context.Context, recipientID, senderID int64, kind string, content func(actor string) string) {
	actor := fmt.Sprintf("user %d", senderID)
	if sender, err := s.store.Profiles().GetByID(ctx, senderID); err == nil && sender != nil {
		actor = sender.Username
	}
	if err := s.notifier.Notify(ctx, recipientID, senderID, kind, content(actor)); err != nil {
		s.logger.Error("Notification dispatch failed",
			zap.String("kind", kind),
			zap.Int64("recipient_id", recipientID),
			zap.Int64("sender_id", senderID),
			zap.Error(err))
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}
