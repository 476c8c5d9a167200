package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/models"
)

// Engagement maintains the membership-style counters on photos:
// likes and comments.
type Engagement struct {
	store  Store
	logger *zap.Logger
}

// NewEngagement creates a new engagement counter store
func NewEngagement(store Store, logger *zap.Logger) *Engagement {
	return &Engagement{store: store, logger: logger}
}

// Like records likerID liking photoID. Idempotent: an existing like is
// a successful no-op. Returns the updated photo and whether a like was
// actually added.
func (e *Engagement) Like(ctx context.Context, likerID, photoID int64) (*models.Photo, bool, error) {
	var photo *models.Photo
	var created bool
	err := e.store.InTx(ctx, func(tx Store) error {
		var err error
		photo, err = tx.Photos().GetByID(ctx, photoID)
		if err != nil {
			return StoreError("load photo", err)
		}
		if photo == nil {
			return NotFoundError("photo %d not found", photoID)
		}

		like := &models.Like{
			LikerID:   likerID,
			PhotoID:   photoID,
			CreatedAt: time.Now().UTC(),
		}
		// The uniqueness constraint decides idempotency; the counter
		// moves in-database only for the inserting transaction.
		inserted, err := tx.Likes().Create(ctx, like)
		if err != nil {
			return StoreError("create like", err)
		}
		if !inserted {
			return nil
		}

		if err := tx.Photos().AdjustLikes(ctx, photoID, 1); err != nil {
			return StoreError("update photo counters", err)
		}
		photo.LikesCount++
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return photo, created, nil
}

// Unlike removes likerID's like of photoID. Idempotent on absence.
func (e *Engagement) Unlike(ctx context.Context, likerID, photoID int64) (*models.Photo, bool, error) {
	var photo *models.Photo
	var removed bool
	err := e.store.InTx(ctx, func(tx Store) error {
		var err error
		photo, err = tx.Photos().GetByID(ctx, photoID)
		if err != nil {
			return StoreError("load photo", err)
		}
		if photo == nil {
			return NotFoundError("photo %d not found", photoID)
		}

		deleted, err := tx.Likes().Delete(ctx, likerID, photoID)
		if err != nil {
			return StoreError("delete like", err)
		}
		if !deleted {
			return nil
		}

		photo.LikesCount = e.clampDecrement(photo.LikesCount, "likes_count", photo.ID)
		if err := tx.Photos().AdjustLikes(ctx, photoID, -1); err != nil {
			return StoreError("update photo counters", err)
		}
		removed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return photo, removed, nil
}

// HasLiked reports whether likerID has liked photoID.
func (e *Engagement) HasLiked(ctx context.Context, likerID, photoID int64) (bool, error) {
	exists, err := e.store.Likes().Exists(ctx, likerID, photoID)
	if err != nil {
		return false, StoreError("check like", err)
	}
	return exists, nil
}

// AddComment appends a comment to a photo and bumps its comment
// counter. The returned comment carries the author profile snapshot so
// the caller can render it without another lookup.
func (e *Engagement) AddComment(ctx context.Context, authorID, photoID int64, body string) (*models.Comment, *models.Photo, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, ValidationError("comment text must not be empty")
	}

	var comment *models.Comment
	var photo *models.Photo
	err := e.store.InTx(ctx, func(tx Store) error {
		var err error
		photo, err = tx.Photos().GetByID(ctx, photoID)
		if err != nil {
			return StoreError("load photo", err)
		}
		if photo == nil {
			return NotFoundError("photo %d not found", photoID)
		}

		author, err := tx.Profiles().GetByID(ctx, authorID)
		if err != nil {
			return StoreError("load author profile", err)
		}
		if author == nil {
			return NotFoundError("profile %d not found", authorID)
		}

		comment = &models.Comment{
			PhotoID:   photoID,
			AuthorID:  authorID,
			Body:      body,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return StoreError("create comment", err)
		}
		comment.Author = author

		if err := tx.Photos().AdjustComments(ctx, photoID, 1); err != nil {
			return StoreError("update photo counters", err)
		}
		photo.CommentsCount++
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return comment, photo, nil
}

// DeleteComment removes a comment. Only the comment's author may delete
// it.
func (e *Engagement) DeleteComment(ctx context.Context, commentID, requesterID int64) (*models.Photo, error) {
	var photo *models.Photo
	err := e.store.InTx(ctx, func(tx Store) error {
		comment, err := tx.Comments().GetByID(ctx, commentID)
		if err != nil {
			return StoreError("load comment", err)
		}
		if comment == nil {
			return NotFoundError("comment %d not found", commentID)
		}
		if comment.AuthorID != requesterID {
			return AuthorizationError("only the comment author may delete it")
		}

		photo, err = tx.Photos().GetByID(ctx, comment.PhotoID)
		if err != nil {
			return StoreError("load photo", err)
		}

		deleted, err := tx.Comments().Delete(ctx, commentID)
		if err != nil {
			return StoreError("delete comment", err)
		}

		if deleted && photo != nil {
			photo.CommentsCount = e.clampDecrement(photo.CommentsCount, "comments_count", photo.ID)
			if err := tx.Photos().AdjustComments(ctx, comment.PhotoID, -1); err != nil {
				return StoreError("update photo counters", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// ListComments returns a photo's comments oldest-first.
func (e *Engagement) ListComments(ctx context.Context, photoID int64, limit, offset int) ([]*models.Comment, error) {
	comments, err := e.store.Comments().ListByPhoto(ctx, photoID, limit, offset)
	if err != nil {
		return nil, StoreError("list comments", err)
	}
	return comments, nil
}

// clampDecrement computes the post-decrement counter value for the
// returned snapshot. The store clamps the stored column itself; a zero
// counter here means the rows and the counter drifted apart, so log it.
func (e *Engagement) clampDecrement(current int64, counter string, photoID int64) int64 {
	if current <= 0 {
		e.logger.Warn("Counter inconsistency, decrement clamped at zero",
			zap.String("counter", counter),
			zap.Int64("photo_id", photoID))
		return 0
	}
	return current - 1
}
