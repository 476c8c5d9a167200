package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/models"
)

// Ratings maintains per-photo rating aggregates. One rating per
// (rater, photo) pair; a re-rate overwrites the previous value.
type Ratings struct {
	store  Store
	logger *zap.Logger
}

// NewRatings creates a new rating store
func NewRatings(store Store, logger *zap.Logger) *Ratings {
	return &Ratings{store: store, logger: logger}
}

// UserRating is the answer to "has this user rated this photo, and what".
// HasRated distinguishes absence from any numeric value; zero is never a
// castable rating.
type UserRating struct {
	HasRated bool  `json:"has_rated"`
	Value    int16 `json:"value,omitempty"`
}

// Rate records value as raterID's rating of photoID, upserting on the
// (rater, photo) pair, and recomputes the photo's mean rating from the
// rating rows. Recompute-from-source keeps concurrent raters correct and
// avoids drift from incremental float accumulation. Returns the updated
// photo and whether this was the rater's first rating of it.
func (r *Ratings) Rate(ctx context.Context, raterID, photoID int64, value int16) (*models.Photo, bool, error) {
	if value < models.RatingMin || value > models.RatingMax {
		return nil, false, ValidationError("rating must be between %d and %d, got %d", models.RatingMin, models.RatingMax, value)
	}

	var photo *models.Photo
	var first bool
	err := r.store.InTx(ctx, func(tx Store) error {
		// The row lock serializes concurrent raters of the same photo,
		// so each recompute sees every previously committed rating.
		var err error
		photo, err = tx.Photos().GetForUpdate(ctx, photoID)
		if err != nil {
			return StoreError("load photo", err)
		}
		if photo == nil {
			return NotFoundError("photo %d not found", photoID)
		}

		existing, err := tx.Ratings().Get(ctx, raterID, photoID)
		if err != nil {
			return StoreError("load rating", err)
		}

		now := time.Now().UTC()
		rating := &models.Rating{
			RaterID:   raterID,
			PhotoID:   photoID,
			Value:     value,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if existing != nil {
			rating.CreatedAt = existing.CreatedAt
		}
		first = existing == nil

		if err := tx.Ratings().Save(ctx, rating); err != nil {
			return StoreError("save rating", err)
		}

		mean, count, err := tx.Ratings().Aggregate(ctx, photoID)
		if err != nil {
			return StoreError("aggregate ratings", err)
		}

		if err := tx.Photos().UpdateAggregates(ctx, photoID, mean, count); err != nil {
			return StoreError("update photo aggregates", err)
		}
		photo.Rating = mean
		photo.VotesCount = count
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	r.logger.Debug("Recorded rating",
		zap.Int64("rater_id", raterID),
		zap.Int64("photo_id", photoID),
		zap.Int16("value", value),
		zap.Bool("first", first))

	return photo, first, nil
}

// Get returns raterID's rating of photoID, with an explicit presence flag.
func (r *Ratings) Get(ctx context.Context, raterID, photoID int64) (UserRating, error) {
	rating, err := r.store.Ratings().Get(ctx, raterID, photoID)
	if err != nil {
		return UserRating{}, StoreError("load rating", err)
	}
	if rating == nil {
		return UserRating{}, nil
	}
	return UserRating{HasRated: true, Value: rating.Value}, nil
}
