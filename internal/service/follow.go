package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/models"
)

// Follows maintains the directed follow graph and the denormalized
// follower/following counters on profiles. Counters move in the same
// transaction as the edge, never lazily.
type Follows struct {
	store  Store
	logger *zap.Logger
}

// NewFollows creates a new follow graph store
func NewFollows(store Store, logger *zap.Logger) *Follows {
	return &Follows{store: store, logger: logger}
}

// Follow creates the follower -> followed edge and bumps both counters.
// Idempotent: an existing edge is a successful no-op. Self-follow is a
// validation error.
func (f *Follows) Follow(ctx context.Context, followerID, followedID int64) (bool, error) {
	if followerID == followedID {
		return false, ValidationError("cannot follow yourself")
	}

	var created bool
	err := f.store.InTx(ctx, func(tx Store) error {
		if _, _, err := f.loadPair(ctx, tx, followerID, followedID); err != nil {
			return err
		}

		edge := &models.Follow{
			FollowerID: followerID,
			FollowedID: followedID,
			CreatedAt:  time.Now().UTC(),
		}
		// The uniqueness constraint decides idempotency: the counter
		// moves only for the transaction that inserted the edge, even
		// when two identical follows race.
		inserted, err := tx.Follows().Create(ctx, edge)
		if err != nil {
			return StoreError("create follow edge", err)
		}
		if !inserted {
			return nil
		}

		if err := tx.Profiles().AdjustFollowCounters(ctx, followerID, followedID, 1); err != nil {
			return StoreError("update follow counters", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Unfollow removes the edge and decrements both counters. Idempotent:
// a missing edge is a successful no-op and leaves counters untouched.
func (f *Follows) Unfollow(ctx context.Context, followerID, followedID int64) (bool, error) {
	if followerID == followedID {
		return false, ValidationError("cannot unfollow yourself")
	}

	var removed bool
	err := f.store.InTx(ctx, func(tx Store) error {
		follower, followed, err := f.loadPair(ctx, tx, followerID, followedID)
		if err != nil {
			return err
		}

		deleted, err := tx.Follows().Delete(ctx, followerID, followedID)
		if err != nil {
			return StoreError("delete follow edge", err)
		}
		if !deleted {
			return nil
		}

		f.warnIfDrifted(follower.FollowingCount, "following_count", follower.ID)
		f.warnIfDrifted(followed.FollowersCount, "followers_count", followed.ID)
		if err := tx.Profiles().AdjustFollowCounters(ctx, followerID, followedID, -1); err != nil {
			return StoreError("update follow counters", err)
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// IsFollowing reports whether the follower -> followed edge exists.
func (f *Follows) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	exists, err := f.store.Follows().Exists(ctx, followerID, followedID)
	if err != nil {
		return false, StoreError("check follow edge", err)
	}
	return exists, nil
}

// ListFollowers returns the profiles following profileID in stable order.
func (f *Follows) ListFollowers(ctx context.Context, profileID int64) ([]*models.Profile, error) {
	profiles, err := f.store.Follows().ListFollowers(ctx, profileID)
	if err != nil {
		return nil, StoreError("list followers", err)
	}
	return profiles, nil
}

// ListFollowing returns the profiles profileID follows in stable order.
func (f *Follows) ListFollowing(ctx context.Context, profileID int64) ([]*models.Profile, error) {
	profiles, err := f.store.Follows().ListFollowing(ctx, profileID)
	if err != nil {
		return nil, StoreError("list following", err)
	}
	return profiles, nil
}

func (f *Follows) loadPair(ctx context.Context, tx Store, followerID, followedID int64) (*models.Profile, *models.Profile, error) {
	follower, err := tx.Profiles().GetByID(ctx, followerID)
	if err != nil {
		return nil, nil, StoreError("load follower profile", err)
	}
	if follower == nil {
		return nil, nil, NotFoundError("profile %d not found", followerID)
	}
	followed, err := tx.Profiles().GetByID(ctx, followedID)
	if err != nil {
		return nil, nil, StoreError("load followed profile", err)
	}
	if followed == nil {
		return nil, nil, NotFoundError("profile %d not found", followedID)
	}
	return follower, followed, nil
}

// warnIfDrifted logs when a counter is about to be decremented at zero.
// The store clamps the decrement itself; a zero counter alongside a
// real edge means the edge and counter drifted apart somewhere.
func (f *Follows) warnIfDrifted(current int64, counter string, profileID int64) {
	if current <= 0 {
		f.logger.Warn("Counter inconsistency, decrement clamped at zero",
			zap.String("counter", counter),
			zap.Int64("profile_id", profileID))
	}
}
