package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestFollowRejectsSelf(t *testing.T) {
	store := newMemStore()
	a := store.addProfile("alice")
	follows := NewFollows(store, zap.NewNop())

	_, err := follows.Follow(context.Background(), a.ID, a.ID)
	if !IsKind(err, KindValidation) {
		t.Errorf("Follow(self) error = %v, want validation error", err)
	}

	if got := store.profile(a.ID); got.FollowersCount != 0 || got.FollowingCount != 0 {
		t.Errorf("Self-follow must not move counters, got followers=%d following=%d",
			got.FollowersCount, got.FollowingCount)
	}
	exists, _ := store.Follows().Exists(context.Background(), a.ID, a.ID)
	if exists {
		t.Error("Self-follow must not create an edge")
	}
}

func TestFollowIsIdempotent(t *testing.T) {
	store := newMemStore()
	a := store.addProfile("alice")
	b := store.addProfile("bob")
	follows := NewFollows(store, zap.NewNop())
	ctx := context.Background()

	created, err := follows.Follow(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Follow() error: %v", err)
	}
	if !created {
		t.Error("First Follow() should create the edge")
	}

	created, err = follows.Follow(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Second Follow() error: %v", err)
	}
	if created {
		t.Error("Second Follow() should be a no-op")
	}

	if got := store.profile(b.ID); got.FollowersCount != 1 {
		t.Errorf("FollowersCount = %d, want 1 (double follow must not double-increment)", got.FollowersCount)
	}
	if got := store.profile(a.ID); got.FollowingCount != 1 {
		t.Errorf("FollowingCount = %d, want 1", got.FollowingCount)
	}
}

func TestUnfollowIsIdempotent(t *testing.T) {
	store := newMemStore()
	a := store.addProfile("alice")
	b := store.addProfile("bob")
	follows := NewFollows(store, zap.NewNop())
	ctx := context.Background()

	// Unfollow with no edge: no-op, no error, counters unchanged.
	removed, err := follows.Unfollow(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Unfollow() on absent edge error: %v", err)
	}
	if removed {
		t.Error("Unfollow() on absent edge should be a no-op")
	}
	if got := store.profile(b.ID); got.FollowersCount != 0 {
		t.Errorf("FollowersCount = %d, want 0", got.FollowersCount)
	}

	if _, err := follows.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}
	removed, err = follows.Unfollow(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Unfollow() error: %v", err)
	}
	if !removed {
		t.Error("Unfollow() should remove the edge")
	}

	if got := store.profile(b.ID); got.FollowersCount != 0 {
		t.Errorf("FollowersCount after unfollow = %d, want 0", got.FollowersCount)
	}
	if got := store.profile(a.ID); got.FollowingCount != 0 {
		t.Errorf("FollowingCount after unfollow = %d, want 0", got.FollowingCount)
	}
}

func TestFollowCountsAndListing(t *testing.T) {
	store := newMemStore()
	a := store.addProfile("alice")
	b := store.addProfile("bob")
	c := store.addProfile("carol")
	follows := NewFollows(store, zap.NewNop())
	ctx := context.Background()

	if _, err := follows.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}
	if _, err := follows.Follow(ctx, c.ID, b.ID); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}

	if got := store.profile(b.ID); got.FollowersCount != 2 {
		t.Errorf("FollowersCount = %d, want 2", got.FollowersCount)
	}

	followers, err := follows.ListFollowers(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListFollowers() error: %v", err)
	}
	got := map[string]bool{}
	for _, p := range followers {
		got[p.Username] = true
	}
	if len(got) != 2 || !got["alice"] || !got["carol"] {
		t.Errorf("ListFollowers() = %v, want {alice, carol}", got)
	}

	following, err := follows.ListFollowing(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListFollowing() error: %v", err)
	}
	if len(following) != 1 || following[0].Username != "bob" {
		t.Errorf("ListFollowing(alice) should be exactly {bob}")
	}
}

func TestIsFollowing(t *testing.T) {
	store := newMemStore()
	a := store.addProfile("alice")
	b := store.addProfile("bob")
	follows := NewFollows(store, zap.NewNop())
	ctx := context.Background()

	ok, err := follows.IsFollowing(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("IsFollowing() error: %v", err)
	}
	if ok {
		t.Error("IsFollowing() should be false before following")
	}

	if _, err := follows.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}

	ok, err = follows.IsFollowing(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("IsFollowing() error: %v", err)
	}
	if !ok {
		t.Error("IsFollowing() should be true after following")
	}

	// The edge is directed.
	ok, _ = follows.IsFollowing(ctx, b.ID, a.ID)
	if ok {
		t.Error("IsFollowing() must respect edge direction")
	}
}

func TestUnfollowClampsCounterAtZero(t *testing.T) {
	store := newMemStore()
	a := store.addProfile("alice")
	b := store.addProfile("bob")
	follows := NewFollows(store, zap.NewNop())
	ctx := context.Background()

	// Seed an edge without counters, simulating drift.
	if _, err := follows.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}
	store.setFollowCounts(b.ID, 0, 0)

	if _, err := follows.Unfollow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Unfollow() error: %v", err)
	}

	if got := store.profile(b.ID); got.FollowersCount != 0 {
		t.Errorf("FollowersCount = %d, want 0 (clamped, never negative)", got.FollowersCount)
	}
}

func TestConcurrentFollowsBothCounted(t *testing.T) {
	store := newMemStore()
	alice := store.addProfile("alice")
	bob := store.addProfile("bob")
	carol := store.addProfile("carol")

	// Hold each transaction at a barrier after it has read bob's
	// profile, so both counter moves start from the same observed
	// state. In-database column arithmetic must still count both.
	var atBarrier sync.WaitGroup
	atBarrier.Add(2)
	gated := &gatedStore{Store: store, gate: func(id int64) {
		if id == bob.ID {
			atBarrier.Done()
			atBarrier.Wait()
		}
	}}
	follows := NewFollows(gated, zap.NewNop())

	var wg sync.WaitGroup
	for _, followerID := range []int64{alice.ID, carol.ID} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := follows.Follow(context.Background(), id, bob.ID); err != nil {
				t.Errorf("Follow() error: %v", err)
			}
		}(followerID)
	}
	wg.Wait()

	if got := store.profile(bob.ID).FollowersCount; got != 2 {
		t.Errorf("FollowersCount = %d after two concurrent follows, want 2", got)
	}
	followers, err := store.Follows().ListFollowers(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("ListFollowers() error: %v", err)
	}
	if len(followers) != 2 {
		t.Errorf("Edge count = %d, want 2", len(followers))
	}
}

func TestConcurrentSameEdgeFollowsIncrementOnce(t *testing.T) {
	store := newMemStore()
	alice := store.addProfile("alice")
	bob := store.addProfile("bob")

	// Both transactions pass the read window before either inserts;
	// the uniqueness constraint decides which insert counts.
	var atBarrier sync.WaitGroup
	atBarrier.Add(2)
	gated := &gatedStore{Store: store, gate: func(id int64) {
		if id == bob.ID {
			atBarrier.Done()
			atBarrier.Wait()
		}
	}}
	follows := NewFollows(gated, zap.NewNop())

	var wg sync.WaitGroup
	var createdCount int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := follows.Follow(context.Background(), alice.ID, bob.ID)
			if err != nil {
				t.Errorf("Follow() error: %v", err)
			}
			if created {
				atomic.AddInt32(&createdCount, 1)
			}
		}()
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("created reported %d times, want exactly 1", createdCount)
	}
	if got := store.profile(bob.ID).FollowersCount; got != 1 {
		t.Errorf("FollowersCount = %d after racing duplicate follows, want 1", got)
	}
	if got := store.profile(alice.ID).FollowingCount; got != 1 {
		t.Errorf("FollowingCount = %d after racing duplicate follows, want 1", got)
	}
}
