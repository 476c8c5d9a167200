package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fitsnap/fitsnap/internal/models"
)

// memStore is an in-memory Store used by the service tests. It stores
// copies so that callers mutating a loaded entity without calling
// Update do not leak the change, mirroring a real database.
type memStore struct {
	mu            sync.Mutex
	profiles      map[int64]*models.Profile
	photos        map[int64]*models.Photo
	ratings       map[[2]int64]*models.Rating
	likes         map[[2]int64]*models.Like
	comments      map[int64]*models.Comment
	follows       map[[2]int64]*models.Follow
	notifications map[int64]*models.Notification
	photoLocks    map[int64]*sync.Mutex
	nextID        int64

	// failNotifications makes notification creation fail, for
	// exercising best-effort dispatch.
	failNotifications bool
}

func newMemStore() *memStore {
	return &memStore{
		profiles:      make(map[int64]*models.Profile),
		photos:        make(map[int64]*models.Photo),
		ratings:       make(map[[2]int64]*models.Rating),
		likes:         make(map[[2]int64]*models.Like),
		comments:      make(map[int64]*models.Comment),
		follows:       make(map[[2]int64]*models.Follow),
		notifications: make(map[int64]*models.Notification),
		photoLocks:    make(map[int64]*sync.Mutex),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addProfile(username string) *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Profile{
		ID:        s.id(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	s.profiles[p.ID] = p
	return copyProfile(p)
}

func (s *memStore) addPhoto(ownerID int64, title string) *models.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Photo{
		ID:        s.id(),
		OwnerID:   ownerID,
		Title:     title,
		ImageKey:  fmt.Sprintf("key-%d", s.nextID),
		CreatedAt: time.Now().UTC(),
	}
	s.photos[p.ID] = p
	return copyPhoto(p)
}

func (s *memStore) profile(id int64) *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProfile(s.profiles[id])
}

func (s *memStore) photo(id int64) *models.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyPhoto(s.photos[id])
}

func (s *memStore) notificationsFor(recipientID int64) []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyProfile(p *models.Profile) *models.Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func copyPhoto(p *models.Photo) *models.Photo {
	if p == nil {
		return nil
	}
	c := *p
	c.Owner = nil
	return &c
}

func (s *memStore) Profiles() ProfileRepo           { return (*memProfiles)(s) }
func (s *memStore) Photos() PhotoRepo               { return (*memPhotos)(s) }
func (s *memStore) Ratings() RatingRepo             { return (*memRatings)(s) }
func (s *memStore) Likes() LikeRepo                 { return (*memLikes)(s) }
func (s *memStore) Comments() CommentRepo           { return (*memComments)(s) }
func (s *memStore) Follows() FollowRepo             { return (*memFollows)(s) }
func (s *memStore) Notifications() NotificationRepo { return (*memNotifications)(s) }

func (s *memStore) InTx(ctx context.Context, fn func(Store) error) error {
	tx := &memTx{memStore: s, locked: make(map[int64]*sync.Mutex)}
	defer tx.release()
	return fn(tx)
}

// memTx scopes row locks taken by GetForUpdate to one transaction,
// holding them until the transaction ends the way the database does.
type memTx struct {
	*memStore
	locked map[int64]*sync.Mutex
}

func (tx *memTx) Photos() PhotoRepo {
	return &memTxPhotos{memPhotos: (*memPhotos)(tx.memStore), tx: tx}
}

func (tx *memTx) lockPhoto(id int64) {
	if _, held := tx.locked[id]; held {
		return
	}
	tx.mu.Lock()
	l, ok := tx.photoLocks[id]
	if !ok {
		l = &sync.Mutex{}
		tx.photoLocks[id] = l
	}
	tx.mu.Unlock()
	l.Lock()
	tx.locked[id] = l
}

func (tx *memTx) release() {
	for _, l := range tx.locked {
		l.Unlock()
	}
}

type memTxPhotos struct {
	*memPhotos
	tx *memTx
}

func (p *memTxPhotos) GetForUpdate(ctx context.Context, id int64) (*models.Photo, error) {
	p.tx.lockPhoto(id)
	return p.memPhotos.GetByID(ctx, id)
}

type memProfiles memStore

func (m *memProfiles) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyProfile(m.profiles[id]), nil
}

func (m *memProfiles) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Username == username {
			return copyProfile(p), nil
		}
	}
	return nil, nil
}

func (m *memProfiles) Search(ctx context.Context, query string, limit, offset int) ([]*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Profile
	for _, p := range m.profiles {
		if strings.Contains(strings.ToLower(p.Username), strings.ToLower(query)) {
			out = append(out, copyProfile(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return page(out, limit, offset), nil
}

func (m *memProfiles) Create(ctx context.Context, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile.ID = (*memStore)(m).id()
	m.profiles[profile.ID] = copyProfile(profile)
	return nil
}

func (m *memProfiles) Update(ctx context.Context, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[profile.ID]; ok {
		p.DisplayName = profile.DisplayName
		p.Bio = profile.Bio
		p.AvatarKey = profile.AvatarKey
		p.UpdatedAt = profile.UpdatedAt
	}
	return nil
}

func (m *memProfiles) AdjustFollowCounters(ctx context.Context, followerID, followedID, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[followerID]; ok {
		p.FollowingCount = clampAdd(p.FollowingCount, delta)
	}
	if p, ok := m.profiles[followedID]; ok {
		p.FollowersCount = clampAdd(p.FollowersCount, delta)
	}
	return nil
}

type memPhotos memStore

func (m *memPhotos) GetByID(ctx context.Context, id int64) (*models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyPhoto(m.photos[id]), nil
}

// GetForUpdate outside a transaction has no lock to scope; memTx wraps
// it with the row lock.
func (m *memPhotos) GetForUpdate(ctx context.Context, id int64) (*models.Photo, error) {
	return m.GetByID(ctx, id)
}

func (m *memPhotos) Create(ctx context.Context, photo *models.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	photo.ID = (*memStore)(m).id()
	m.photos[photo.ID] = copyPhoto(photo)
	return nil
}

func (m *memPhotos) UpdateAggregates(ctx context.Context, id int64, mean float64, votes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.photos[id]; ok {
		p.Rating = mean
		p.VotesCount = votes
	}
	return nil
}

func (m *memPhotos) AdjustLikes(ctx context.Context, id, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.photos[id]; ok {
		p.LikesCount = clampAdd(p.LikesCount, delta)
	}
	return nil
}

func (m *memPhotos) AdjustComments(ctx context.Context, id, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.photos[id]; ok {
		p.CommentsCount = clampAdd(p.CommentsCount, delta)
	}
	return nil
}

func (m *memPhotos) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.photos, id)
	return nil
}

func (m *memPhotos) ListRecent(ctx context.Context, limit, offset int) ([]*models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Photo
	for _, p := range m.photos {
		out = append(out, copyPhoto(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (m *memPhotos) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Photo
	for _, p := range m.photos {
		if p.OwnerID == ownerID {
			out = append(out, copyPhoto(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

type memRatings memStore

func (m *memRatings) Get(ctx context.Context, raterID, photoID int64) (*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.ratings[[2]int64{raterID, photoID}]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (m *memRatings) Save(ctx context.Context, rating *models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *rating
	m.ratings[[2]int64{rating.RaterID, rating.PhotoID}] = &c
	return nil
}

func (m *memRatings) Aggregate(ctx context.Context, photoID int64) (float64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum, count int64
	for _, r := range m.ratings {
		if r.PhotoID == photoID {
			sum += int64(r.Value)
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

func (m *memRatings) DeleteByPhoto(ctx context.Context, photoID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.ratings {
		if r.PhotoID == photoID {
			delete(m.ratings, k)
		}
	}
	return nil
}

type memLikes memStore

func (m *memLikes) Exists(ctx context.Context, likerID, photoID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.likes[[2]int64{likerID, photoID}]
	return ok, nil
}

func (m *memLikes) Create(ctx context.Context, like *models.Like) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{like.LikerID, like.PhotoID}
	if _, ok := m.likes[key]; ok {
		return false, nil
	}
	c := *like
	m.likes[key] = &c
	return true, nil
}

func (m *memLikes) Delete(ctx context.Context, likerID, photoID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{likerID, photoID}
	if _, ok := m.likes[key]; !ok {
		return false, nil
	}
	delete(m.likes, key)
	return true, nil
}

func (m *memLikes) DeleteByPhoto(ctx context.Context, photoID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, l := range m.likes {
		if l.PhotoID == photoID {
			delete(m.likes, k)
		}
	}
	return nil
}

type memComments memStore

func (m *memComments) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.comments[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *memComments) Create(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment.ID = (*memStore)(m).id()
	c := *comment
	c.Author = nil
	m.comments[c.ID] = &c
	return nil
}

func (m *memComments) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return false, nil
	}
	delete(m.comments, id)
	return true, nil
}

func (m *memComments) ListByPhoto(ctx context.Context, photoID int64, limit, offset int) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Comment
	for _, c := range m.comments {
		if c.PhotoID == photoID {
			cp := *c
			cp.Author = copyProfile(m.profiles[c.AuthorID])
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

func (m *memComments) DeleteByPhoto(ctx context.Context, photoID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range m.comments {
		if c.PhotoID == photoID {
			delete(m.comments, k)
		}
	}
	return nil
}

type memFollows memStore

func (m *memFollows) Exists(ctx context.Context, followerID, followedID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.follows[[2]int64{followerID, followedID}]
	return ok, nil
}

func (m *memFollows) Create(ctx context.Context, follow *models.Follow) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{follow.FollowerID, follow.FollowedID}
	if _, ok := m.follows[key]; ok {
		return false, nil
	}
	c := *follow
	m.follows[key] = &c
	return true, nil
}

func (m *memFollows) Delete(ctx context.Context, followerID, followedID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{followerID, followedID}
	if _, ok := m.follows[key]; !ok {
		return false, nil
	}
	delete(m.follows, key)
	return true, nil
}

func (m *memFollows) ListFollowers(ctx context.Context, profileID int64) ([]*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for k := range m.follows {
		if k[1] == profileID {
			ids = append(ids, k[0])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*models.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyProfile(m.profiles[id]))
	}
	return out, nil
}

func (m *memFollows) ListFollowing(ctx context.Context, profileID int64) ([]*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for k := range m.follows {
		if k[0] == profileID {
			ids = append(ids, k[1])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*models.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyProfile(m.profiles[id]))
	}
	return out, nil
}

type memNotifications memStore

func (m *memNotifications) Create(ctx context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNotifications {
		return fmt.Errorf("notification store unavailable")
	}
	notification.ID = (*memStore)(m).id()
	c := *notification
	m.notifications[c.ID] = &c
	return nil
}

func (m *memNotifications) MarkRead(ctx context.Context, id, recipientID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok && n.RecipientID == recipientID {
		n.Read = true
	}
	return nil
}

func (m *memNotifications) MarkAllRead(ctx context.Context, recipientID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			n.Read = true
		}
	}
	return nil
}

func (m *memNotifications) ListRecent(ctx context.Context, recipientID int64, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			c := *n
			c.Sender = copyProfile(m.profiles[n.SenderID])
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifications) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func clampAdd(current, delta int64) int64 {
	if next := current + delta; next > 0 {
		return next
	}
	return 0
}

// setFollowCounts writes counter values directly, bypassing the repos,
// to simulate counters that drifted from the edge rows.
func (s *memStore) setFollowCounts(id, followers, following int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		p.FollowersCount = followers
		p.FollowingCount = following
	}
}

// gatedStore wraps a Store so transactions pause at a caller-supplied
// gate after loading a row, letting tests force two mutations to
// interleave on the same rows.
type gatedStore struct {
	Store
	gate func(id int64)
}

func (g *gatedStore) InTx(ctx context.Context, fn func(Store) error) error {
	return g.Store.InTx(ctx, func(tx Store) error {
		return fn(&gatedTx{Store: tx, gate: g.gate})
	})
}

type gatedTx struct {
	Store
	gate func(id int64)
}

func (t *gatedTx) Profiles() ProfileRepo {
	return &gatedProfiles{ProfileRepo: t.Store.Profiles(), gate: t.gate}
}

func (t *gatedTx) Photos() PhotoRepo {
	return &gatedPhotos{PhotoRepo: t.Store.Photos(), gate: t.gate}
}

type gatedProfiles struct {
	ProfileRepo
	gate func(id int64)
}

func (p *gatedProfiles) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	profile, err := p.ProfileRepo.GetByID(ctx, id)
	p.gate(id)
	return profile, err
}

type gatedPhotos struct {
	PhotoRepo
	gate func(id int64)
}

func (p *gatedPhotos) GetByID(ctx context.Context, id int64) (*models.Photo, error) {
	photo, err := p.PhotoRepo.GetByID(ctx, id)
	p.gate(id)
	return photo, err
}

func (p *gatedPhotos) GetForUpdate(ctx context.Context, id int64) (*models.Photo, error) {
	photo, err := p.PhotoRepo.GetForUpdate(ctx, id)
	p.gate(id)
	return photo, err
}
