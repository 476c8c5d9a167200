package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/models"
)

// Public response shapes. Image keys are resolved to presigned URLs
// here so clients never see raw object keys.

type profileView struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type profileDetailView struct {
	profileView
	IsFollowing bool `json:"is_following"`
}

type photoView struct {
	ID            int64        `json:"id"`
	Owner         *profileView `json:"owner,omitempty"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	ImageURL      string       `json:"image_url"`
	Rating        float64      `json:"rating"`
	VotesCount    int64        `json:"votes_count"`
	LikesCount    int64        `json:"likes_count"`
	CommentsCount int64        `json:"comments_count"`
	CreatedAt     time.Time    `json:"created_at"`
}

type photoDetailView struct {
	photoView
	HasRated   bool  `json:"has_rated"`
	UserRating int16 `json:"user_rating,omitempty"`
	HasLiked   bool  `json:"has_liked"`
}

type commentView struct {
	ID        int64        `json:"id"`
	PhotoID   int64        `json:"photo_id"`
	Body      string       `json:"body"`
	Author    *profileView `json:"author,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type notificationView struct {
	ID        int64        `json:"id"`
	Kind      string       `json:"kind"`
	Content   string       `json:"content"`
	Read      bool         `json:"read"`
	Sender    *profileView `json:"sender,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (r *Router) profileView(ctx context.Context, p *models.Profile) *profileView {
	if p == nil {
		return nil
	}
	return &profileView{
		ID:             p.ID,
		Username:       p.Username,
		DisplayName:    p.DisplayName.String,
		Bio:            p.Bio.String,
		AvatarURL:      r.imageURL(ctx, p.AvatarKey),
		FollowersCount: p.FollowersCount,
		FollowingCount: p.FollowingCount,
		CreatedAt:      p.CreatedAt,
	}
}

func (r *Router) profileViews(ctx context.Context, profiles []*models.Profile) []*profileView {
	views := make([]*profileView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, r.profileView(ctx, p))
	}
	return views
}

func (r *Router) photoView(ctx context.Context, p *models.Photo) *photoView {
	if p == nil {
		return nil
	}
	return &photoView{
		ID:            p.ID,
		Owner:         r.profileView(ctx, p.Owner),
		Title:         p.Title,
		Description:   p.Description.String,
		ImageURL:      r.imageURL(ctx, p.ImageKey),
		Rating:        p.Rating,
		VotesCount:    p.VotesCount,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		CreatedAt:     p.CreatedAt,
	}
}

func (r *Router) photoViews(ctx context.Context, photos []*models.Photo) []*photoView {
	views := make([]*photoView, 0, len(photos))
	for _, p := range photos {
		views = append(views, r.photoView(ctx, p))
	}
	return views
}

func (r *Router) commentView(ctx context.Context, c *models.Comment) *commentView {
	if c == nil {
		return nil
	}
	return &commentView{
		ID:        c.ID,
		PhotoID:   c.PhotoID,
		Body:      c.Body,
		Author:    r.profileView(ctx, c.Author),
		CreatedAt: c.CreatedAt,
	}
}

func (r *Router) notificationView(ctx context.Context, n *models.Notification) *notificationView {
	return &notificationView{
		ID:        n.ID,
		Kind:      n.Kind,
		Content:   n.Content,
		Read:      n.Read,
		Sender:    r.profileView(ctx, n.Sender),
		CreatedAt: n.CreatedAt,
	}
}

// imageURL resolves an object key to a presigned URL. Failures degrade
// to an empty URL; a broken image link must not fail the request.
func (r *Router) imageURL(ctx context.Context, key string) string {
	if key == "" || r.images == nil {
		return ""
	}
	u, err := r.images.URL(ctx, key)
	if err != nil {
		r.logger.Warn("Failed to presign image URL", zap.String("key", key), zap.Error(err))
		return ""
	}
	return u
}
