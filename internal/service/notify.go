package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fitsnap/fitsnap/internal/models"
)

// DefaultNotifyLimit bounds notification feed reads when the caller
// does not say how many it wants.
const DefaultNotifyLimit = 50

// Notifier appends to and reads from per-user notification feeds.
// Dispatch is a non-critical side channel: the facade logs a failed
// Notify and moves on, it never fails the triggering action.
type Notifier struct {
	store  Store
	logger *zap.Logger
}

// NewNotifier creates a new notification dispatcher
func NewNotifier(store Store, logger *zap.Logger) *Notifier {
	return &Notifier{store: store, logger: logger}
}

// Notify appends an unread notification for recipientID. Self-notify
// (recipient == sender) is a silent no-op, not an error.
func (n *Notifier) Notify(ctx context.Context, recipientID, senderID int64, kind, content string) error {
	if recipientID == senderID {
		return nil
	}
	if !models.ValidNotifyKind(kind) {
		return ValidationError("unknown notification kind %q", kind)
	}

	notif := &models.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Kind:        kind,
		Content:     content,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}
	if err := n.store.Notifications().Create(ctx, notif); err != nil {
		return StoreError("create notification", err)
	}

	n.logger.Debug("Queued notification",
		zap.String("kind", kind),
		zap.Int64("recipient_id", recipientID),
		zap.Int64("sender_id", senderID))
	return nil
}

// MarkRead marks one of recipientID's notifications read. Idempotent.
func (n *Notifier) MarkRead(ctx context.Context, id, recipientID int64) error {
	if err := n.store.Notifications().MarkRead(ctx, id, recipientID); err != nil {
		return StoreError("mark notification read", err)
	}
	return nil
}

// MarkAllRead marks all of recipientID's notifications read. Idempotent.
func (n *Notifier) MarkAllRead(ctx context.Context, recipientID int64) error {
	if err := n.store.Notifications().MarkAllRead(ctx, recipientID); err != nil {
		return StoreError("mark notifications read", err)
	}
	return nil
}

// ListRecent returns recipientID's notifications newest-first, each
// with its sender snapshot.
func (n *Notifier) ListRecent(ctx context.Context, recipientID int64, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > DefaultNotifyLimit {
		limit = DefaultNotifyLimit
	}
	notifs, err := n.store.Notifications().ListRecent(ctx, recipientID, limit)
	if err != nil {
		return nil, StoreError("list notifications", err)
	}
	return notifs, nil
}

// UnreadCount returns the number of unread notifications for recipientID.
func (n *Notifier) UnreadCount(ctx context.Context, recipientID int64) (int64, error) {
	count, err := n.store.Notifications().CountUnread(ctx, recipientID)
	if err != nil {
		return 0, StoreError("count unread notifications", err)
	}
	return count, nil
}
