package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	db "github.com/minhvu/taskhive-BE/internal/db/sqlc"
	"github.com/minhvu/taskhive-BE/internal/dedup"
	"github.com/minhvu/taskhive-BE/internal/hub"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownKind      = errors.New("unknown notification kind")
	ErrPermissionDenied = errors.New("actor is not the recipient of this notification")
)

// Nudger sends an out-of-band "you have a new notification" hint to a
// recipient with no live session. Implementations decide the channel (email).
type Nudger interface {
	SendNudge(ctx context.Context, recipientID string, kind db.NotificationKind) error
}

// Service orchestrates notification creation, fan-out to live sessions, and
// the durable lazy path for offline recipients.
type Service struct {
	store    db.Store
	registry *hub.Registry

	// Optional email nudge for offline recipients, rate-limited through the
	// dedup cache. All three are nil-able as a unit.
	nudger      Nudger
	nudgeCache  dedup.Cache
	nudgeWindow time.Duration
}

func NewService(store db.Store, registry *hub.Registry) *Service {
	return &Service{
		store:    store,
		registry: registry,
	}
}

// WithNudger enables the offline-recipient email nudge.
func (s *Service) WithNudger(nudger Nudger, cache dedup.Cache, window time.Duration) *Service {
	s.nudger = nudger
	s.nudgeCache = cache
	s.nudgeWindow = window
	return s
}

type CreateParams struct {
	RecipientID string
	Kind        db.NotificationKind
	Payload     json.RawMessage
	RelatedType *string
	RelatedID   *string
}

// Create validates and persists a notification with delivered=false. Fan-out
// is a separate step so callers can defer it to the task queue.
func (s *Service) Create(ctx context.Context, arg CreateParams) (db.Notification, error) {
	if arg.RecipientID == "" {
		return db.Notification{}, fmt.Errorf("recipient is required")
	}
	if err := validatePayload(arg.Kind, arg.Payload); err != nil {
		return db.Notification{}, err
	}

	n, err := s.store.CreateNotification(ctx, db.CreateNotificationParams{
		ID:          uuid.New(),
		RecipientID: arg.RecipientID,
		Kind:        arg.Kind,
		Payload:     arg.Payload,
		RelatedType: arg.RelatedType,
		RelatedID:   arg.RelatedID,
	})
	if err != nil {
		return db.Notification{}, fmt.Errorf("failed to persist notification: %w", err)
	}

	return n, nil
}

// FanOut pushes a notification to every live session of its recipient. The
// delivered flag is set only after the store confirms the update following
// at least one successful push; with zero live sessions the record stays
// undelivered and the recipient picks it up on next connect. Transport
// failures are absorbed: the failing session is evicted and the others
// still receive the push.
func (s *Service) FanOut(ctx context.Context, n db.Notification) error {
	sessions := s.registry.SessionsFor(n.RecipientID)
	if len(sessions) == 0 {
		log.Debug().Str("notification_id", n.ID.String()).Str("recipient_id", n.RecipientID).
			Msg("no live session, deferring to lazy delivery")
		s.maybeNudge(ctx, n)
		return nil
	}

	msg := messageFrom(n)
	pushed := 0
	for _, sess := range sessions {
		if err := sess.Send(ctx, msg); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID()).
				Str("notification_id", n.ID.String()).Msg("push failed, evicting session")
			s.registry.Evict(sess.ID())
			continue
		}
		pushed++
	}

	if pushed == 0 {
		// Every session was dead. The record stays undelivered and the
		// lazy path retries on next connect.
		return nil
	}

	if _, err := s.store.UpdateNotificationFlags(ctx, db.UpdateNotificationFlagsParams{
		ID:           n.ID,
		SetDelivered: true,
	}); err != nil {
		// Pushed but not marked: the notification will be pushed again on
		// next connect. At-least-once, deduplicated client-side by id.
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}

	return nil
}

// DeliverPending pushes all undelivered notifications for the session's
// recipient, oldest first, marking each delivered after its push succeeds.
// A transport failure stops the run; the remainder is retried on the next
// connect.
func (s *Service) DeliverPending(ctx context.Context, sess hub.Session) ([]db.Notification, error) {
	pending, err := s.store.ListUndeliveredNotifications(ctx, sess.Recipient())
	if err != nil {
		return nil, fmt.Errorf("failed to list undelivered notifications: %w", err)
	}

	delivered := make([]db.Notification, 0, len(pending))
	for _, n := range pending {
		if err := sess.Send(ctx, messageFrom(n)); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID()).
				Str("notification_id", n.ID.String()).Msg("pending push failed, stopping catch-up")
			return delivered, nil
		}

		updated, err := s.store.UpdateNotificationFlags(ctx, db.UpdateNotificationFlagsParams{
			ID:           n.ID,
			SetDelivered: true,
		})
		if err != nil {
			// Pushed but still flagged undelivered; the next connect
			// will push it again.
			log.Error().Err(err).Str("notification_id", n.ID.String()).
				Msg("failed to mark notification delivered")
			continue
		}
		delivered = append(delivered, updated)
	}

	return delivered, nil
}

// MarkRead sets the read flag on behalf of the recipient. Repeat calls are
// no-ops. Read can precede delivered: a client that observed the push live
// may acknowledge before the delivered update lands.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, actorID string) (db.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return db.Notification{}, err
	}

	if n.RecipientID != actorID {
		return db.Notification{}, ErrPermissionDenied
	}

	if n.Read {
		return n, nil
	}

	return s.store.UpdateNotificationFlags(ctx, db.UpdateNotificationFlagsParams{
		ID:      id,
		SetRead: true,
	})
}

func (s *Service) maybeNudge(ctx context.Context, n db.Notification) {
	if s.nudger == nil {
		return
	}

	// One nudge per recipient per window, whatever the notification volume.
	claimed, err := s.nudgeCache.TryClaim(ctx, "mail:"+n.RecipientID, s.nudgeWindow)
	if err != nil || !claimed {
		return
	}

	if err := s.nudger.SendNudge(ctx, n.RecipientID, n.Kind); err != nil {
		log.Warn().Err(err).Str("recipient_id", n.RecipientID).Msg("failed to send nudge email")
	}
}

func messageFrom(n db.Notification) hub.Message {
	return hub.Message{
		ID:        n.ID.String(),
		Kind:      string(n.Kind),
		Payload:   n.Payload,
		CreatedAt: n.CreatedAt,
	}
}
