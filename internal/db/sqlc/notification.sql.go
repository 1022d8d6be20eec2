package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const createNotification = `-- name: CreateNotification :one
INSERT INTO notifications (id, recipient_id, kind, payload, related_type, related_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, recipient_id, kind, payload, related_type, related_id, delivered, read, created_at
`

type CreateNotificationParams struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID string           `json:"recipient_id"`
	Kind        NotificationKind `json:"kind"`
	Payload     json.RawMessage  `json:"payload"`
	RelatedType *string          `json:"related_type"`
	RelatedID   *string          `json:"related_id"`
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRow(ctx, createNotification,
		arg.ID,
		arg.RecipientID,
		arg.Kind,
		arg.Payload,
		arg.RelatedType,
		arg.RelatedID,
	)
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.RecipientID,
		&i.Kind,
		&i.Payload,
		&i.RelatedType,
		&i.RelatedID,
		&i.Delivered,
		&i.Read,
		&i.CreatedAt,
	)
	return i, err
}

const getNotification = `-- name: GetNotification :one
SELECT id, recipient_id, kind, payload, related_type, related_id, delivered, read, created_at
FROM notifications
WHERE id = $1
`

func (q *Queries) GetNotification(ctx context.Context, id uuid.UUID) (Notification, error) {
	row := q.db.QueryRow(ctx, getNotification, id)
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.RecipientID,
		&i.Kind,
		&i.Payload,
		&i.RelatedType,
		&i.RelatedID,
		&i.Delivered,
		&i.Read,
		&i.CreatedAt,
	)
	return i, err
}

const listUndeliveredNotifications = `-- name: ListUndeliveredNotifications :many
SELECT id, recipient_id, kind, payload, related_type, related_id, delivered, read, created_at
FROM notifications
WHERE recipient_id = $1
  AND delivered = false
ORDER BY created_at ASC
`

func (q *Queries) ListUndeliveredNotifications(ctx context.Context, recipientID string) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listUndeliveredNotifications, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Notification{}
	for rows.Next() {
		var i Notification
		if err := rows.Scan(
			&i.ID,
			&i.RecipientID,
			&i.Kind,
			&i.Payload,
			&i.RelatedType,
			&i.RelatedID,
			&i.Delivered,
			&i.Read,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listNotificationsByRecipient = `-- name: ListNotificationsByRecipient :many
SELECT id, recipient_id, kind, payload, related_type, related_id, delivered, read, created_at
FROM notifications
WHERE recipient_id = $1
  AND (NOT $2::bool OR read = false)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListNotificationsByRecipientParams struct {
	RecipientID string `json:"recipient_id"`
	UnreadOnly  bool   `json:"unread_only"`
	Limit       int32  `json:"limit"`
	Offset      int32  `json:"offset"`
}

func (q *Queries) ListNotificationsByRecipient(ctx context.Context, arg ListNotificationsByRecipientParams) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listNotificationsByRecipient,
		arg.RecipientID,
		arg.UnreadOnly,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Notification{}
	for rows.Next() {
		var i Notification
		if err := rows.Scan(
			&i.ID,
			&i.RecipientID,
			&i.Kind,
			&i.Payload,
			&i.RelatedType,
			&i.RelatedID,
			&i.Delivered,
			&i.Read,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countUnreadNotifications = `-- name: CountUnreadNotifications :one
SELECT count(*)
FROM notifications
WHERE recipient_id = $1
  AND read = false
`

func (q *Queries) CountUnreadNotifications(ctx context.Context, recipientID string) (int64, error) {
	row := q.db.QueryRow(ctx, countUnreadNotifications, recipientID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateNotificationFlags = `-- name: UpdateNotificationFlags :one
UPDATE notifications
SET delivered = delivered OR $2,
    read      = read OR $3
WHERE id = $1
RETURNING id, recipient_id, kind, payload, related_type, related_id, delivered, read, created_at
`

// UpdateNotificationFlags transitions the delivered/read flags. The OR form
// keeps both flags monotone: a flag already set can never be cleared.
type UpdateNotificationFlagsParams struct {
	ID           uuid.UUID `json:"id"`
	SetDelivered bool      `json:"set_delivered"`
	SetRead      bool      `json:"set_read"`
}

func (q *Queries) UpdateNotificationFlags(ctx context.Context, arg UpdateNotificationFlagsParams) (Notification, error) {
	row := q.db.QueryRow(ctx, updateNotificationFlags, arg.ID, arg.SetDelivered, arg.SetRead)
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.RecipientID,
		&i.Kind,
		&i.Payload,
		&i.RelatedType,
		&i.RelatedID,
		&i.Delivered,
		&i.Read,
		&i.CreatedAt,
	)
	return i, err
}
