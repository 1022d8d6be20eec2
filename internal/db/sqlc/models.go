package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationKindTaskAssigned   NotificationKind = "task_assigned"
	NotificationKindTaskCompleted  NotificationKind = "task_completed"
	NotificationKindChannelMessage NotificationKind = "channel_message"
	NotificationKindMemberJoined   NotificationKind = "member_joined"
	NotificationKindMention        NotificationKind = "mention"
)

func (e *NotificationKind) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = NotificationKind(s)
	case string:
		*e = NotificationKind(s)
	default:
		return fmt.Errorf("unsupported scan type for NotificationKind: %T", src)
	}
	return nil
}

type AssignmentStatus string

const (
	AssignmentStatusPending   AssignmentStatus = "pending"
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusCompleted AssignmentStatus = "completed"
	AssignmentStatusOrphaned  AssignmentStatus = "orphaned"
)

func (e *AssignmentStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = AssignmentStatus(s)
	case string:
		*e = AssignmentStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for AssignmentStatus: %T", src)
	}
	return nil
}

type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID string           `json:"recipient_id"`
	Kind        NotificationKind `json:"kind"`
	Payload     json.RawMessage  `json:"payload"`
	RelatedType *string          `json:"related_type"`
	RelatedID   *string          `json:"related_id"`
	Delivered   bool             `json:"delivered"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}

type TaskAssignment struct {
	ID        int64            `json:"id"`
	TaskID    int64            `json:"task_id"`
	UserID    string           `json:"user_id"`
	RoleHint  string           `json:"role_hint"`
	Status    AssignmentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
