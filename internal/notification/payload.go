package notification

import (
	"encoding/json"
	"fmt"

	db "github.com/minhvu/taskhive-BE/internal/db/sqlc"
)

// Each notification kind has its own payload schema, validated at creation.
// The set is closed: an unrecognized kind is a validation error, never a
// pass-through.

type TaskAssignedPayload struct {
	TaskID     int64  `json:"task_id"`
	TaskTitle  string `json:"task_title"`
	AssignedBy string `json:"assigned_by"`
	RoleHint   string `json:"role_hint"`
}

type TaskCompletedPayload struct {
	TaskID      int64  `json:"task_id"`
	TaskTitle   string `json:"task_title"`
	CompletedBy string `json:"completed_by"`
}

type ChannelMessagePayload struct {
	ChannelID string `json:"channel_id"`
	SenderID  string `json:"sender_id"`
	Preview   string `json:"preview"`
}

type MemberJoinedPayload struct {
	ChannelID string `json:"channel_id"`
	MemberID  string `json:"member_id"`
}

type MentionPayload struct {
	ChannelID   string `json:"channel_id"`
	MessageID   string `json:"message_id"`
	MentionedBy string `json:"mentioned_by"`
}

func validatePayload(kind db.NotificationKind, raw json.RawMessage) error {
	switch kind {
	case db.NotificationKindTaskAssigned:
		var p TaskAssignedPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		if p.TaskID == 0 || p.AssignedBy == "" {
			return fmt.Errorf("task_id and assigned_by are required")
		}
	case db.NotificationKindTaskCompleted:
		var p TaskCompletedPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		if p.TaskID == 0 || p.CompletedBy == "" {
			return fmt.Errorf("task_id and completed_by are required")
		}
	case db.NotificationKindChannelMessage:
		var p ChannelMessagePayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		if p.ChannelID == "" || p.SenderID == "" {
			return fmt.Errorf("channel_id and sender_id are required")
		}
	case db.NotificationKindMemberJoined:
		var p MemberJoinedPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		if p.ChannelID == "" || p.MemberID == "" {
			return fmt.Errorf("channel_id and member_id are required")
		}
	case db.NotificationKindMention:
		var p MentionPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		if p.ChannelID == "" || p.MentionedBy == "" {
			return fmt.Errorf("channel_id and mentioned_by are required")
		}
	default:
		return ErrUnknownKind
	}

	return nil
}

func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("payload is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}
