package db

import (
	"context"

	"github.com/google/uuid"
)

type Querier interface {
	CountUnreadNotifications(ctx context.Context, recipientID string) (int64, error)
	CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error)
	CreateTaskAssignment(ctx context.Context, arg CreateTaskAssignmentParams) (TaskAssignment, error)
	GetNotification(ctx context.Context, id uuid.UUID) (Notification, error)
	GetTaskAssignment(ctx context.Context, id int64) (TaskAssignment, error)
	ListNotificationsByRecipient(ctx context.Context, arg ListNotificationsByRecipientParams) ([]Notification, error)
	ListTaskAssignmentsForUpdate(ctx context.Context, taskID int64) ([]TaskAssignment, error)
	ListTasksForReconciliation(ctx context.Context) ([]int64, error)
	ListUndeliveredNotifications(ctx context.Context, recipientID string) ([]Notification, error)
	UpdateNotificationFlags(ctx context.Context, arg UpdateNotificationFlagsParams) (Notification, error)
	UpdateTaskAssignmentStatus(ctx context.Context, arg UpdateTaskAssignmentStatusParams) (TaskAssignment, error)
}

var _ Querier = (*Queries)(nil)
