package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	db "github.com/minhvu/taskhive-BE/internal/db/sqlc"
	"github.com/rs/zerolog/log"
)

// PayloadDeliverNotification contain all data of the task that we want to store in Redis.
type PayloadDeliverNotification struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

func (distributor *RedisTaskDistributor) DistributeTaskDeliverNotification(
	ctx context.Context,
	payload *PayloadDeliverNotification,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TaskDeliverNotification, jsonPayload, opts...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().Str("type", task.Type()).Bytes("payload", task.Payload()).Str("queue", info.Queue).Int("max_retry", info.MaxRetry).Msg("task enqueued")

	return nil
}

// ProcessTaskDeliverNotification loads the notification and fans it out to
// the recipient's live sessions. A vanished notification is not retried;
// a failed delivered-flag update is, which at worst pushes the same
// notification id twice.
func (processor *RedisTaskProcessor) ProcessTaskDeliverNotification(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadDeliverNotification
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	n, err := processor.store.GetNotification(ctx, payload.NotificationID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			return fmt.Errorf("notification %s not found: %w", payload.NotificationID, asynq.SkipRetry)
		}
		return err
	}

	if err := processor.notifier.FanOut(ctx, n); err != nil {
		return err
	}

	log.Info().Str("type", task.Type()).Str("notification_id", payload.NotificationID.String()).Msg("task processed")

	return nil
}
