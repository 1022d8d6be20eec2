package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/minhvu/taskhive-BE/internal/webhook"
	"github.com/rs/zerolog/log"
)

type PayloadEmitWebhook struct {
	Event webhook.Event `json:"event"`
}

func (distributor *RedisTaskDistributor) DistributeTaskEmitWebhook(
	ctx context.Context,
	payload *PayloadEmitWebhook,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TaskEmitWebhook, jsonPayload, opts...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().Str("type", task.Type()).Bytes("payload", task.Payload()).Str("queue", info.Queue).Int("max_retry", info.MaxRetry).Msg("task enqueued")

	return nil
}

// ProcessTaskEmitWebhook hands the event to the emitter. The emitter absorbs
// transport failures, so a returned error here means the dedup verdict itself
// was unavailable and asynq should retry.
func (processor *RedisTaskProcessor) ProcessTaskEmitWebhook(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadEmitWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	if err := processor.emitter.Emit(ctx, payload.Event); err != nil {
		return err
	}

	log.Info().Str("type", task.Type()).Str("event_id", payload.Event.EventID.String()).
		Str("kind", payload.Event.Kind).Msg("task processed")

	return nil
}
