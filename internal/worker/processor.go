package worker

import (
	"context"

	"github.com/hibiken/asynq"
	db "github.com/minhvu/taskhive-BE/internal/db/sqlc"
	"github.com/minhvu/taskhive-BE/internal/notification"
	"github.com/minhvu/taskhive-BE/internal/webhook"
	"github.com/rs/zerolog/log"
)

/*
 This file contains code that will pick up the tasks from the Redis queue and process them.
*/

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

type RedisTaskProcessor struct {
	server   *asynq.Server
	store    db.Store
	notifier *notification.Service
	emitter  *webhook.Emitter
}

func NewRedisTaskProcessor(redisOpt asynq.RedisClientOpt, store db.Store, notifier *notification.Service, emitter *webhook.Emitter) *RedisTaskProcessor {
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				QueueCritical: 10,
				QueueDefault:  5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).Str("type", task.Type()).
					Bytes("payload", task.Payload()).Msg("process task failed")
			}),
			Logger: NewLogger(),
		},
	)

	return &RedisTaskProcessor{
		server:   server,
		store:    store,
		notifier: notifier,
		emitter:  emitter,
	}
}

// Start registers the task handlers for the mux, attaches the mux to the asynq server, and starts the server.
func (processor *RedisTaskProcessor) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskDeliverNotification, processor.ProcessTaskDeliverNotification)
	mux.HandleFunc(TaskEmitWebhook, processor.ProcessTaskEmitWebhook)

	return processor.server.Start(mux)
}

// Shutdown stops the asynq server, waiting for in-flight tasks.
func (processor *RedisTaskProcessor) Shutdown() {
	processor.server.Shutdown()
}
