package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

const (
	TaskDeliverNotification = "notification:deliver"
	TaskEmitWebhook         = "webhook:emit"
)

/*
This file will contain the codes to create tasks and distributes them to the Redis queue.
*/

type TaskDistributor interface {
	DistributeTaskDeliverNotification(ctx context.Context, payload *PayloadDeliverNotification, opts ...asynq.Option) error
	DistributeTaskEmitWebhook(ctx context.Context, payload *PayloadEmitWebhook, opts ...asynq.Option) error
}

type RedisTaskDistributor struct {
	client *asynq.Client // client sends tasks to redis queue.
}

func NewTaskDistributor(redisOpt asynq.RedisClientOpt) TaskDistributor {
	client := asynq.NewClient(redisOpt)

	return &RedisTaskDistributor{
		client: client,
	}
}
