// Package queue provides background pipeline processing using Asynq.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"autoclipper/log"
)

const TypeVideoPipeline = "pipeline:video"

// PipelinePayload identifies the video one pipeline task processes.
type PipelinePayload struct {
	VideoID string `json:"video_id"`
}

// QueueConfig holds Redis configuration for Asynq.
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// Queue manages task enqueueing and processing.
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	config QueueConfig
}

func NewQueue(cfg QueueConfig) *Queue {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				// Exponential backoff: 10s, 20s, 40s, ...
				return time.Duration(10<<uint(n)) * time.Second
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.GetLogger().Error("task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)

	return &Queue{client: client, server: server, config: cfg}
}

// EnqueueVideoPipeline queues one full production run.
func (q *Queue) EnqueueVideoPipeline(payload PipelinePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeVideoPipeline, data,
		asynq.MaxRetry(2),
		asynq.Timeout(2*time.Hour),
		asynq.Queue("default"),
	)

	info, err := q.client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.GetLogger().Info("pipeline task enqueued",
		zap.String("video_id", payload.VideoID),
		zap.String("queue_id", info.ID))
	return nil
}

// Close gracefully shuts down the queue.
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	q.server.Shutdown()
	return nil
}
