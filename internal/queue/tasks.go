package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"autoclipper/internal/service"
	"autoclipper/log"
)

// TaskHandlers provides handlers for the queue's task types.
type TaskHandlers struct {
	service *service.Service
}

func NewTaskHandlers(svc *service.Service) *TaskHandlers {
	return &TaskHandlers{service: svc}
}

// HandleVideoPipeline runs one full production run in the worker goroutine.
func (h *TaskHandlers) HandleVideoPipeline(ctx context.Context, t *asynq.Task) error {
	var payload PipelinePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	log.GetLogger().Info("processing pipeline task",
		zap.String("video_id", payload.VideoID))

	if err := h.service.RunPipeline(ctx, payload.VideoID); err != nil {
		return err
	}

	log.GetLogger().Info("pipeline task completed",
		zap.String("video_id", payload.VideoID))
	return nil
}

// RegisterHandlers registers all task handlers with the Asynq server mux.
func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeVideoPipeline, h.HandleVideoPipeline)
}

// StartWorker starts the Asynq worker with registered handlers.
func StartWorker(q *Queue, svc *service.Service) error {
	handlers := NewTaskHandlers(svc)

	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	log.GetLogger().Info("starting queue worker",
		zap.String("redis_addr", q.config.RedisAddr),
		zap.Int("concurrency", q.config.Concurrency))
	return q.server.Run(mux)
}
