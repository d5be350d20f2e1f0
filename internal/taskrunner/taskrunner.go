// Package taskrunner provides an in-memory pipeline runner used when no
// Redis instance is configured. Tasks are lost on process restart; stale
// runs are marked failed at startup instead.
package taskrunner

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"autoclipper/internal/service"
	"autoclipper/log"
)

var (
	ErrRunnerStopped = errors.New("task runner is stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Runner processes pipeline runs on a fixed pool of worker goroutines.
type Runner struct {
	svc     *service.Service
	tasks   chan string
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

func NewRunner(svc *service.Service, workers, queueSize int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 32
	}
	r := &Runner{
		svc:   svc,
		tasks: make(chan string, queueSize),
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	log.GetLogger().Info("in-memory task runner started",
		zap.Int("workers", workers), zap.Int("queueSize", queueSize))
	return r
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for videoId := range r.tasks {
		if err := r.svc.RunPipeline(context.Background(), videoId); err != nil {
			log.GetLogger().Error("pipeline run failed",
				zap.String("videoId", videoId), zap.Error(err))
		}
	}
}

// Submit queues one pipeline run. Returns ErrQueueFull when the buffer is
// saturated rather than blocking the HTTP handler.
func (r *Runner) Submit(videoId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrRunnerStopped
	}
	select {
	case r.tasks <- videoId:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending reports the number of queued, not yet started runs.
func (r *Runner) Pending() int {
	return len(r.tasks)
}

// Close stops accepting new tasks and waits for in-flight runs to finish.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.tasks)
	r.mu.Unlock()
	r.wg.Wait()
}
