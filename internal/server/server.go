// Package server assembles the HTTP API and the background worker.
package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"autoclipper/config"
	"autoclipper/internal/handler"
	"autoclipper/internal/queue"
	"autoclipper/internal/router"
	"autoclipper/internal/service"
	"autoclipper/internal/taskrunner"
	"autoclipper/log"
)

// StartBackend wires the service, picks the dispatch backend and serves
// the API. Blocks until the HTTP server exits.
func StartBackend() error {
	svc := service.NewService()

	dispatch, cleanup, err := buildDispatcher(svc)
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.Default()
	router.SetupRouter(engine, handler.NewHandler(svc, dispatch))

	addr := fmt.Sprintf("%s:%d", config.Conf.Server.Host, config.Conf.Server.Port)
	log.GetLogger().Info("starting http server", zap.String("addr", addr))
	return engine.Run(addr)
}

// buildDispatcher returns the Asynq-backed dispatcher when Redis is
// configured, otherwise the in-memory runner. With Asynq the worker runs
// in-process alongside the API.
func buildDispatcher(svc *service.Service) (handler.DispatchFunc, func(), error) {
	cfg := config.Conf

	if cfg.Redis.Addr == "" {
		runner := taskrunner.NewRunner(svc, cfg.Pipeline.Concurrency, 64)
		return func(videoId string) error {
			return runner.Submit(videoId)
		}, runner.Close, nil
	}

	q := queue.NewQueue(queue.QueueConfig{
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   cfg.Pipeline.Concurrency,
	})

	go func() {
		if err := queue.StartWorker(q, svc); err != nil {
			log.GetLogger().Error("queue worker exited", zap.Error(err))
		}
	}()

	dispatch := func(videoId string) error {
		return q.EnqueueVideoPipeline(queue.PipelinePayload{VideoID: videoId})
	}
	cleanup := func() {
		if err := q.Close(); err != nil {
			log.GetLogger().Warn("queue close failed", zap.Error(err))
		}
	}
	return dispatch, cleanup, nil
}
