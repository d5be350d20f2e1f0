package main

import (
	"os"

	"go.uber.org/zap"

	"autoclipper/config"
	"autoclipper/internal/deps"
	"autoclipper/internal/server"
	"autoclipper/internal/storage"
	"autoclipper/log"
)

func main() {
	log.InitLogger()
	defer log.GetLogger().Sync()

	if !config.LoadConfig() {
		return
	}

	if err := config.CheckConfig(); err != nil {
		log.GetLogger().Error("invalid configuration", zap.Error(err))
		return
	}

	storage.InitDB()

	// Runs interrupted by a previous shutdown are unrecoverable, fail them
	// so they can be retried explicitly.
	if count, err := storage.DefaultStore().MarkStaleVideos(); err != nil {
		log.GetLogger().Warn("failed to mark stale runs", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("marked stale runs as failed", zap.Int64("count", count))
	}

	deps.CheckDependency()

	if err := server.StartBackend(); err != nil {
		log.GetLogger().Error("backend exited", zap.Error(err))
		os.Exit(1)
	}
}
