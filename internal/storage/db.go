package storage

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"autoclipper/config"
	"autoclipper/internal/types"
	"autoclipper/log"
)

var DB *gorm.DB

func InitDB() {
	dbPath := filepath.Join(config.Conf.App.DataDir, "autoclipper.db")

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.GetLogger().Fatal("failed to create database directory", zap.String("dir", dir), zap.Error(err))
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		log.GetLogger().Fatal("failed to connect database", zap.Error(err))
	}
	DB = db

	log.GetLogger().Info("database initialized", zap.String("path", dbPath))
}

// OpenDB opens and migrates a database at the given path. Split out from
// InitDB so tests can run against a temporary file.
func OpenDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err = db.AutoMigrate(&types.SourceVideo{}, &types.ClipCandidate{}); err != nil {
		return nil, err
	}
	return db, nil
}
