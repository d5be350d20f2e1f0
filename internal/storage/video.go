package storage

import (
	"errors"

	"gorm.io/gorm"

	"autoclipper/internal/types"
)

// Store wraps the database for pipeline persistence. All pipeline and
// service code goes through a Store so tests can use a temporary database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DefaultStore returns a store over the global database. InitDB must have
// been called first.
func DefaultStore() *Store {
	return &Store{db: DB}
}

// SaveVideo upserts by VideoId.
func (s *Store) SaveVideo(video *types.SourceVideo) error {
	var existing types.SourceVideo
	result := s.db.Where("video_id = ?", video.VideoId).First(&existing)
	if result.Error == nil {
		video.ID = existing.ID
		video.CreatedAt = existing.CreatedAt
		return s.db.Save(video).Error
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return s.db.Create(video).Error
	}
	return result.Error
}

func (s *Store) GetVideo(videoId string) (*types.SourceVideo, error) {
	var video types.SourceVideo
	if err := s.db.Where("video_id = ?", videoId).First(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

func (s *Store) ListVideos(limit int) ([]types.SourceVideo, error) {
	var videos []types.SourceVideo
	if err := s.db.Order("created_at desc").Limit(limit).Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (s *Store) UpdateVideoStatus(videoId string, status types.VideoStatus, errorMessage string) error {
	return s.db.Model(&types.SourceVideo{}).
		Where("video_id = ?", videoId).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
		}).Error
}

// BumpGeneration increments the run counter and returns the new value.
// Each retry gets a fresh generation so stale candidate rows never mix
// with the new run's.
func (s *Store) BumpGeneration(videoId string) (int, error) {
	var generation int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var video types.SourceVideo
		if err := tx.Where("video_id = ?", videoId).First(&video).Error; err != nil {
			return err
		}
		generation = video.Generation + 1
		return tx.Model(&video).Update("generation", generation).Error
	})
	return generation, err
}

// MarkStaleVideos fails any run left mid-pipeline by a previous process.
// Called once on startup.
func (s *Store) MarkStaleVideos() (int64, error) {
	result := s.db.Model(&types.SourceVideo{}).
		Where("status NOT IN ?", []types.VideoStatus{
			types.VideoStatusNew, types.VideoStatusReady, types.VideoStatusError,
		}).
		Updates(map[string]interface{}{
			"status":        types.VideoStatusError,
			"error_message": "run interrupted by server restart",
		})
	return result.RowsAffected, result.Error
}

// ReplaceClips atomically swaps the stored candidates for one video run.
// Persisted at stage boundaries so a crash never leaves half a stage.
func (s *Store) ReplaceClips(videoId string, generation int, clips []types.ClipCandidate) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ? AND generation = ?", videoId, generation).
			Delete(&types.ClipCandidate{}).Error; err != nil {
			return err
		}
		if len(clips) == 0 {
			return nil
		}
		for i := range clips {
			clips[i].ID = 0
		}
		return tx.Create(&clips).Error
	})
}

// GetClips returns the candidates of one generation in chronological order.
func (s *Store) GetClips(videoId string, generation int) ([]types.ClipCandidate, error) {
	var clips []types.ClipCandidate
	err := s.db.Where("video_id = ? AND generation = ?", videoId, generation).
		Order("raw_index asc").
		Find(&clips).Error
	if err != nil {
		return nil, err
	}
	return clips, nil
}

// LatestGeneration returns the highest generation with stored candidates,
// or zero when none exist.
func (s *Store) LatestGeneration(videoId string) (int, error) {
	var generation int
	err := s.db.Model(&types.ClipCandidate{}).
		Where("video_id = ?", videoId).
		Select("COALESCE(MAX(generation), 0)").
		Scan(&generation).Error
	return generation, err
}
