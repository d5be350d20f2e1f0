package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"autoclipper/config"
	"autoclipper/internal/dto"
	"autoclipper/internal/notify"
	"autoclipper/internal/pipeline"
	"autoclipper/internal/storage"
	"autoclipper/internal/types"
	"autoclipper/log"
	"autoclipper/pkg/errors"
	"autoclipper/pkg/ffmpeg"
	"autoclipper/pkg/openai"
	"autoclipper/pkg/whisper"
	"autoclipper/pkg/ytdlp"
)

// Service wires the collaborator clients and drives pipeline runs.
type Service struct {
	Collab   pipeline.Collaborators
	Store    *storage.Store
	Notifier *notify.Notifier

	progress *progressHub
}

func NewService() *Service {
	cfg := config.Conf

	ytdlpClient := ytdlp.NewClient(cfg.App.YtdlpPath, cfg.App.FfmpegPath, cfg.App.Proxy, cfg.App.CookiesFile)
	media := ffmpeg.NewExecutor(cfg.App.FfmpegPath, cfg.App.FfprobePath,
		cfg.Render.Width, cfg.Render.Height, cfg.Render.Crf, cfg.Render.Preset, cfg.Render.SubtitleStyle)

	return &Service{
		Collab: pipeline.Collaborators{
			Prober:      ytdlpClient,
			Downloader:  ytdlpClient,
			Transcriber: whisper.NewTranscriber(cfg.Transcribe.BaseUrl, cfg.Transcribe.ApiKey, cfg.Transcribe.Pass1Model, cfg.Transcribe.Pass2Model, cfg.App.ParsedProxy),
			Chat:        openai.NewClient(cfg.Llm.BaseUrl, cfg.Llm.ApiKey, cfg.Llm.Model, cfg.App.ParsedProxy),
			Media:       media,
		},
		Store:    storage.DefaultStore(),
		Notifier: notify.NewNotifier(cfg.Notify.WebhookUrl),
		progress: newProgressHub(),
	}
}

// SubmitVideo registers a new source video and returns its id. The pipeline
// run itself is queued by the caller.
func (s *Service) SubmitVideo(req dto.SubmitVideoReq) (*dto.SubmitVideoResp, error) {
	video := &types.SourceVideo{
		VideoId:       uuid.NewString(),
		SourceRef:     req.Url,
		Status:        types.VideoStatusNew,
		ClipsPerVideo: req.ClipsPerVideo,
		MinClipSec:    req.MinClipSec,
		MaxClipSec:    req.MaxClipSec,
		TargetClipSec: req.TargetClipSec,
	}
	if err := s.Store.SaveVideo(video); err != nil {
		return nil, errors.Wrap(errors.CodeDBError, "failed to save video", err)
	}

	log.GetLogger().Info("video submitted",
		zap.String("videoId", video.VideoId),
		zap.String("sourceRef", req.Url))
	return &dto.SubmitVideoResp{VideoId: video.VideoId}, nil
}

// RunPipeline executes one full production run for a video. Called from the
// queue worker; a returned error triggers the queue's retry policy only for
// transient failures.
func (s *Service) RunPipeline(ctx context.Context, videoId string) error {
	video, err := s.Store.GetVideo(videoId)
	if err != nil {
		return errors.Wrap(errors.CodeNotFound, "video not found", err)
	}

	generation, err := s.Store.BumpGeneration(videoId)
	if err != nil {
		return errors.Wrap(errors.CodeDBError, "failed to bump generation", err)
	}
	video.Generation = generation

	opts := s.pipelineOptions()
	p := pipeline.New(video, generation, s.Collab, opts, s.Store, func(status types.VideoStatus) {
		s.progress.publish(videoId, status)
	})

	runErr := p.Run(ctx)
	s.notifyTerminal(video, generation, runErr)
	return runErr
}

func (s *Service) pipelineOptions() pipeline.Options {
	cfg := config.Conf
	return pipeline.Options{
		MinClipSec:          cfg.Pipeline.MinClipSec,
		MaxClipSec:          cfg.Pipeline.MaxClipSec,
		TargetClipSec:       cfg.Pipeline.TargetClipSec,
		ClipsPerVideo:       cfg.Pipeline.ClipsPerVideo,
		SimilarityThreshold: cfg.Pipeline.SimilarityThreshold,
		SilenceNoiseDb:      cfg.Pipeline.SilenceNoiseDb,
		MinSilenceSec:       cfg.Pipeline.MinSilenceSec,
		Concurrency:         cfg.Pipeline.Concurrency,
		RetryAttempts:       cfg.Pipeline.RetryAttempts,
		CallTimeout:         time.Duration(cfg.Pipeline.CallTimeoutSec) * time.Second,
		MinTranscriptChars:  cfg.Pipeline.MinTranscriptChars,
		FillerWords:         cfg.Pipeline.FillerWords,
		WorkDir:             cfg.App.DataDir + "/work",
		OutputDir:           cfg.App.DataDir + "/output",
	}
}

func (s *Service) notifyTerminal(video *types.SourceVideo, generation int, runErr error) {
	status := string(types.VideoStatusReady)
	errMsg := ""
	if runErr != nil {
		status = string(types.VideoStatusError)
		errMsg = runErr.Error()
	}

	clipsReady := 0
	if clips, err := s.Store.GetClips(video.VideoId, generation); err == nil {
		clipsReady = len(lo.Filter(clips, func(c types.ClipCandidate, _ int) bool {
			return c.Stage == types.ClipStageReady
		}))
	}
	s.Notifier.NotifyRunFinished(video.VideoId, status, generation, clipsReady, errMsg)
}

// GetVideo returns one video's run state.
func (s *Service) GetVideo(videoId string) (*dto.VideoResp, error) {
	video, err := s.Store.GetVideo(videoId)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, "video not found", err)
	}
	resp := videoToResp(video)
	return &resp, nil
}

// ListVideos returns recent videos, newest first.
func (s *Service) ListVideos(limit int) ([]dto.VideoResp, error) {
	if limit <= 0 {
		limit = 50
	}
	videos, err := s.Store.ListVideos(limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDBError, "failed to list videos", err)
	}
	return lo.Map(videos, func(v types.SourceVideo, _ int) dto.VideoResp {
		return videoToResp(&v)
	}), nil
}

// ListClips returns the latest generation's candidates for a video.
func (s *Service) ListClips(videoId string) ([]dto.ClipResp, error) {
	if _, err := s.Store.GetVideo(videoId); err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, "video not found", err)
	}
	generation, err := s.Store.LatestGeneration(videoId)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDBError, "failed to resolve generation", err)
	}
	clips, err := s.Store.GetClips(videoId, generation)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDBError, "failed to list clips", err)
	}
	return lo.Map(clips, func(c types.ClipCandidate, _ int) dto.ClipResp {
		return clipToResp(&c)
	}), nil
}

// RetryVideo resets a failed video so it can be queued again. The next run
// gets a fresh generation.
func (s *Service) RetryVideo(videoId string) error {
	video, err := s.Store.GetVideo(videoId)
	if err != nil {
		return errors.Wrap(errors.CodeNotFound, "video not found", err)
	}
	if video.Status != types.VideoStatusError {
		return errors.New(errors.CodeInvalidParams, "only failed videos can be retried")
	}
	return s.Store.UpdateVideoStatus(videoId, types.VideoStatusNew, "")
}

// SubscribeProgress returns a channel of status transitions for a video,
// plus an unsubscribe func.
func (s *Service) SubscribeProgress(videoId string) (<-chan types.VideoStatus, func()) {
	return s.progress.subscribe(videoId)
}

func videoToResp(v *types.SourceVideo) dto.VideoResp {
	return dto.VideoResp{
		VideoId:      v.VideoId,
		SourceRef:    v.SourceRef,
		Title:        v.Title,
		Uploader:     v.Uploader,
		DurationSec:  v.DurationSec,
		Strategy:     string(v.Strategy),
		Status:       string(v.Status),
		ErrorMessage: v.ErrorMessage,
		Generation:   v.Generation,
		CreatedAt:    v.CreatedAt.Format(time.RFC3339),
	}
}

func clipToResp(c *types.ClipCandidate) dto.ClipResp {
	return dto.ClipResp{
		ClipId:              c.ClipId,
		StartSec:            c.StartSec,
		EndSec:              c.EndSec,
		Stage:               string(c.Stage),
		ViralScore:          c.ViralScore,
		FinalScore:          c.FinalScore,
		ScoreRationale:      c.ScoreRationale,
		HookText:            c.HookText,
		Caption:             c.Caption,
		KeySentence:         c.KeySentence,
		Hashtags:            c.Hashtags(),
		Keywords:            c.Keywords(),
		RiskFlags:           c.RiskFlags(),
		PackagingConfidence: c.PackagingConfidence,
		OpeningValidated:    c.OpeningValidated,
		QcPassed:            c.QcPassed,
		RecutApplied:        c.RecutApplied,
		RenderStatus:        string(c.RenderStatus),
		RenderError:         c.RenderError,
		FileRef:             c.FileRef,
		ThumbRef:            c.ThumbRef,
		SubtitleRef:         c.SubtitleRef,
	}
}

// progressHub fans status transitions out to websocket subscribers.
type progressHub struct {
	mu   sync.Mutex
	subs map[string][]chan types.VideoStatus
}

func newProgressHub() *progressHub {
	return &progressHub{subs: make(map[string][]chan types.VideoStatus)}
}

func (h *progressHub) subscribe(videoId string) (<-chan types.VideoStatus, func()) {
	ch := make(chan types.VideoStatus, 16)
	h.mu.Lock()
	h.subs[videoId] = append(h.subs[videoId], ch)
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subs[videoId]
		for i, c := range subs {
			if c == ch {
				h.subs[videoId] = append(subs[:i], subs[i+1:]...)
				close(c)
				break
			}
		}
	}
	return ch, unsubscribe
}

func (h *progressHub) publish(videoId string, status types.VideoStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[videoId] {
		select {
		case ch <- status:
		default:
			// Slow subscriber, drop rather than block the pipeline.
		}
	}
}
