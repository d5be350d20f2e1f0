package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"autoclipper/internal/storage"
	"autoclipper/internal/types"
	"autoclipper/log"
	"autoclipper/pkg/errors"
)

// Collaborators are the external systems one run talks to. Everything is an
// interface so tests run against mocks.
type Collaborators struct {
	Prober      types.Prober
	Downloader  types.MediaDownloader
	Transcriber types.Transcriber
	Chat        types.ChatCompleter
	Media       types.MediaToolkit
}

// Options is the per-run config snapshot. Taken once at construction so a
// config reload mid-run cannot change behavior between stages.
type Options struct {
	MinClipSec          float64
	MaxClipSec          float64
	TargetClipSec       float64
	ClipsPerVideo       int
	SimilarityThreshold float64
	SilenceNoiseDb      float64
	MinSilenceSec       float64
	Concurrency         int
	RetryAttempts       int
	CallTimeout         time.Duration
	MinTranscriptChars  int
	FillerWords         []string
	WorkDir             string
	OutputDir           string
}

// Pipeline is one production run over one source video.
type Pipeline struct {
	video      *types.SourceVideo
	generation int
	collab     Collaborators
	opts       Options
	store      *storage.Store

	audioPath string
	videoPath string
	clips     []types.ClipCandidate
	reports   []Report

	// onStatus fires on every video status transition, used by the
	// progress websocket. May be nil.
	onStatus func(types.VideoStatus)
}

func New(video *types.SourceVideo, generation int, collab Collaborators, opts Options, store *storage.Store, onStatus func(types.VideoStatus)) *Pipeline {
	return &Pipeline{
		video:      video,
		generation: generation,
		collab:     collab,
		opts:       opts,
		store:      store,
		onStatus:   onStatus,
	}
}

// Reports returns the per-stage batch reports collected so far.
func (p *Pipeline) Reports() []Report {
	return p.reports
}

type stage struct {
	status types.VideoStatus
	run    func(ctx context.Context) (*Report, error)
}

// Run executes the full stage sequence. A returned error is fatal for the
// run and has already been recorded on the video row. Per-candidate failures
// never surface here, they live on the candidate rows and in the reports.
func (p *Pipeline) Run(ctx context.Context) error {
	stages := []stage{
		{types.VideoStatusProbing, p.runProbe},
		{types.VideoStatusGeneratingCandidates, p.runCandidates},
		{types.VideoStatusTranscribingPass1, p.runTranscribePass1},
		{types.VideoStatusScoring, p.runScoring},
		{types.VideoStatusTranscribingPass2, p.runTranscribePass2},
		{types.VideoStatusRefining, p.runRefine},
		{types.VideoStatusQualityControl, p.runQC},
		{types.VideoStatusPackaging, p.runPackaging},
		{types.VideoStatusRendering, p.runRender},
	}

	workDir := p.runWorkDir()
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return p.fail(fmt.Errorf("create work dir: %w", err))
	}
	defer os.RemoveAll(workDir)

	for _, st := range stages {
		// Cancellation is honored between stages only; in-flight calls
		// inside a stage finish naturally.
		if err := ctx.Err(); err != nil {
			return p.fail(err)
		}

		p.setStatus(st.status)
		started := time.Now()
		report, err := st.run(ctx)
		if err != nil {
			return p.fail(err)
		}
		if report != nil {
			p.reports = append(p.reports, *report)
			log.GetLogger().Info("stage finished",
				zap.String("videoId", p.video.VideoId),
				zap.String("stage", report.Stage),
				zap.Int("ok", report.OK),
				zap.Int("skipped", report.Skipped),
				zap.Int("failed", report.Failed),
				zap.Duration("elapsed", time.Since(started)))
		}
		if err := p.persistClips(); err != nil {
			return p.fail(err)
		}
	}

	p.setStatus(types.VideoStatusReady)
	return nil
}

func (p *Pipeline) setStatus(status types.VideoStatus) {
	p.video.Status = status
	if err := p.store.UpdateVideoStatus(p.video.VideoId, status, ""); err != nil {
		log.GetLogger().Error("failed to persist video status",
			zap.String("videoId", p.video.VideoId),
			zap.String("status", string(status)),
			zap.Error(err))
	}
	if p.onStatus != nil {
		p.onStatus(status)
	}
}

func (p *Pipeline) fail(cause error) error {
	log.GetLogger().Error("pipeline run failed",
		zap.String("videoId", p.video.VideoId),
		zap.Int("generation", p.generation),
		zap.Int("code", errors.GetCode(cause)),
		zap.Error(cause))
	p.video.Status = types.VideoStatusError
	p.video.ErrorMessage = cause.Error()
	if err := p.store.UpdateVideoStatus(p.video.VideoId, types.VideoStatusError, cause.Error()); err != nil {
		log.GetLogger().Error("failed to persist error status", zap.Error(err))
	}
	if p.onStatus != nil {
		p.onStatus(types.VideoStatusError)
	}
	return cause
}

// persistClips atomically replaces this generation's candidate rows. Called
// at every stage boundary so a crash resumes from a consistent snapshot.
func (p *Pipeline) persistClips() error {
	if len(p.clips) == 0 {
		return nil
	}
	if err := p.store.ReplaceClips(p.video.VideoId, p.generation, p.clips); err != nil {
		return errors.Wrap(errors.CodeDBError, "failed to persist candidates", err)
	}
	return nil
}

func (p *Pipeline) runWorkDir() string {
	return filepath.Join(p.opts.WorkDir, fmt.Sprintf("%s_g%d", p.video.VideoId, p.generation))
}

func (p *Pipeline) outputDir() string {
	return filepath.Join(p.opts.OutputDir, p.video.VideoId)
}

// callCtx bounds one collaborator call.
func (p *Pipeline) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.CallTimeout)
}

// effective per-video bounds, falling back to run options.
func (p *Pipeline) minClipSec() float64 {
	if p.video.MinClipSec > 0 {
		return p.video.MinClipSec
	}
	return p.opts.MinClipSec
}

func (p *Pipeline) maxClipSec() float64 {
	if p.video.MaxClipSec > 0 {
		return p.video.MaxClipSec
	}
	return p.opts.MaxClipSec
}

func (p *Pipeline) targetClipSec() float64 {
	if p.video.TargetClipSec > 0 {
		return p.video.TargetClipSec
	}
	return p.opts.TargetClipSec
}

func (p *Pipeline) clipsPerVideo() int {
	if p.video.ClipsPerVideo > 0 {
		return p.video.ClipsPerVideo
	}
	return p.opts.ClipsPerVideo
}
