package pipeline

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"autoclipper/internal/types"
	"autoclipper/log"
	"autoclipper/pkg/errors"
	"autoclipper/pkg/util"
)

// pass2PadSec is how much audio beyond each clip boundary the accurate pass
// hears. A word cut by the boundary then shows up with clip-local timing
// outside [0, duration], which is exactly what quality control looks for.
const pass2PadSec = 3.0

// ensureAudio downloads the source audio once per run. Download failure is
// fatal for the run.
func (p *Pipeline) ensureAudio(ctx context.Context) (string, error) {
	if p.audioPath != "" {
		return p.audioPath, nil
	}
	path, err := p.collab.Downloader.DownloadAudio(ctx, p.video.SourceRef, p.runWorkDir())
	if err != nil {
		return "", err
	}
	p.audioPath = path
	return path, nil
}

// runTranscribePass1 transcribes every candidate at fast fidelity. The text
// is a scoring signal only. Empty transcripts mark the candidate ineligible
// and the batch continues.
func (p *Pipeline) runTranscribePass1(ctx context.Context) (*Report, error) {
	audioPath, err := p.ensureAudio(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Stage: "transcribe_pass1"}
	var mu sync.Mutex

	g, gctx := errgroupWithLimit(ctx, p.concurrency())
	for i := range p.clips {
		clip := &p.clips[i]
		g.Go(func() error {
			result, err := p.transcribeSlice(gctx, audioPath, clip.StartSec, clip.EndSec, 0, types.FidelityFast)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				clip.Stage = types.ClipStageRejectedNoTranscript
				report.add(clip.ClipId, OutcomeFail, err.Error())
				return nil
			}
			clip.TranscriptPass1 = result.Text
			if result.Text == "" {
				clip.Stage = types.ClipStageRejectedNoTranscript
				report.add(clip.ClipId, OutcomeSkip, "no speech detected")
				return nil
			}
			report.add(clip.ClipId, OutcomeOK, "")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// runTranscribePass2 re-transcribes shortlisted candidates at accurate
// fidelity with word timestamps, over padded audio slices.
func (p *Pipeline) runTranscribePass2(ctx context.Context) (*Report, error) {
	audioPath, err := p.ensureAudio(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Stage: "transcribe_pass2"}
	var mu sync.Mutex

	g, gctx := errgroupWithLimit(ctx, p.concurrency())
	for i := range p.clips {
		clip := &p.clips[i]
		if clip.Stage != types.ClipStageShortlisted {
			report.add(clip.ClipId, OutcomeSkip, "not shortlisted")
			continue
		}
		g.Go(func() error {
			result, err := p.transcribeSlice(gctx, audioPath, clip.StartSec, clip.EndSec, pass2PadSec, types.FidelityAccurate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				clip.Stage = types.ClipStageError
				clip.RenderError = err.Error()
				report.add(clip.ClipId, OutcomeFail, err.Error())
				return nil
			}
			if result.Text == "" {
				clip.Stage = types.ClipStageRejectedNoTranscript
				report.add(clip.ClipId, OutcomeSkip, "no speech detected at accurate fidelity")
				return nil
			}
			clip.TranscriptPass2 = result.Text
			clip.SetWords(result.Words)
			report.add(clip.ClipId, OutcomeOK, "")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// transcribeSlice cuts one candidate's audio region and transcribes it. With
// padSec > 0 the slice extends beyond the bounds and word times come back
// relative to the unpadded start, so boundary-straddling words land outside
// [0, end-start].
func (p *Pipeline) transcribeSlice(ctx context.Context, audioPath string, startSec, endSec, padSec float64, fidelity types.TranscribeFidelity) (*types.TranscriptResult, error) {
	sliceStart := math.Max(0, startSec-padSec)
	sliceDur := endSec + padSec - sliceStart
	slicePath := filepath.Join(p.runWorkDir(), fmt.Sprintf("slice_%s_%.3f_%.3f.wav", fidelity, sliceStart, sliceDur))

	cutCtx, cancel := p.callCtx(ctx)
	err := p.collab.Media.CutAudio(cutCtx, audioPath, slicePath, sliceStart, sliceDur)
	cancel()
	if err != nil {
		return nil, err
	}

	var result *types.TranscriptResult
	err = util.Retry(ctx, p.opts.RetryAttempts, time.Second, errors.Transient, func() error {
		callCtx, cancel := p.callCtx(ctx)
		defer cancel()
		var callErr error
		result, callErr = p.collab.Transcriber.Transcribe(callCtx, slicePath, fidelity)
		return callErr
	})
	if err != nil {
		log.GetLogger().Warn("transcription gave up",
			zap.String("videoId", p.video.VideoId),
			zap.Float64("startSec", startSec),
			zap.String("fidelity", string(fidelity)),
			zap.Error(err))
		return nil, err
	}

	// Shift word times to clip-local coordinates. The slice starts padSec
	// before the clip (clamped at zero), so the clip start sits at
	// startSec-sliceStart within the slice.
	offset := startSec - sliceStart
	for i := range result.Words {
		result.Words[i].Start -= offset
		result.Words[i].End -= offset
	}
	return result, nil
}

func (p *Pipeline) concurrency() int {
	if p.opts.Concurrency > 0 {
		return p.opts.Concurrency
	}
	return 1
}

func errgroupWithLimit(ctx context.Context, limit int) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	return g, gctx
}
