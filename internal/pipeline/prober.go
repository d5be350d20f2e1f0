package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"autoclipper/internal/types"
	"autoclipper/log"
)

// runProbe fetches source metadata and picks the segmentation strategy.
// Probe failure is fatal for the run, there is nothing to clip without a
// duration.
func (p *Pipeline) runProbe(ctx context.Context) (*Report, error) {
	callCtx, cancel := p.callCtx(ctx)
	defer cancel()

	probe, err := p.collab.Prober.Probe(callCtx, p.video.SourceRef)
	if err != nil {
		return nil, err
	}

	p.video.Title = probe.Title
	p.video.Uploader = probe.Uploader
	p.video.DurationSec = probe.DurationSec
	p.video.SetChapters(probe.Chapters)
	p.video.Strategy = ChooseStrategy(probe)

	if err := p.store.SaveVideo(p.video); err != nil {
		return nil, err
	}

	log.GetLogger().Info("probed source",
		zap.String("videoId", p.video.VideoId),
		zap.Float64("durationSec", probe.DurationSec),
		zap.Int("chapters", len(probe.Chapters)),
		zap.String("strategy", string(p.video.Strategy)))
	return &Report{Stage: "probe", OK: 1}, nil
}

// runCandidates generates the immutable candidate sequence for this run.
func (p *Pipeline) runCandidates(ctx context.Context) (*Report, error) {
	var segments []types.CandidateSegment

	switch p.video.Strategy {
	case types.StrategyChapter:
		segments = BuildChapterCandidates(p.video.Chapters(), p.video.DurationSec, p.minClipSec())
	default:
		audioPath, err := p.ensureAudio(ctx)
		if err != nil {
			return nil, err
		}
		callCtx, cancel := p.callCtx(ctx)
		silences, err := p.collab.Media.DetectSilence(callCtx, audioPath, p.opts.SilenceNoiseDb, p.opts.MinSilenceSec)
		cancel()
		if err != nil {
			return nil, err
		}
		segments = BuildSilenceCandidates(silences, p.video.DurationSec, p.maxClipSec())
	}

	if len(segments) == 0 {
		segments = FallbackCandidate(p.video.DurationSec, p.maxClipSec())
	}

	p.clips = make([]types.ClipCandidate, 0, len(segments))
	for _, seg := range segments {
		p.clips = append(p.clips, types.ClipCandidate{
			ClipId:       uuid.NewString(),
			VideoId:      p.video.VideoId,
			Generation:   p.generation,
			RawIndex:     seg.RawIndex,
			StartSec:     seg.StartSec,
			EndSec:       seg.EndSec,
			Source:       seg.Source,
			SourceInfo:   seg.SourceInfo,
			Stage:        types.ClipStageCreated,
			RenderStatus: types.RenderStatusPending,
		})
	}

	log.GetLogger().Info("generated candidates",
		zap.String("videoId", p.video.VideoId),
		zap.String("strategy", string(p.video.Strategy)),
		zap.Int("count", len(p.clips)))
	return &Report{Stage: "candidates", OK: len(p.clips)}, nil
}
