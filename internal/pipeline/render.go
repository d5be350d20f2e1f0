package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"autoclipper/internal/types"
	"autoclipper/log"
)

// minRenderDurationSec guards the snap-and-trim cleanup: trimming never
// shrinks a clip below this.
const minRenderDurationSec = 5.0

// snapWindowSec bounds how far boundary snapping may move inside the
// QC-approved range.
const snapWindowSec = 1.0

// runRender produces the final artifacts for every packaged clip. The source
// video is downloaded once; a download failure is fatal for the run. Encode
// failures are terminal per candidate and leave siblings untouched.
func (p *Pipeline) runRender(ctx context.Context) (*Report, error) {
	report := &Report{Stage: "render"}

	if !p.anyRenderable() {
		return report, nil
	}

	if p.videoPath == "" {
		path, err := p.collab.Downloader.DownloadVideo(ctx, p.video.SourceRef, p.runWorkDir())
		if err != nil {
			return nil, err
		}
		p.videoPath = path
	}
	if err := os.MkdirAll(p.outputDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	for i := range p.clips {
		clip := &p.clips[i]
		if clip.Stage != types.ClipStagePackaged || !clip.QcPassed {
			report.add(clip.ClipId, OutcomeSkip, "not renderable")
			continue
		}

		clip.Stage = types.ClipStageRendering
		clip.RenderStatus = types.RenderStatusRendering
		if err := p.renderOne(ctx, clip); err != nil {
			clip.Stage = types.ClipStageError
			clip.RenderStatus = types.RenderStatusError
			clip.RenderError = err.Error()
			report.add(clip.ClipId, OutcomeFail, err.Error())
			continue
		}
		clip.Stage = types.ClipStageReady
		clip.RenderStatus = types.RenderStatusReady
		report.add(clip.ClipId, OutcomeOK, "")
	}
	return report, nil
}

func (p *Pipeline) anyRenderable() bool {
	for i := range p.clips {
		if p.clips[i].Stage == types.ClipStagePackaged && p.clips[i].QcPassed {
			return true
		}
	}
	return false
}

func (p *Pipeline) renderOne(ctx context.Context, clip *types.ClipCandidate) error {
	words := clip.Words()

	// Final boundary cleanup inside the QC-approved range: snap to word
	// edges, then shave leading and trailing filler words.
	startTrim, endTrim := snapBoundaries(words, clip.Duration())
	fillerStart, fillerEnd := trimFillers(words, clip.Duration(), startTrim, endTrim, p.opts.FillerWords)
	startTrim, endTrim = fillerStart, fillerEnd

	renderStart := clip.StartSec + startTrim
	renderEnd := clip.EndSec - endTrim
	if renderEnd-renderStart < minRenderDurationSec {
		// Cleanup went too deep, fall back to the QC-approved bounds.
		renderStart = clip.StartSec
		renderEnd = clip.EndSec
		startTrim, endTrim = 0, 0
	}

	if startTrim != 0 {
		words = shiftWords(words, startTrim)
		clip.TimingOffset += startTrim
	}
	clip.StartSec = renderStart
	clip.EndSec = renderEnd
	clip.SetWords(words)

	base := filepath.Join(p.outputDir(), fmt.Sprintf("clip_%s", clip.ClipId))
	videoOut := base + ".mp4"
	thumbOut := base + ".jpg"
	srtOut := base + ".srt"

	srt := BuildSRT(words, renderEnd-renderStart)
	if err := os.WriteFile(srtOut, []byte(srt), 0o644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}

	spec := types.RenderSpec{
		InputPath:    p.videoPath,
		OutputPath:   videoOut,
		StartSec:     renderStart,
		EndSec:       renderEnd,
		SubtitlePath: srtOut,
	}
	encCtx, cancel := p.callCtx(ctx)
	err := p.collab.Media.CropAndEncode(encCtx, spec)
	cancel()
	if err != nil {
		return err
	}

	thumbCtx, cancel := p.callCtx(ctx)
	err = p.collab.Media.Thumbnail(thumbCtx, videoOut, thumbOut, 1.0)
	cancel()
	if err != nil {
		// A clip without a thumbnail is still publishable.
		log.GetLogger().Warn("thumbnail failed",
			zap.String("clipId", clip.ClipId), zap.Error(err))
		thumbOut = ""
	}

	clip.FileRef = videoOut
	clip.ThumbRef = thumbOut
	clip.SubtitleRef = srtOut
	return nil
}

// snapBoundaries returns inward trims aligning the clip edges with the
// nearest word boundary within the snap window. Trims are never negative:
// the render can only move inside the QC-approved range.
func snapBoundaries(words []types.WordTiming, duration float64) (startTrim, endTrim float64) {
	first := firstWordAfter(words, 0)
	if first != nil && first.Start > 0 && first.Start <= snapWindowSec {
		startTrim = first.Start
	}
	last := lastWordBefore(words, duration)
	if last != nil && last.End < duration && duration-last.End <= snapWindowSec {
		endTrim = duration - last.End
	}
	return startTrim, endTrim
}

// trimFillers extends the trims past leading and trailing filler tokens.
func trimFillers(words []types.WordTiming, duration, startTrim, endTrim float64, fillers []string) (float64, float64) {
	isFiller := func(w string) bool {
		w = strings.ToLower(strings.Trim(w, ".,!?;:"))
		for _, f := range fillers {
			if w == f {
				return true
			}
		}
		return false
	}

	for _, w := range words {
		if w.Start < startTrim-1e-9 {
			continue
		}
		if !isFiller(w.Word) {
			break
		}
		next := firstWordAfter(words, w.End)
		if next != nil {
			startTrim = math.Max(startTrim, next.Start)
		} else {
			startTrim = math.Max(startTrim, w.End)
		}
	}

	for i := len(words) - 1; i >= 0; i-- {
		w := words[i]
		if w.End > duration-endTrim+1e-9 {
			continue
		}
		if !isFiller(w.Word) {
			break
		}
		endTrim = math.Max(endTrim, duration-w.Start)
	}
	return startTrim, endTrim
}

func firstWordAfter(words []types.WordTiming, pos float64) *types.WordTiming {
	for i := range words {
		if words[i].Start >= pos-1e-9 {
			return &words[i]
		}
	}
	return nil
}

func lastWordBefore(words []types.WordTiming, pos float64) *types.WordTiming {
	for i := len(words) - 1; i >= 0; i-- {
		if words[i].End <= pos+1e-9 {
			return &words[i]
		}
	}
	return nil
}
