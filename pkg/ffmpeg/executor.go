package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"autoclipper/internal/types"
	"autoclipper/log"
	"autoclipper/pkg/errors"
)

// Executor drives the local ffmpeg binary for audio cutting, silence
// detection and portrait rendering.
type Executor struct {
	FfmpegPath  string
	FfprobePath string

	Width         int
	Height        int
	Crf           int
	Preset        string
	SubtitleStyle string
}

func NewExecutor(ffmpegPath, ffprobePath string, width, height, crf int, preset, subtitleStyle string) *Executor {
	return &Executor{
		FfmpegPath:    ffmpegPath,
		FfprobePath:   ffprobePath,
		Width:         width,
		Height:        height,
		Crf:           crf,
		Preset:        preset,
		SubtitleStyle: subtitleStyle,
	}
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*([0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([0-9.]+)`)
)

// DetectSilence runs the silencedetect filter over the audio file and
// returns detected silence intervals in chronological order.
func (e *Executor) DetectSilence(ctx context.Context, audioPath string, noiseDb float64, minSilenceSec float64) ([]types.SilenceInterval, error) {
	filter := fmt.Sprintf("silencedetect=noise=%.0fdB:d=%.2f", noiseDb, minSilenceSec)
	cmdArgs := []string{"-i", audioPath, "-af", filter, "-f", "null", "-"}
	cmd := exec.CommandContext(ctx, e.FfmpegPath, cmdArgs...)
	// silencedetect reports on stderr.
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.GetLogger().Error("ffmpeg silencedetect failed",
			zap.String("audioPath", audioPath),
			zap.String("output", tail(string(output), 2000)),
			zap.Error(err))
		return nil, errors.Wrap(errors.CodeUnknown, "silence detection failed", err)
	}
	return ParseSilenceOutput(string(output)), nil
}

// ParseSilenceOutput extracts silence intervals from silencedetect log
// lines. A trailing silence_start without a matching silence_end is
// dropped, it means the file ends in silence and the cut point is useless.
func ParseSilenceOutput(output string) []types.SilenceInterval {
	var intervals []types.SilenceInterval
	var pendingStart *float64

	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				pendingStart = &v
			}
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && pendingStart != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err == nil && v > *pendingStart {
				intervals = append(intervals, types.SilenceInterval{Start: *pendingStart, End: v})
			}
			pendingStart = nil
		}
	}
	return intervals
}

// CutAudio extracts a region of the input as 16kHz mono PCM, the format
// the transcription API handles best.
func (e *Executor) CutAudio(ctx context.Context, inputPath, outputPath string, startSec, durationSec float64) error {
	cmdArgs := []string{
		"-y",
		"-ss", formatSeconds(startSec),
		"-i", inputPath,
		"-t", formatSeconds(durationSec),
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, e.FfmpegPath, cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.GetLogger().Error("ffmpeg cut audio failed",
			zap.String("inputPath", inputPath),
			zap.Float64("startSec", startSec),
			zap.Float64("durationSec", durationSec),
			zap.String("output", tail(string(output), 2000)),
			zap.Error(err))
		return errors.Wrap(errors.CodeUnknown, "audio cut failed", err)
	}
	return nil
}

// CropAndEncode cuts the spec region out of the source, center-crops it to
// portrait and encodes it, burning in subtitles when a subtitle file is set.
func (e *Executor) CropAndEncode(ctx context.Context, spec types.RenderSpec) error {
	filter := fmt.Sprintf("crop=ih*(%d/%d):ih:(iw-ow)/2:0,scale=%d:%d", e.Width, e.Height, e.Width, e.Height)
	if spec.SubtitlePath != "" {
		filter += fmt.Sprintf(",subtitles=%s:force_style='%s'", escapeFilterPath(spec.SubtitlePath), e.SubtitleStyle)
	}

	cmdArgs := []string{
		"-y",
		"-ss", formatSeconds(spec.StartSec),
		"-i", spec.InputPath,
		"-t", formatSeconds(spec.EndSec - spec.StartSec),
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", e.Preset,
		"-crf", strconv.Itoa(e.Crf),
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		spec.OutputPath,
	}
	cmd := exec.CommandContext(ctx, e.FfmpegPath, cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.GetLogger().Error("ffmpeg render failed",
			zap.String("inputPath", spec.InputPath),
			zap.String("outputPath", spec.OutputPath),
			zap.String("output", tail(string(output), 2000)),
			zap.Error(err))
		return errors.Wrap(errors.CodeEncodeError, "render failed", err)
	}
	return nil
}

// Thumbnail grabs a single frame from the rendered clip.
func (e *Executor) Thumbnail(ctx context.Context, videoPath, outputPath string, atSec float64) error {
	cmdArgs := []string{
		"-y",
		"-ss", formatSeconds(atSec),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "3",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, e.FfmpegPath, cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.GetLogger().Error("ffmpeg thumbnail failed",
			zap.String("videoPath", videoPath),
			zap.String("output", tail(string(output), 2000)),
			zap.Error(err))
		return errors.Wrap(errors.CodeThumbnailFailed, "thumbnail extraction failed", err)
	}
	return nil
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// escapeFilterPath escapes characters the subtitles filter treats specially.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `/`)
	path = strings.ReplaceAll(path, `:`, `\:`)
	path = strings.ReplaceAll(path, `'`, `\'`)
	return path
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
