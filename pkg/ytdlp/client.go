package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"autoclipper/internal/types"
	"autoclipper/log"
	"autoclipper/pkg/errors"
)

// Client drives the yt-dlp binary for probing and media download.
type Client struct {
	BinPath     string
	FfmpegPath  string
	Proxy       string
	CookiesFile string
}

func NewClient(binPath, ffmpegPath, proxy, cookiesFile string) *Client {
	return &Client{
		BinPath:     binPath,
		FfmpegPath:  ffmpegPath,
		Proxy:       proxy,
		CookiesFile: cookiesFile,
	}
}

func (c *Client) commonArgs() []string {
	var args []string
	if c.Proxy != "" {
		args = append(args, "--proxy", c.Proxy)
	}
	if c.CookiesFile != "" {
		args = append(args, "--cookies", c.CookiesFile)
	}
	if c.FfmpegPath != "" && c.FfmpegPath != "ffmpeg" {
		args = append(args, "--ffmpeg-location", c.FfmpegPath)
	}
	return args
}

type probeChapter struct {
	Title     string  `json:"title"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

type probePayload struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Uploader string         `json:"uploader"`
	Duration float64        `json:"duration"`
	Chapters []probeChapter `json:"chapters"`
}

// Probe fetches source metadata without downloading any media.
func (c *Client) Probe(ctx context.Context, sourceRef string) (*types.ProbeResult, error) {
	args := append([]string{"-J", "--no-download", sourceRef}, c.commonArgs()...)
	cmd := exec.CommandContext(ctx, c.BinPath, args...)
	output, err := cmd.Output()
	if err != nil {
		log.GetLogger().Error("yt-dlp probe failed",
			zap.String("sourceRef", sourceRef),
			zap.String("stderr", commandStderr(err)),
			zap.Error(err))
		return nil, errors.WrapWithDetail(errors.CodeUnprobeableSource, "failed to probe source", sourceRef, err)
	}

	var payload probePayload
	if err = json.Unmarshal(output, &payload); err != nil {
		return nil, errors.WrapWithDetail(errors.CodeUnprobeableSource, "unreadable probe metadata", sourceRef, err)
	}
	if payload.Duration <= 0 {
		return nil, errors.WrapWithDetail(errors.CodeUnprobeableSource, "source has no duration", sourceRef, nil)
	}

	result := &types.ProbeResult{
		SourceID:    payload.ID,
		Title:       payload.Title,
		Uploader:    payload.Uploader,
		DurationSec: payload.Duration,
	}
	for _, ch := range payload.Chapters {
		result.Chapters = append(result.Chapters, types.Chapter{
			Title:    ch.Title,
			StartSec: ch.StartTime,
			EndSec:   ch.EndTime,
		})
	}
	return result, nil
}

// DownloadAudio fetches the best audio track as m4a into destDir and
// returns the downloaded file path.
func (c *Client) DownloadAudio(ctx context.Context, sourceRef, destDir string) (string, error) {
	stem := "audio_" + uuid.NewString()
	template := filepath.Join(destDir, stem+".%(ext)s")
	args := append([]string{
		"-f", "bestaudio[ext=m4a]/bestaudio",
		"-x", "--audio-format", "m4a",
		"-o", template,
		sourceRef,
	}, c.commonArgs()...)

	cmd := exec.CommandContext(ctx, c.BinPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.GetLogger().Error("yt-dlp audio download failed",
			zap.String("sourceRef", sourceRef),
			zap.String("output", string(output)),
			zap.Error(err))
		return "", errors.WrapWithDetail(errors.CodeAudioDownload, "failed to download audio", sourceRef, err)
	}

	path, err := findDownloaded(destDir, stem)
	if err != nil {
		return "", errors.WrapWithDetail(errors.CodeAudioDownload, "downloaded audio file not found", sourceRef, err)
	}
	return path, nil
}

// DownloadVideo fetches the source video (capped at 1080p) as mp4 into
// destDir and returns the downloaded file path.
func (c *Client) DownloadVideo(ctx context.Context, sourceRef, destDir string) (string, error) {
	stem := "video_" + uuid.NewString()
	template := filepath.Join(destDir, stem+".%(ext)s")
	args := append([]string{
		"-f", "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080][ext=mp4]/best",
		"--merge-output-format", "mp4",
		"-o", template,
		sourceRef,
	}, c.commonArgs()...)

	cmd := exec.CommandContext(ctx, c.BinPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.GetLogger().Error("yt-dlp video download failed",
			zap.String("sourceRef", sourceRef),
			zap.String("output", string(output)),
			zap.Error(err))
		return "", errors.WrapWithDetail(errors.CodeVideoDownload, "failed to download video", sourceRef, err)
	}

	path, err := findDownloaded(destDir, stem)
	if err != nil {
		return "", errors.WrapWithDetail(errors.CodeVideoDownload, "downloaded video file not found", sourceRef, err)
	}
	return path, nil
}

// findDownloaded locates the file yt-dlp wrote, since the final extension
// depends on the source formats.
func findDownloaded(destDir, stem string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(destDir, stem+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		// Skip partial download leftovers.
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		return m, nil
	}
	return "", fmt.Errorf("no file matching %s.* in %s", stem, destDir)
}

func commandStderr(err error) string {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return string(exitErr.Stderr)
	}
	return ""
}
