package types

import "context"

// Prober fetches source video metadata without downloading media.
type Prober interface {
	Probe(ctx context.Context, sourceRef string) (*ProbeResult, error)
}

// MediaDownloader fetches media from a source reference into a local file.
type MediaDownloader interface {
	DownloadAudio(ctx context.Context, sourceRef, destDir string) (string, error)
	DownloadVideo(ctx context.Context, sourceRef, destDir string) (string, error)
}

// Transcriber turns an audio file into text, with word timings in
// accurate mode.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, fidelity TranscribeFidelity) (*TranscriptResult, error)
}

// ChatCompleter runs one LLM chat completion and returns the raw reply text.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RenderSpec describes one portrait render of a source video region.
type RenderSpec struct {
	InputPath    string
	OutputPath   string
	StartSec     float64
	EndSec       float64
	SubtitlePath string
}

// MediaToolkit wraps the local media binaries used by the pipeline.
type MediaToolkit interface {
	DetectSilence(ctx context.Context, audioPath string, noiseDb float64, minSilenceSec float64) ([]SilenceInterval, error)
	CutAudio(ctx context.Context, inputPath, outputPath string, startSec, durationSec float64) error
	CropAndEncode(ctx context.Context, spec RenderSpec) error
	Thumbnail(ctx context.Context, videoPath, outputPath string, atSec float64) error
}
