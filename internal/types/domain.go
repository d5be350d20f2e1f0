package types

import "fmt"

// Strategy selects how candidate segments are generated for a video.
// Chosen once per run from probe output, never reassigned mid-run.
type Strategy string

const (
	StrategyChapter Strategy = "CHAPTER"
	StrategySilence Strategy = "SILENCE"
)

// Chapter is a chapter marker from the source video metadata.
type Chapter struct {
	Title    string  `json:"title"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// ProbeResult is the metadata prober output for a source video.
type ProbeResult struct {
	SourceID    string
	Title       string
	Uploader    string
	DurationSec float64
	Chapters    []Chapter
}

// SilenceInterval is a detected run of silence in the source audio.
type SilenceInterval struct {
	Start float64
	End   float64
}

// CandidateSegment is a rough time range produced by the candidate
// generator. The sequence is immutable and chronological.
type CandidateSegment struct {
	StartSec   float64
	EndSec     float64
	Source     Strategy
	RawIndex   int
	SourceInfo string
}

// NewCandidateSegment validates timing bounds at the single construction
// point, so invalid ranges never enter the pipeline.
func NewCandidateSegment(start, end, duration float64, source Strategy, info string) (CandidateSegment, error) {
	if start < 0 || end <= start || end > duration {
		return CandidateSegment{}, fmt.Errorf("invalid segment bounds [%.2f, %.2f] for duration %.2f", start, end, duration)
	}
	return CandidateSegment{
		StartSec:   start,
		EndSec:     end,
		Source:     source,
		SourceInfo: info,
	}, nil
}

func (c CandidateSegment) Duration() float64 {
	return c.EndSec - c.StartSec
}

// WordTiming is a single transcribed word with clip-local timing in seconds.
// Words overlapping a cut boundary may carry a negative start or an end past
// the clip duration; quality control relies on that to detect mid-word cuts.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscribeFidelity selects the transcription pass mode.
type TranscribeFidelity string

const (
	FidelityFast     TranscribeFidelity = "fast"
	FidelityAccurate TranscribeFidelity = "accurate"
)

// TranscriptResult is one transcriber invocation's output. Words is empty in
// fast mode. Empty Text means no speech was detected; that is not an error.
type TranscriptResult struct {
	Text  string
	Words []WordTiming
}

// VideoStatus is the per-run video state, advanced by the orchestrator at
// stage boundaries.
type VideoStatus string

const (
	VideoStatusNew                  VideoStatus = "NEW"
	VideoStatusProbing              VideoStatus = "PROBING"
	VideoStatusGeneratingCandidates VideoStatus = "GENERATING_CANDIDATES"
	VideoStatusTranscribingPass1    VideoStatus = "TRANSCRIBING_PASS1"
	VideoStatusScoring              VideoStatus = "SCORING"
	VideoStatusTranscribingPass2    VideoStatus = "TRANSCRIBING_PASS2"
	VideoStatusRefining             VideoStatus = "REFINING"
	VideoStatusQualityControl       VideoStatus = "QUALITY_CONTROL"
	VideoStatusPackaging            VideoStatus = "PACKAGING"
	VideoStatusRendering            VideoStatus = "RENDERING"
	VideoStatusReady                VideoStatus = "READY"
	VideoStatusError                VideoStatus = "ERROR"
)

func (s VideoStatus) Terminal() bool {
	return s == VideoStatusReady || s == VideoStatusError
}

// ClipStage is the per-candidate state machine.
type ClipStage string

const (
	ClipStageCreated              ClipStage = "CREATED"
	ClipStageScored               ClipStage = "SCORED"
	ClipStageShortlisted          ClipStage = "SHORTLISTED"
	ClipStageRejectedDiversity    ClipStage = "REJECTED_DIVERSITY"
	ClipStageRejectedNoTranscript ClipStage = "REJECTED_NO_TRANSCRIPT"
	ClipStageRefined              ClipStage = "REFINED"
	ClipStageValidated            ClipStage = "VALIDATED"
	ClipStageQCPassed             ClipStage = "QC_PASSED"
	ClipStageQCFailed             ClipStage = "QC_FAILED"
	ClipStagePackaged             ClipStage = "PACKAGED"
	ClipStageRendering            ClipStage = "RENDERING"
	ClipStageReady                ClipStage = "READY"
	ClipStageError                ClipStage = "ERROR"
)

func (s ClipStage) Terminal() bool {
	switch s {
	case ClipStageRejectedDiversity, ClipStageRejectedNoTranscript,
		ClipStageQCFailed, ClipStageReady, ClipStageError:
		return true
	}
	return false
}

// RenderStatus tracks the render lifecycle of one clip candidate.
type RenderStatus string

const (
	RenderStatusPending   RenderStatus = "PENDING"
	RenderStatusRendering RenderStatus = "RENDERING"
	RenderStatusReady     RenderStatus = "READY"
	RenderStatusError     RenderStatus = "ERROR"
)
