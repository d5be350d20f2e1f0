package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"autoclipper/internal/mocks"
	"autoclipper/internal/storage"
	"autoclipper/internal/types"
)

const pass1Text = "markets always recover after a crash even when everyone panics"

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		MinClipSec:          20,
		MaxClipSec:          75,
		TargetClipSec:       45,
		ClipsPerVideo:       4,
		SimilarityThreshold: 0.7,
		SilenceNoiseDb:      -35,
		MinSilenceSec:       0.35,
		Concurrency:         2,
		RetryAttempts:       1,
		MinTranscriptChars:  10,
		FillerWords:         []string{"um", "uh"},
		WorkDir:             t.TempDir(),
		OutputDir:           t.TempDir(),
	}
}

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return storage.NewStore(db)
}

func pathContains(sub string) interface{} {
	return mock.MatchedBy(func(p string) bool { return strings.Contains(p, sub) })
}

func TestPipelineRunEndToEnd(t *testing.T) {
	prober := new(mocks.MockProber)
	downloader := new(mocks.MockDownloader)
	transcriber := new(mocks.MockTranscriber)
	chat := new(mocks.MockChatCompleter)
	media := new(mocks.MockMediaToolkit)

	prober.On("Probe", mock.Anything, mock.Anything).Return(&types.ProbeResult{
		SourceID:    "abc",
		Title:       "Market Crashes Explained",
		Uploader:    "Finance Pod",
		DurationSec: 100,
		Chapters: []types.Chapter{
			{Title: "crashes", StartSec: 0, EndSec: 45},
			{Title: "recoveries", StartSec: 45, EndSec: 100},
		},
	}, nil)

	downloader.On("DownloadAudio", mock.Anything, mock.Anything, mock.Anything).Return("audio.m4a", nil)
	downloader.On("DownloadVideo", mock.Anything, mock.Anything, mock.Anything).Return("video.mp4", nil)

	media.On("CutAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	media.On("CropAndEncode", mock.Anything, mock.Anything).Return(nil)
	media.On("Thumbnail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// First candidate speaks, second is dead air and must drop out without
	// failing the run.
	transcriber.On("Transcribe", mock.Anything, pathContains("fast_0.000"), types.FidelityFast).
		Return(&types.TranscriptResult{Text: pass1Text}, nil)
	transcriber.On("Transcribe", mock.Anything, pathContains("fast_45.000"), types.FidelityFast).
		Return(&types.TranscriptResult{Text: ""}, nil)
	transcriber.On("Transcribe", mock.Anything, mock.Anything, types.FidelityAccurate).
		Return(&types.TranscriptResult{
			Text: pass1Text,
			Words: []types.WordTiming{
				{Word: "markets", Start: 0.5, End: 1.0},
				{Word: "always", Start: 1.2, End: 1.8},
				{Word: "recover", Start: 2.0, End: 2.7},
				{Word: "panics", Start: 43.8, End: 44.5},
			},
		}, nil)

	chat.On("ChatCompletion", mock.Anything, scoreSystemPrompt, mock.Anything).
		Return(`{"viral_score": 80, "reason": "contrarian claim", "risk_flags": [], "keywords": ["markets", "investing", "crash"]}`, nil)
	chat.On("ChatCompletion", mock.Anything, refineSystemPrompt, mock.Anything).
		Return(`{"hook_text": "Markets always recover", "caption": "Why panics are buying opportunities.", "risk_flags": [], "keywords": ["markets"]}`, nil)
	chat.On("ChatCompletion", mock.Anything, openingSystemPrompt, mock.Anything).
		Return(`{"passed": true, "reason": "bold claim"}`, nil)
	chat.On("ChatCompletion", mock.Anything, packagingSystemPrompt, mock.Anything).
		Return(`{"key_sentence": "markets always recover after a crash", "title": "Markets always recover", "caption": "Do not panic sell.", "hashtags": ["fyp", "viral", "markets", "investing", "crash"], "confidence": 90}`, nil)

	store := testStore(t)
	video := &types.SourceVideo{
		VideoId:   "vid-1",
		SourceRef: "https://example.com/watch?v=abc",
		Status:    types.VideoStatusNew,
	}
	require.NoError(t, store.SaveVideo(video))

	var statuses []types.VideoStatus
	p := New(video, 1, Collaborators{
		Prober:      prober,
		Downloader:  downloader,
		Transcriber: transcriber,
		Chat:        chat,
		Media:       media,
	}, testOptions(t), store, func(s types.VideoStatus) {
		statuses = append(statuses, s)
	})

	require.NoError(t, p.Run(context.Background()))

	// Stage sequence ran in order and ended READY.
	assert.Equal(t, types.VideoStatusProbing, statuses[0])
	assert.Equal(t, types.VideoStatusReady, statuses[len(statuses)-1])

	stored, err := store.GetVideo("vid-1")
	require.NoError(t, err)
	assert.Equal(t, types.VideoStatusReady, stored.Status)
	assert.Equal(t, types.StrategyChapter, stored.Strategy)

	clips, err := store.GetClips("vid-1", 1)
	require.NoError(t, err)
	require.Len(t, clips, 2)

	ready := clips[0]
	assert.Equal(t, types.ClipStageReady, ready.Stage)
	assert.Equal(t, types.RenderStatusReady, ready.RenderStatus)
	assert.True(t, ready.QcPassed)
	assert.Equal(t, 80, ready.ViralScore)
	assert.Equal(t, "Markets always recover", ready.HookText)
	assert.Equal(t, 90, ready.PackagingConfidence)
	assert.NotEmpty(t, ready.FileRef)
	assert.NotEmpty(t, ready.SubtitleRef)

	// Empty pass-1 transcript excluded the sibling without failing the run.
	assert.Equal(t, types.ClipStageRejectedNoTranscript, clips[1].Stage)

	// The source audio and video were fetched exactly once.
	downloader.AssertNumberOfCalls(t, "DownloadAudio", 1)
	downloader.AssertNumberOfCalls(t, "DownloadVideo", 1)
}

func TestPipelineProbeFailureIsFatal(t *testing.T) {
	prober := new(mocks.MockProber)
	prober.On("Probe", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	store := testStore(t)
	video := &types.SourceVideo{VideoId: "vid-1", SourceRef: "ref", Status: types.VideoStatusNew}
	require.NoError(t, store.SaveVideo(video))

	p := New(video, 1, Collaborators{Prober: prober}, testOptions(t), store, nil)
	err := p.Run(context.Background())
	require.Error(t, err)

	stored, err := store.GetVideo("vid-1")
	require.NoError(t, err)
	assert.Equal(t, types.VideoStatusError, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)
}

func TestPipelineCancellationBetweenStages(t *testing.T) {
	prober := new(mocks.MockProber)
	store := testStore(t)
	video := &types.SourceVideo{VideoId: "vid-1", SourceRef: "ref", Status: types.VideoStatusNew}
	require.NoError(t, store.SaveVideo(video))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(video, 1, Collaborators{Prober: prober}, testOptions(t), store, nil)
	err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	stored, err := store.GetVideo("vid-1")
	require.NoError(t, err)
	assert.Equal(t, types.VideoStatusError, stored.Status)
	prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}

func TestRunRenderGatesOnQcPassed(t *testing.T) {
	downloader := new(mocks.MockDownloader)
	media := new(mocks.MockMediaToolkit)

	p := &Pipeline{
		video:  &types.SourceVideo{VideoId: "vid"},
		collab: Collaborators{Downloader: downloader, Media: media},
		opts:   testOptions(t),
	}
	p.clips = []types.ClipCandidate{
		{ClipId: "failed", Stage: types.ClipStageQCFailed, QcPassed: false},
		{ClipId: "rejected", Stage: types.ClipStageRejectedDiversity},
	}

	report, err := p.runRender(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.OK)

	// Nothing renderable: the source video is never even downloaded.
	downloader.AssertNotCalled(t, "DownloadVideo", mock.Anything, mock.Anything, mock.Anything)
	media.AssertNotCalled(t, "CropAndEncode", mock.Anything, mock.Anything)
}

func TestRunRenderEncodeFailureIsPerCandidate(t *testing.T) {
	downloader := new(mocks.MockDownloader)
	media := new(mocks.MockMediaToolkit)
	downloader.On("DownloadVideo", mock.Anything, mock.Anything, mock.Anything).Return("video.mp4", nil)
	media.On("CropAndEncode", mock.Anything, mock.Anything).Return(assert.AnError).Once()
	media.On("CropAndEncode", mock.Anything, mock.Anything).Return(nil)
	media.On("Thumbnail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	p := &Pipeline{
		video:  &types.SourceVideo{VideoId: "vid"},
		collab: Collaborators{Downloader: downloader, Media: media},
		opts:   testOptions(t),
	}
	p.clips = []types.ClipCandidate{
		{ClipId: "a", StartSec: 0, EndSec: 45, Stage: types.ClipStagePackaged, QcPassed: true},
		{ClipId: "b", StartSec: 50, EndSec: 95, Stage: types.ClipStagePackaged, QcPassed: true},
	}

	report, err := p.runRender(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.OK)
	assert.Equal(t, 1, report.Failed)

	assert.Equal(t, types.ClipStageError, p.clips[0].Stage)
	assert.Equal(t, types.RenderStatusError, p.clips[0].RenderStatus)
	assert.NotEmpty(t, p.clips[0].RenderError)

	assert.Equal(t, types.ClipStageReady, p.clips[1].Stage)
	assert.Equal(t, types.RenderStatusReady, p.clips[1].RenderStatus)
}
