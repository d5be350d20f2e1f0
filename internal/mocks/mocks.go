// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"autoclipper/internal/types"
)

// MockProber is a mock implementation of types.Prober
type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, sourceRef string) (*types.ProbeResult, error) {
	args := m.Called(ctx, sourceRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ProbeResult), args.Error(1)
}

// MockDownloader is a mock implementation of types.MediaDownloader
type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) DownloadAudio(ctx context.Context, sourceRef, destDir string) (string, error) {
	args := m.Called(ctx, sourceRef, destDir)
	return args.String(0), args.Error(1)
}

func (m *MockDownloader) DownloadVideo(ctx context.Context, sourceRef, destDir string) (string, error) {
	args := m.Called(ctx, sourceRef, destDir)
	return args.String(0), args.Error(1)
}

// MockTranscriber is a mock implementation of types.Transcriber
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audioPath string, fidelity types.TranscribeFidelity) (*types.TranscriptResult, error) {
	args := m.Called(ctx, audioPath, fidelity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TranscriptResult), args.Error(1)
}

// MockChatCompleter is a mock implementation of types.ChatCompleter
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

// MockMediaToolkit is a mock implementation of types.MediaToolkit
type MockMediaToolkit struct {
	mock.Mock
}

func (m *MockMediaToolkit) DetectSilence(ctx context.Context, audioPath string, noiseDb float64, minSilenceSec float64) ([]types.SilenceInterval, error) {
	args := m.Called(ctx, audioPath, noiseDb, minSilenceSec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SilenceInterval), args.Error(1)
}

func (m *MockMediaToolkit) CutAudio(ctx context.Context, inputPath, outputPath string, startSec, durationSec float64) error {
	args := m.Called(ctx, inputPath, outputPath, startSec, durationSec)
	return args.Error(0)
}

func (m *MockMediaToolkit) CropAndEncode(ctx context.Context, spec types.RenderSpec) error {
	args := m.Called(ctx, spec)
	return args.Error(0)
}

func (m *MockMediaToolkit) Thumbnail(ctx context.Context, videoPath, outputPath string, atSec float64) error {
	args := m.Called(ctx, videoPath, outputPath, atSec)
	return args.Error(0)
}
