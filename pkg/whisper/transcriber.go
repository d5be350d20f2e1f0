package whisper

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"autoclipper/internal/types"
	"autoclipper/log"
	"autoclipper/pkg/errors"
)

// Transcriber runs Whisper-compatible speech-to-text. Fast fidelity returns
// plain text, accurate fidelity adds per-word timestamps.
type Transcriber struct {
	client        *openai.Client
	fastModel     string
	accurateModel string
}

func NewTranscriber(baseUrl, apiKey, fastModel, accurateModel string, proxy *url.URL) *Transcriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseUrl != "" {
		cfg.BaseURL = baseUrl
	}

	transport := &http.Transport{}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	cfg.HTTPClient = &http.Client{Transport: transport}

	return &Transcriber{
		client:        openai.NewClientWithConfig(cfg),
		fastModel:     fastModel,
		accurateModel: accurateModel,
	}
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, fidelity types.TranscribeFidelity) (*types.TranscriptResult, error) {
	req := openai.AudioRequest{
		FilePath: audioPath,
	}
	switch fidelity {
	case types.FidelityAccurate:
		req.Model = t.accurateModel
		req.Format = openai.AudioResponseFormatVerboseJSON
		req.TimestampGranularities = []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		}
	default:
		req.Model = t.fastModel
		req.Format = openai.AudioResponseFormatJSON
	}

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		log.GetLogger().Error("transcription failed",
			zap.String("audioPath", audioPath),
			zap.String("fidelity", string(fidelity)),
			zap.Error(err))
		return nil, classifyAPIError(ctx, err)
	}

	result := &types.TranscriptResult{Text: strings.TrimSpace(resp.Text)}
	for _, w := range resp.Words {
		word := strings.TrimSpace(w.Word)
		if word == "" {
			continue
		}
		result.Words = append(result.Words, types.WordTiming{
			Word:  word,
			Start: w.Start,
			End:   w.End,
		})
	}
	return result, nil
}

func classifyAPIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Wrap(errors.CodeTranscriptionTimeout, "transcription timed out", err)
	}
	if apiErr, ok := err.(*openai.APIError); ok && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return errors.Wrap(errors.CodeRateLimited, "transcription rate limited", err)
	}
	return errors.Wrap(errors.CodeTranscriptionUnavailable, "transcription unavailable", err)
}
