package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"autoclipper/internal/mocks"
	"autoclipper/internal/types"
)

const packagingTranscript = "so the real reason most people lose money is they panic sell at the bottom and then buy back in at the top"

func newPackagingPipeline(chat *mocks.MockChatCompleter) *Pipeline {
	return &Pipeline{
		video:  &types.SourceVideo{VideoId: "vid"},
		collab: Collaborators{Chat: chat},
		opts:   Options{RetryAttempts: 1},
	}
}

func packagedClip() *types.ClipCandidate {
	return &types.ClipCandidate{
		ClipId:          "clip",
		TranscriptPass2: packagingTranscript,
		HookText:        "refined hook",
		Caption:         "refined caption",
		Stage:           types.ClipStageQCPassed,
		QcPassed:        true,
	}
}

func TestPackagingSuccess(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything).Return(
		`{"key_sentence": "most people lose money is they panic sell at the bottom",
		  "title": "Why panic selling ruins you",
		  "caption": "The mistake that costs retail investors the most.",
		  "hashtags": ["fyp", "viral", "investing", "stocks", "mindset"],
		  "confidence": 85}`, nil)

	p := newPackagingPipeline(chat)
	clip := packagedClip()
	outcome, _ := p.packageOne(context.Background(), clip)

	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, "Why panic selling ruins you", clip.HookText)
	assert.Equal(t, 85, clip.PackagingConfidence)
	assert.Len(t, clip.Hashtags(), 5)
}

func TestPackagingMalformedReplyFallsBack(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything).Return(
		"Sure! Here is a great title for your clip.", nil)

	p := newPackagingPipeline(chat)
	clip := packagedClip()
	outcome, _ := p.packageOne(context.Background(), clip)

	assert.Equal(t, OutcomeFail, outcome)
	// Refined copy survives, confidence pinned low.
	assert.Equal(t, "refined hook", clip.HookText)
	assert.Equal(t, "refined caption", clip.Caption)
	assert.Equal(t, lowConfidenceDefault, clip.PackagingConfidence)
}

func TestPackagingUngroundedKeySentenceFallsBack(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything).Return(
		`{"key_sentence": "buy gold now before the dollar collapses entirely",
		  "title": "Gold is the answer",
		  "caption": "c", "hashtags": [], "confidence": 95}`, nil)

	p := newPackagingPipeline(chat)
	clip := packagedClip()
	outcome, detail := p.packageOne(context.Background(), clip)

	assert.Equal(t, OutcomeFail, outcome)
	assert.Contains(t, detail, "not grounded")
	assert.Equal(t, "refined hook", clip.HookText)
	assert.Empty(t, clip.KeySentence)
	assert.Equal(t, lowConfidenceDefault, clip.PackagingConfidence)
}

func TestPackagingNearVerbatimKeySentenceAccepted(t *testing.T) {
	// Minor transcription drift in the quoted sentence is tolerated.
	chat := new(mocks.MockChatCompleter)
	chat.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything).Return(
		`{"key_sentence": "they panic sell at the bottom and then buy back",
		  "title": "t", "caption": "c", "hashtags": ["a"], "confidence": 70}`, nil)

	p := newPackagingPipeline(chat)
	clip := packagedClip()
	outcome, _ := p.packageOne(context.Background(), clip)

	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, 70, clip.PackagingConfidence)
}

func TestTruncateCountsCharactersNotBytes(t *testing.T) {
	// Each rune below is multibyte; a byte cap would split one mid-sequence.
	s := "négociation déçue à répétition"
	got := truncate(s, 11)
	assert.Equal(t, "négociation...", got)

	assert.Equal(t, s, truncate(s, len([]rune(s))))
	assert.Equal(t, "短い", truncate("短い", 5))
}

func TestRunPackagingSkipsNonQCPassed(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	p := newPackagingPipeline(chat)
	p.clips = []types.ClipCandidate{
		{ClipId: "failed", Stage: types.ClipStageQCFailed},
	}

	report, err := p.runPackaging(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	chat.AssertNotCalled(t, "ChatCompletion", mock.Anything, mock.Anything, mock.Anything)
}
