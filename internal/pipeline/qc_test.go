package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoclipper/internal/types"
)

func newQCPipeline() *Pipeline {
	return &Pipeline{
		video: &types.SourceVideo{VideoId: "vid"},
		opts: Options{
			MinClipSec: 20,
			MaxClipSec: 75,
		},
	}
}

func qcClip(start, end float64, words []types.WordTiming) *types.ClipCandidate {
	clip := &types.ClipCandidate{
		ClipId:   "clip",
		StartSec: start,
		EndSec:   end,
		Stage:    types.ClipStageValidated,
	}
	clip.SetWords(words)
	return clip
}

func TestQCCleanClipPasses(t *testing.T) {
	p := newQCPipeline()
	clip := qcClip(100, 145, []types.WordTiming{
		{Word: "markets", Start: 0.2, End: 0.8},
		{Word: "recover", Start: 44.0, End: 44.7},
	})

	outcome := p.qcOne(clip)
	assert.Equal(t, OutcomeOK, outcome.kind)
	assert.True(t, clip.QcPassed)
	assert.False(t, clip.RecutApplied)
	assert.Equal(t, 100.0, clip.StartSec)
	assert.Equal(t, 145.0, clip.EndSec)
}

func TestQCRecutsEndBoundaryInsideWord(t *testing.T) {
	p := newQCPipeline()
	// End boundary cuts 0.4s into "compounding"; the nearest word edge is
	// the word start, 0.4s inward.
	clip := qcClip(100, 145, []types.WordTiming{
		{Word: "money", Start: 10, End: 10.5},
		{Word: "compounding", Start: 44.6, End: 45.8},
	})

	outcome := p.qcOne(clip)
	assert.Equal(t, OutcomeOK, outcome.kind)
	assert.True(t, clip.QcPassed)
	assert.True(t, clip.RecutApplied)
	assert.InDelta(t, 144.6, clip.EndSec, 1e-9)
	assert.Equal(t, 100.0, clip.StartSec)

	// The repaired boundary no longer splits any word.
	assert.Nil(t, wordAt(clip.Words(), clip.Duration()))
}

func TestQCRecutsStartBoundaryInsideWord(t *testing.T) {
	p := newQCPipeline()
	// Start boundary cuts into a word that began 0.3s before the clip.
	clip := qcClip(100, 145, []types.WordTiming{
		{Word: "listen", Start: -0.3, End: 0.5},
		{Word: "up", Start: 0.6, End: 0.9},
	})

	outcome := p.qcOne(clip)
	assert.Equal(t, OutcomeOK, outcome.kind)
	assert.True(t, clip.QcPassed)
	assert.True(t, clip.RecutApplied)
	assert.InDelta(t, 99.7, clip.StartSec, 1e-9)
	assert.InDelta(t, -0.3, clip.TimingOffset, 1e-9)

	// Word timing stays clip-local after the shift.
	words := clip.Words()
	require.NotEmpty(t, words)
	assert.InDelta(t, 0.0, words[0].Start, 1e-9)
}

func TestQCFailsWhenNoRecutWithinBounds(t *testing.T) {
	p := newQCPipeline()
	// Both edges of the straddling word are more than 3s from the boundary.
	clip := qcClip(100, 145, []types.WordTiming{
		{Word: "monologue", Start: 41.5, End: 49.0},
	})

	outcome := p.qcOne(clip)
	assert.Equal(t, OutcomeFail, outcome.kind)
	assert.False(t, clip.QcPassed)
	assert.False(t, clip.RecutApplied)
	// Bounds are never forced into range.
	assert.Equal(t, 100.0, clip.StartSec)
	assert.Equal(t, 145.0, clip.EndSec)
}

func TestQCRecutsDurationAboveMax(t *testing.T) {
	p := newQCPipeline()
	// 77s clip, 2s over max. Both boundaries are clear of words, but the
	// last word ends at 74.8 so pulling the end in 2.2s restores the band.
	clip := qcClip(100, 177, []types.WordTiming{
		{Word: "markets", Start: 0.2, End: 0.8},
		{Word: "invest", Start: 74.1, End: 74.8},
	})

	outcome := p.qcOne(clip)
	assert.Equal(t, OutcomeOK, outcome.kind)
	assert.True(t, clip.QcPassed)
	assert.True(t, clip.RecutApplied)
	assert.Equal(t, 100.0, clip.StartSec)
	assert.InDelta(t, 174.8, clip.EndSec, 1e-9)
	assert.LessOrEqual(t, clip.Duration(), p.maxClipSec())
	assert.GreaterOrEqual(t, clip.Duration(), p.minClipSec())
}

func TestQCRecutsDurationBelowMin(t *testing.T) {
	p := newQCPipeline()
	// 18s clip, 2s under min. The padded pass produces word timing past the
	// end boundary, so extending to the next word edge restores the band.
	clip := qcClip(100, 118, []types.WordTiming{
		{Word: "start", Start: 0.3, End: 0.7},
		{Word: "later", Start: 19.8, End: 20.5},
	})

	outcome := p.qcOne(clip)
	assert.Equal(t, OutcomeOK, outcome.kind)
	assert.True(t, clip.QcPassed)
	assert.True(t, clip.RecutApplied)
	assert.Equal(t, 100.0, clip.StartSec)
	assert.InDelta(t, 120.5, clip.EndSec, 1e-9)
	assert.GreaterOrEqual(t, clip.Duration(), p.minClipSec())
}

func TestQCFailsDurationOutOfRangeNoBoundaryNearby(t *testing.T) {
	p := newQCPipeline()

	// No word edge within 3s can shave 10s off; bounds stay untouched.
	clip := qcClip(100, 185, nil)
	outcome := p.qcOne(clip)
	assert.Equal(t, OutcomeFail, outcome.kind)
	assert.False(t, clip.QcPassed)
	assert.False(t, clip.RecutApplied)
	assert.Equal(t, 100.0, clip.StartSec)
	assert.Equal(t, 185.0, clip.EndSec)

	clip = qcClip(100, 115, nil) // 15s, 5s below min
	outcome = p.qcOne(clip)
	assert.Equal(t, OutcomeFail, outcome.kind)
	assert.False(t, clip.QcPassed)
	assert.False(t, clip.RecutApplied)
}

func TestRunQCOnlyTouchesValidatedClips(t *testing.T) {
	p := newQCPipeline()
	p.clips = []types.ClipCandidate{
		{ClipId: "a", StartSec: 0, EndSec: 45, Stage: types.ClipStageValidated},
		{ClipId: "b", StartSec: 50, EndSec: 95, Stage: types.ClipStageRejectedDiversity},
	}

	report, err := p.runQC(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.OK)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, types.ClipStageQCPassed, p.clips[0].Stage)
	assert.Equal(t, types.ClipStageRejectedDiversity, p.clips[1].Stage)
}
