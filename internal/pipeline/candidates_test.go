package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoclipper/internal/types"
)

func TestChooseStrategy(t *testing.T) {
	two := []types.Chapter{{StartSec: 0, EndSec: 60}, {StartSec: 60, EndSec: 120}}

	assert.Equal(t, types.StrategyChapter, ChooseStrategy(&types.ProbeResult{DurationSec: 120, Chapters: two}))
	assert.Equal(t, types.StrategySilence, ChooseStrategy(&types.ProbeResult{DurationSec: 120, Chapters: two[:1]}))
	assert.Equal(t, types.StrategySilence, ChooseStrategy(&types.ProbeResult{DurationSec: 120}))
}

func TestBuildChapterCandidatesMergesShortChapters(t *testing.T) {
	// Five chapters, the 8s one in the middle is shorter than min and must
	// merge forward, leaving four candidates.
	chapters := []types.Chapter{
		{Title: "intro", StartSec: 0, EndSec: 60},
		{Title: "first", StartSec: 60, EndSec: 130},
		{Title: "aside", StartSec: 130, EndSec: 138},
		{Title: "second", StartSec: 138, EndSec: 210},
		{Title: "outro", StartSec: 210, EndSec: 280},
	}

	got := BuildChapterCandidates(chapters, 280, 20)
	require.Len(t, got, 4)

	assert.Equal(t, 130.0, got[2].StartSec)
	assert.Equal(t, 210.0, got[2].EndSec)
	assert.Equal(t, "aside / second", got[2].SourceInfo)

	// Chronological, contiguous indexes, bounds inside the video.
	for i, seg := range got {
		assert.Equal(t, i, seg.RawIndex)
		assert.GreaterOrEqual(t, seg.StartSec, 0.0)
		assert.Greater(t, seg.EndSec, seg.StartSec)
		assert.LessOrEqual(t, seg.EndSec, 280.0)
		if i > 0 {
			assert.GreaterOrEqual(t, seg.StartSec, got[i-1].StartSec)
		}
	}
}

func TestBuildChapterCandidatesShortLastMergesBackward(t *testing.T) {
	chapters := []types.Chapter{
		{Title: "a", StartSec: 0, EndSec: 100},
		{Title: "b", StartSec: 100, EndSec: 200},
		{Title: "outro", StartSec: 200, EndSec: 208},
	}

	got := BuildChapterCandidates(chapters, 208, 20)
	require.Len(t, got, 2)
	assert.Equal(t, 100.0, got[1].StartSec)
	assert.Equal(t, 208.0, got[1].EndSec)
}

func TestBuildChapterCandidatesClampsToDuration(t *testing.T) {
	chapters := []types.Chapter{
		{Title: "a", StartSec: 0, EndSec: 90},
		{Title: "b", StartSec: 90, EndSec: 500},
	}
	got := BuildChapterCandidates(chapters, 180, 20)
	require.Len(t, got, 2)
	assert.Equal(t, 180.0, got[1].EndSec)
}

func TestBuildSilenceCandidatesComplements(t *testing.T) {
	silences := []types.SilenceInterval{
		{Start: 30, End: 31},
		{Start: 62, End: 63.5},
	}
	got := BuildSilenceCandidates(silences, 100, 75)
	require.Len(t, got, 3)

	assert.Equal(t, 0.0, got[0].StartSec)
	assert.Equal(t, 30.0, got[0].EndSec)
	assert.Equal(t, 31.0, got[1].StartSec)
	assert.Equal(t, 62.0, got[1].EndSec)
	assert.Equal(t, 63.5, got[2].StartSec)
	assert.Equal(t, 100.0, got[2].EndSec)
}

func TestBuildSilenceCandidatesSplitsLongRunAtInteriorSilence(t *testing.T) {
	// The 0.5s silence at ~80s is too short to close a run, so it stays
	// interior and becomes the split point when the run exceeds max.
	silences := []types.SilenceInterval{
		{Start: 30, End: 31.2},
		{Start: 79.9, End: 80.4},
	}
	got := BuildSilenceCandidates(silences, 140, 75)
	require.Len(t, got, 3)

	for _, seg := range got {
		assert.LessOrEqual(t, seg.Duration(), 75.0)
	}
	// The long run [31.2, 140] split at the interior silence midpoint.
	assert.Equal(t, 31.2, got[1].StartSec)
	assert.InDelta(t, 80.15, got[1].EndSec, 1e-9)
	assert.Equal(t, got[1].EndSec, got[2].StartSec)
	assert.Equal(t, 140.0, got[2].EndSec)
}

func TestBuildSilenceCandidatesNoInteriorSilenceCapsAtMax(t *testing.T) {
	got := BuildSilenceCandidates(nil, 200, 75)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].StartSec)
	assert.Equal(t, 75.0, got[0].EndSec)
}

func TestFallbackCandidate(t *testing.T) {
	got := FallbackCandidate(40, 75)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].StartSec)
	assert.Equal(t, 40.0, got[0].EndSec)

	got = FallbackCandidate(300, 75)
	require.Len(t, got, 1)
	assert.Equal(t, 75.0, got[0].EndSec)
}

func TestNewCandidateSegmentRejectsInvalidBounds(t *testing.T) {
	_, err := types.NewCandidateSegment(-1, 10, 100, types.StrategySilence, "")
	assert.Error(t, err)
	_, err = types.NewCandidateSegment(10, 10, 100, types.StrategySilence, "")
	assert.Error(t, err)
	_, err = types.NewCandidateSegment(10, 101, 100, types.StrategySilence, "")
	assert.Error(t, err)
}
