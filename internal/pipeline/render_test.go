package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoclipper/internal/types"
)

func TestSnapBoundaries(t *testing.T) {
	words := []types.WordTiming{
		{Word: "hello", Start: 0.4, End: 0.9},
		{Word: "world", Start: 1.0, End: 1.5},
		{Word: "bye", Start: 43.8, End: 44.3},
	}

	startTrim, endTrim := snapBoundaries(words, 45)
	assert.InDelta(t, 0.4, startTrim, 1e-9)
	assert.InDelta(t, 0.7, endTrim, 1e-9)
}

func TestSnapBoundariesOutsideWindowLeftAlone(t *testing.T) {
	words := []types.WordTiming{
		{Word: "late", Start: 2.5, End: 3.0},
		{Word: "early", Start: 40.0, End: 40.6},
	}
	startTrim, endTrim := snapBoundaries(words, 45)
	assert.Equal(t, 0.0, startTrim)
	assert.Equal(t, 0.0, endTrim)
}

func TestTrimFillers(t *testing.T) {
	fillers := []string{"um", "uh", "so"}
	words := []types.WordTiming{
		{Word: "Um,", Start: 0.0, End: 0.3},
		{Word: "so", Start: 0.4, End: 0.6},
		{Word: "markets", Start: 0.8, End: 1.4},
		{Word: "crash", Start: 1.5, End: 2.0},
		{Word: "uh", Start: 44.2, End: 44.5},
	}

	startTrim, endTrim := trimFillers(words, 45, 0, 0, fillers)
	assert.InDelta(t, 0.8, startTrim, 1e-9)
	assert.InDelta(t, 0.8, endTrim, 1e-9) // 45 - 44.2
}

func TestTrimFillersKeepsContentWords(t *testing.T) {
	words := []types.WordTiming{
		{Word: "markets", Start: 0.0, End: 0.6},
		{Word: "crash", Start: 0.7, End: 1.2},
	}
	startTrim, endTrim := trimFillers(words, 45, 0, 0, []string{"um"})
	assert.Equal(t, 0.0, startTrim)
	assert.Equal(t, 0.0, endTrim)
}

func TestBuildSRT(t *testing.T) {
	words := []types.WordTiming{
		{Word: "markets", Start: 0.0, End: 0.5},
		{Word: "always", Start: 0.6, End: 1.1},
		{Word: "recover", Start: 1.2, End: 1.9},
	}

	srt := BuildSRT(words, 45)
	blocks := strings.Split(strings.TrimSpace(srt), "\n\n")
	require.Len(t, blocks, 3)

	assert.Contains(t, blocks[0], "1\n00:00:00,000 --> 00:00:00,500\nMARKETS")
	assert.Contains(t, blocks[1], "ALWAYS")
	assert.Contains(t, blocks[2], "RECOVER")
}

func TestBuildSRTClampsBoundaryWords(t *testing.T) {
	words := []types.WordTiming{
		{Word: "cut", Start: -0.4, End: 0.3},
		{Word: "gone", Start: -1.0, End: -0.2},
		{Word: "tail", Start: 44.8, End: 45.6},
		{Word: "dropped", Start: 45.2, End: 45.9},
	}

	srt := BuildSRT(words, 45)
	assert.Contains(t, srt, "00:00:00,000 --> 00:00:00,300\nCUT")
	assert.Contains(t, srt, "00:00:44,800 --> 00:00:45,000\nTAIL")
	assert.NotContains(t, srt, "GONE")
	assert.NotContains(t, srt, "DROPPED")
}
