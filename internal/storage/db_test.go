package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoclipper/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return NewStore(db)
}

func TestSaveVideoUpserts(t *testing.T) {
	store := newTestStore(t)

	video := &types.SourceVideo{
		VideoId:   "vid-1",
		SourceRef: "https://example.com/watch?v=abc",
		Status:    types.VideoStatusNew,
	}
	require.NoError(t, store.SaveVideo(video))

	video.Title = "updated title"
	video.Status = types.VideoStatusProbing
	require.NoError(t, store.SaveVideo(video))

	got, err := store.GetVideo("vid-1")
	require.NoError(t, err)
	assert.Equal(t, "updated title", got.Title)
	assert.Equal(t, types.VideoStatusProbing, got.Status)

	var count int64
	require.NoError(t, store.db.Model(&types.SourceVideo{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestBumpGeneration(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveVideo(&types.SourceVideo{
		VideoId: "vid-1", SourceRef: "ref", Status: types.VideoStatusNew,
	}))

	g1, err := store.BumpGeneration("vid-1")
	require.NoError(t, err)
	g2, err := store.BumpGeneration("vid-1")
	require.NoError(t, err)
	assert.Equal(t, 1, g1)
	assert.Equal(t, 2, g2)
}

func TestReplaceClipsIsAtomicPerGeneration(t *testing.T) {
	store := newTestStore(t)

	gen1 := []types.ClipCandidate{
		{ClipId: "c1", VideoId: "vid-1", Generation: 1, RawIndex: 0, Stage: types.ClipStageCreated},
		{ClipId: "c2", VideoId: "vid-1", Generation: 1, RawIndex: 1, Stage: types.ClipStageCreated},
	}
	require.NoError(t, store.ReplaceClips("vid-1", 1, gen1))

	// A later stage rewrites the same generation.
	gen1[0].Stage = types.ClipStageScored
	gen1[0].ClipId = "c1"
	require.NoError(t, store.ReplaceClips("vid-1", 1, gen1[:1]))

	clips, err := store.GetClips("vid-1", 1)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, types.ClipStageScored, clips[0].Stage)

	// Other generations are untouched.
	require.NoError(t, store.ReplaceClips("vid-1", 2, []types.ClipCandidate{
		{ClipId: "c3", VideoId: "vid-1", Generation: 2, RawIndex: 0, Stage: types.ClipStageCreated},
	}))
	clips, err = store.GetClips("vid-1", 1)
	require.NoError(t, err)
	assert.Len(t, clips, 1)

	latest, err := store.LatestGeneration("vid-1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest)
}

func TestMarkStaleVideos(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveVideo(&types.SourceVideo{VideoId: "a", SourceRef: "r", Status: types.VideoStatusScoring}))
	require.NoError(t, store.SaveVideo(&types.SourceVideo{VideoId: "b", SourceRef: "r", Status: types.VideoStatusReady}))
	require.NoError(t, store.SaveVideo(&types.SourceVideo{VideoId: "c", SourceRef: "r", Status: types.VideoStatusNew}))

	n, err := store.MarkStaleVideos()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.GetVideo("a")
	require.NoError(t, err)
	assert.Equal(t, types.VideoStatusError, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)

	got, err = store.GetVideo("b")
	require.NoError(t, err)
	assert.Equal(t, types.VideoStatusReady, got.Status)
}
