package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/audio"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	song := Song{
		ID:              "s1",
		Title:           "Midnight Run",
		Genre:           "Rock",
		Mood:            "energetic",
		Energy:          "high",
		TempoBPM:        ptr(128.0),
		Key:             "G Major",
		DurationSeconds: ptr(215.0),
		AudioQuality:    QualityExcellent,
		Tags:            []string{"The Band", "First Album"},
		AudioURL:        "/music/midnight_run.mp3",
	}
	require.NoError(t, s.Upsert(ctx, song))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, song, got)
}

func TestUpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, Song{ID: "s1", Title: "First", Energy: "low"}))
	require.NoError(t, s.Upsert(ctx, Song{ID: "s1", Title: "Second", Energy: "high", Genre: "Folk"}))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Title)
	assert.Equal(t, "high", got.Energy)
	assert.Equal(t, "Folk", got.Genre)

	songs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, songs, 1)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEmptyAndOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	songs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, songs)

	require.NoError(t, s.Upsert(ctx, Song{ID: "a", Title: "A", Energy: "medium"}))
	require.NoError(t, s.Upsert(ctx, Song{ID: "b", Title: "B", Energy: "medium"}))

	songs, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "a", songs[0].ID)
	assert.Equal(t, "b", songs[1].ID)
}

func TestApplyAnalysis(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, Song{ID: "s1", Title: "Untagged", Energy: "medium"}))

	rec := &audio.Record{
		BPM:             ptr(96.0),
		Key:             ptr("D"),
		Energy:          "high",
		DurationSeconds: ptr(180.0),
	}
	require.NoError(t, s.ApplyAnalysis(ctx, "s1", rec))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.TempoBPM)
	assert.Equal(t, 96.0, *got.TempoBPM)
	assert.Equal(t, "D Major", got.Key)
	assert.Equal(t, "high", got.Energy)
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, 180.0, *got.DurationSeconds)
}

func TestApplyAnalysisKeepsCatalogKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A key set by hand wins over the estimated one.
	require.NoError(t, s.Upsert(ctx, Song{ID: "s1", Title: "Tagged", Energy: "medium", Key: "E Minor"}))
	require.NoError(t, s.ApplyAnalysis(ctx, "s1", &audio.Record{Key: ptr("D"), Energy: "low"}))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "E Minor", got.Key)
	assert.Equal(t, "low", got.Energy)
}

func TestApplyAnalysisIgnoresDegraded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, Song{ID: "s1", Title: "Song", Energy: "high", TempoBPM: ptr(120.0)}))
	require.NoError(t, s.ApplyAnalysis(ctx, "s1", audio.Degraded("decode failed")))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "high", got.Energy)
	require.NotNil(t, got.TempoBPM)
	assert.Equal(t, 120.0, *got.TempoBPM)
}

func TestSongDuration(t *testing.T) {
	assert.Equal(t, 215.0, Song{DurationSeconds: ptr(215.0)}.Duration(210))
	assert.Equal(t, 210.0, Song{}.Duration(210))
	assert.Equal(t, 210.0, Song{DurationSeconds: ptr(0.0)}.Duration(210))
}

func TestEnergyAndQualityRank(t *testing.T) {
	assert.Equal(t, 0, EnergyRank("low"))
	assert.Equal(t, 1, EnergyRank("medium"))
	assert.Equal(t, 2, EnergyRank("high"))
	assert.Equal(t, 1, EnergyRank("weird"))

	assert.Equal(t, 3, QualityRank(QualityExcellent))
	assert.Equal(t, 2, QualityRank(QualityGood))
	assert.Equal(t, 1, QualityRank(QualityFair))
	assert.Equal(t, 0, QualityRank(""))
}
