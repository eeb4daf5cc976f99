package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/catalog"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"
)

func ptr[T any](v T) *T { return &v }

func newTestEngine() *Engine {
	return New(tuning.Default())
}

func fullSong(id string) catalog.Song {
	return catalog.Song{
		ID:       id,
		Title:    "Song " + id,
		Genre:    "Rock",
		Mood:     "energetic",
		Energy:   "high",
		TempoBPM: ptr(120.0),
		Key:      "C Major",
	}
}

func TestNext_EmptyLibrary(t *testing.T) {
	_, err := newTestEngine().Next(nil, nil, "", "")
	assert.ErrorIs(t, err, ErrNoSongs)
}

func TestNext_OnlyCurrentSong(t *testing.T) {
	current := fullSong("a")
	_, err := newTestEngine().Next([]catalog.Song{current}, &current, "", "")
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestNext_FullMatchScore(t *testing.T) {
	e := newTestEngine()
	current := fullSong("current")

	// Close tempo, compatible key, same genre, matching mood:
	// 50 + 20 + 25 + 15 + 30 = 140.
	match := fullSong("match")
	match.TempoBPM = ptr(125.0)
	match.Key = "G Major"

	rec, err := e.Next([]catalog.Song{match}, &current, "energetic", "")
	require.NoError(t, err)
	assert.Equal(t, "match", rec.Suggested.ID)
	assert.Equal(t, 140.0, rec.Confidence)
	assert.Contains(t, rec.Reasoning, "similar tempo")
	assert.Contains(t, rec.Reasoning, "harmonically compatible key")
	assert.Contains(t, rec.Reasoning, "same genre")
	assert.Contains(t, rec.Reasoning, "matches requested mood")
}

func TestNext_TempoTiers(t *testing.T) {
	e := newTestEngine()
	current := catalog.Song{ID: "c", Title: "C", TempoBPM: ptr(100.0)}

	close := catalog.Song{ID: "close", Title: "Close", TempoBPM: ptr(115.0)}
	near := catalog.Song{ID: "near", Title: "Near", TempoBPM: ptr(135.0)}
	far := catalog.Song{ID: "far", Title: "Far", TempoBPM: ptr(160.0)}

	rec, err := e.Next([]catalog.Song{far, near, close}, &current, "", "")
	require.NoError(t, err)

	assert.Equal(t, "close", rec.Suggested.ID)
	assert.Equal(t, 70.0, rec.Confidence)
	require.Len(t, rec.Alternatives, 2)
	assert.Equal(t, "near", rec.Alternatives[0].ID)
	assert.Equal(t, 60.0, rec.Alternatives[0].Score)
	assert.Equal(t, "far", rec.Alternatives[1].ID)
	assert.Equal(t, 50.0, rec.Alternatives[1].Score)
}

func TestNext_NoPreferencesNoCurrent(t *testing.T) {
	e := newTestEngine()

	// Without context everything scores base; quality breaks the tie.
	plain := catalog.Song{ID: "plain", Title: "Plain"}
	good := catalog.Song{ID: "good", Title: "Good", AudioQuality: catalog.QualityGood}

	rec, err := e.Next([]catalog.Song{plain, good}, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "good", rec.Suggested.ID)
	assert.Equal(t, 55.0, rec.Confidence)
	assert.Contains(t, rec.Reasoning, "good audio quality")
}

func TestNext_AlternativesCapped(t *testing.T) {
	e := newTestEngine()
	var library []catalog.Song
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		library = append(library, catalog.Song{ID: id, Title: id})
	}

	rec, err := e.Next(library, nil, "", "")
	require.NoError(t, err)
	assert.Len(t, rec.Alternatives, 3)
}

func TestNext_MissingFieldsSkipBonuses(t *testing.T) {
	e := newTestEngine()
	current := catalog.Song{ID: "c", Title: "C"} // no tempo, key, or genre

	song := fullSong("a")
	rec, err := e.Next([]catalog.Song{song}, &current, "", "")
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec.Confidence)
}

func TestSimilar_Ranking(t *testing.T) {
	e := newTestEngine()
	ref := fullSong("ref")

	twin := fullSong("twin") // same everything, key C->C not adjacent
	cousin := fullSong("cousin")
	cousin.Genre = "Folk"
	cousin.Mood = "calm"
	stranger := fullSong("stranger")
	stranger.Genre = "Jazz"
	stranger.Mood = "moody"
	stranger.Energy = "low"
	stranger.TempoBPM = ptr(70.0)
	stranger.Key = "D Major"

	result, err := e.Similar(ref, []catalog.Song{stranger, cousin, twin, ref}, 0)
	require.NoError(t, err)
	assert.Equal(t, "ref", result.Reference.ID)
	require.Len(t, result.Similar, 3)

	// genre 30 + mood 25 + energy 20 + tempo 15 = 90, no key bonus for C->C.
	assert.Equal(t, "twin", result.Similar[0].Song.ID)
	assert.Equal(t, 90.0, result.Similar[0].Similarity)
	assert.Equal(t, "cousin", result.Similar[1].Song.ID)
	assert.Equal(t, 35.0, result.Similar[1].Similarity)
	// tempo credit exhausted past 150 BPM of difference: max(0, 15-50*0.1)=10.
	assert.Equal(t, "stranger", result.Similar[2].Song.ID)
	assert.Equal(t, 10.0, result.Similar[2].Similarity)
}

func TestSimilar_KeyDirectionMatters(t *testing.T) {
	// A one-way edge in the compatibility table only pays the key bonus
	// when scoring in the reference-to-candidate direction.
	cfg := tuning.Default()
	cfg.Keys = map[string][]string{"C Major": {"G Major"}}
	e := New(cfg)

	a := fullSong("a")
	a.Key = "C Major"
	b := fullSong("b")
	b.Key = "G Major"

	fwd, err := e.Similar(a, []catalog.Song{b}, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, fwd.Similar[0].Similarity)

	rev, err := e.Similar(b, []catalog.Song{a}, 0)
	require.NoError(t, err)
	assert.Equal(t, 90.0, rev.Similar[0].Similarity)
}

func TestSimilar_Limit(t *testing.T) {
	e := newTestEngine()
	ref := fullSong("ref")

	var library []catalog.Song
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		library = append(library, fullSong(id))
	}

	result, err := e.Similar(ref, library, 0)
	require.NoError(t, err)
	assert.Len(t, result.Similar, 5, "default limit")

	result, err = e.Similar(ref, library, 2)
	require.NoError(t, err)
	assert.Len(t, result.Similar, 2)
}

func TestSimilar_MissingFieldIsHardError(t *testing.T) {
	e := newTestEngine()
	ref := fullSong("ref")

	broken := fullSong("broken")
	broken.TempoBPM = nil

	_, err := e.Similar(ref, []catalog.Song{broken}, 0)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "broken", missing.SongID)
	assert.Equal(t, "tempo_bpm", missing.Field)

	ref.Mood = ""
	_, err = e.Similar(ref, nil, 0)
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "ref", missing.SongID)
	assert.Equal(t, "mood", missing.Field)
}
