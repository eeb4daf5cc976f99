package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/cache"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/catalog"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"
)

func ptr[T any](v T) *T { return &v }

func newTestServer(t *testing.T, songs ...catalog.Song) (*Server, *echo.Echo) {
	t.Helper()
	dir := t.TempDir()

	store, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, song := range songs {
		require.NoError(t, store.Upsert(context.Background(), song))
	}

	cacheStore := cache.Open(filepath.Join(dir, "cache.json"), zerolog.Nop())
	s := New(store, cacheStore, tuning.Default(), zerolog.Nop())
	return s, s.routes()
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

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestListSongs(t *testing.T) {
	_, e := newTestServer(t, fullSong("a"), fullSong("b"))

	rec := do(e, http.MethodGet, "/api/songs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var songs []catalog.Song
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &songs))
	assert.Len(t, songs, 2)
}

func TestRecommend(t *testing.T) {
	current := fullSong("current")
	match := fullSong("match")
	match.Key = "G Major"
	_, e := newTestServer(t, current, match)

	rec := do(e, http.MethodPost, "/api/recommend", `{"current_song_id":"current"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Suggested  catalog.Song `json:"suggested_song"`
		Confidence float64      `json:"confidence_score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "match", resp.Suggested.ID)
	assert.Positive(t, resp.Confidence)
}

func TestRecommendEmptyLibrary(t *testing.T) {
	_, e := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/recommend", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRecommendUnknownCurrentSong(t *testing.T) {
	_, e := newTestServer(t, fullSong("a"))

	rec := do(e, http.MethodPost, "/api/recommend", `{"current_song_id":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSimilar(t *testing.T) {
	_, e := newTestServer(t, fullSong("ref"), fullSong("a"), fullSong("b"))

	rec := do(e, http.MethodPost, "/api/similar", `{"song_id":"ref"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reference catalog.Song `json:"reference_song"`
		Similar   []struct {
			Song       catalog.Song `json:"song"`
			Similarity float64      `json:"similarity"`
		} `json:"similar_songs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ref", resp.Reference.ID)
	assert.Len(t, resp.Similar, 2)
}

func TestSimilarMissingField(t *testing.T) {
	broken := fullSong("broken")
	broken.Mood = ""
	_, e := newTestServer(t, fullSong("ref"), broken)

	rec := do(e, http.MethodPost, "/api/similar", `{"song_id":"broken"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimilarRequiresSongID(t *testing.T) {
	_, e := newTestServer(t, fullSong("a"))

	rec := do(e, http.MethodPost, "/api/similar", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlbum(t *testing.T) {
	songs := make([]catalog.Song, 0, 5)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		s := fullSong(id)
		s.DurationSeconds = ptr(180.0)
		songs = append(songs, s)
	}
	_, e := newTestServer(t, songs...)

	rec := do(e, http.MethodPost, "/api/album", `{"theme":"rock","target_minutes":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Name       string `json:"album_name"`
		TrackCount int    `json:"track_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Rock Collection", resp.Name)
	assert.Equal(t, 3, resp.TrackCount)
}

func TestAlbumNoThemeMatch(t *testing.T) {
	_, e := newTestServer(t, fullSong("a"))

	rec := do(e, http.MethodPost, "/api/album", `{"theme":"polka"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSetlist(t *testing.T) {
	songs := make([]catalog.Song, 0, 6)
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		s := fullSong(id)
		s.DurationSeconds = ptr(180.0)
		songs = append(songs, s)
	}
	_, e := newTestServer(t, songs...)

	rec := do(e, http.MethodPost, "/api/setlist", `{"target_minutes":18,"energy_flow":"building"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		EnergyFlow string `json:"energy_flow"`
		Songs      []any  `json:"songs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "building", resp.EnergyFlow)
	assert.Len(t, resp.Songs, 6)
}

func TestSetlistUnknownFlow(t *testing.T) {
	_, e := newTestServer(t, fullSong("a"))

	rec := do(e, http.MethodPost, "/api/setlist", `{"energy_flow":"chaotic"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFlow(t *testing.T) {
	_, e := newTestServer(t, fullSong("a"), fullSong("b"))

	rec := do(e, http.MethodPost, "/api/flow", `{"song_ids":["a","b"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Overall     float64 `json:"overall_flow_score"`
		Rating      string  `json:"flow_rating"`
		Transitions []any   `json:"transitions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Positive(t, resp.Overall)
	assert.NotEmpty(t, resp.Rating)
	assert.Len(t, resp.Transitions, 1)
}

func TestFlowTooFewSongs(t *testing.T) {
	_, e := newTestServer(t, fullSong("a"))

	rec := do(e, http.MethodPost, "/api/flow", `{"song_ids":["a"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCacheStatsAndClear(t *testing.T) {
	s, e := newTestServer(t)
	s.cache.Save("song-1", nil, "")

	rec := do(e, http.MethodGet, "/api/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Entries)

	rec = do(e, http.MethodDelete, "/api/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodGet, "/api/cache/stats", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Entries)
}
