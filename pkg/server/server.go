// Package server exposes the catalog intelligence over an Echo HTTP API.
package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/cache"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/catalog"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/curate"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/recommend"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"
)

// Server wires the engines behind HTTP handlers.
type Server struct {
	store   *catalog.Store
	cache   *cache.Store
	engine  *recommend.Engine
	curator *curate.Curator
	log     zerolog.Logger
}

// New builds a Server over an opened catalog and analysis cache.
func New(store *catalog.Store, cacheStore *cache.Store, cfg tuning.Config, log zerolog.Logger) *Server {
	return &Server{
		store:   store,
		cache:   cacheStore,
		engine:  recommend.New(cfg),
		curator: curate.New(cfg),
		log:     log.With().Str("component", "server").Logger(),
	}
}

// Run starts the server on addr and blocks until it stops.
func (s *Server) Run(addr string) error {
	s.log.Info().Str("addr", addr).Msg("listening")
	return s.routes().Start(addr)
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/api/songs", s.listSongs)
	e.POST("/api/recommend", s.recommendNext)
	e.POST("/api/similar", s.findSimilar)
	e.POST("/api/album", s.curateAlbum)
	e.POST("/api/setlist", s.buildSetlist)
	e.POST("/api/flow", s.analyzeFlow)
	e.GET("/api/cache/stats", s.cacheStats)
	e.DELETE("/api/cache", s.clearCache)

	return e
}

type recommendRequest struct {
	CurrentSongID string `json:"current_song_id"`
	Mood          string `json:"mood"`
	Energy        string `json:"energy"`
}

type similarRequest struct {
	SongID string `json:"song_id"`
	Limit  int    `json:"limit"`
}

type albumRequest struct {
	Theme         string  `json:"theme"`
	TargetMinutes float64 `json:"target_minutes"`
}

type setlistRequest struct {
	TargetMinutes float64 `json:"target_minutes"`
	EnergyFlow    string  `json:"energy_flow"`
}

type flowRequest struct {
	SongIDs []string `json:"song_ids"`
}

func (s *Server) listSongs(c echo.Context) error {
	songs, err := s.store.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, songs)
}

func (s *Server) recommendNext(c echo.Context) error {
	var req recommendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	songs, err := s.store.List(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var current *catalog.Song
	if req.CurrentSongID != "" {
		song, err := s.store.Get(ctx, req.CurrentSongID)
		if err != nil {
			return songError(err)
		}
		current = &song
	}

	rec, err := s.engine.Next(songs, current, req.Mood, req.Energy)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) findSimilar(c echo.Context) error {
	var req similarRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SongID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "song_id is required")
	}

	ctx := c.Request().Context()
	reference, err := s.store.Get(ctx, req.SongID)
	if err != nil {
		return songError(err)
	}
	songs, err := s.store.List(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	result, err := s.engine.Similar(reference, songs, req.Limit)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) curateAlbum(c echo.Context) error {
	var req albumRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	songs, err := s.store.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	album, err := s.curator.Album(songs, req.Theme, req.TargetMinutes)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, album)
}

func (s *Server) buildSetlist(c echo.Context) error {
	var req setlistRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	songs, err := s.store.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	setlist, err := s.curator.Setlist(songs, req.TargetMinutes, req.EnergyFlow)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, setlist)
}

func (s *Server) analyzeFlow(c echo.Context) error {
	var req flowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	songs := make([]catalog.Song, 0, len(req.SongIDs))
	for _, id := range req.SongIDs {
		song, err := s.store.Get(ctx, id)
		if err != nil {
			return songError(err)
		}
		songs = append(songs, song)
	}

	analysis, err := s.curator.Flow(songs)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, analysis)
}

func (s *Server) cacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.cache.Stats())
}

func (s *Server) clearCache(c echo.Context) error {
	s.cache.Clear()
	return c.NoContent(http.StatusNoContent)
}

// songError maps catalog lookup failures to HTTP status codes.
func songError(err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// engineError maps recommendation and curation failures to HTTP status
// codes. Malformed catalog data is the caller's problem (400); an empty
// or unmatchable library is a state the request cannot fix (422).
func engineError(err error) error {
	var missing *recommend.MissingFieldError
	var badFlow *curate.UnknownFlowError
	var noMatch *curate.NoMatchError
	switch {
	case errors.As(err, &missing), errors.As(err, &badFlow):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &noMatch),
		errors.Is(err, recommend.ErrNoSongs),
		errors.Is(err, recommend.ErrNoCandidates),
		errors.Is(err, curate.ErrNoSongs),
		errors.Is(err, curate.ErrTooFewSongs):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
