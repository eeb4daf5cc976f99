// Package recommend scores song metadata to pick a best next song and to
// rank pairwise similarity. Both scorers are stateless over their inputs
// and safe for concurrent use.
package recommend

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/catalog"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"
)

// Empty-result conditions, returned as error values the agent layer can
// render directly.
var (
	ErrNoSongs      = errors.New("no songs available")
	ErrNoCandidates = errors.New("no candidates after excluding the current song")
)

// MissingFieldError is a precondition violation: similarity scoring
// requires the field on both songs and the caller must validate upstream.
type MissingFieldError struct {
	SongID string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("song %s is missing required field %s", e.SongID, e.Field)
}

// Alternative is a runner-up candidate.
type Alternative struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Recommendation is the next-song result for the agent layer.
type Recommendation struct {
	Suggested    catalog.Song  `json:"suggested_song"`
	Confidence   float64       `json:"confidence_score"`
	Reasoning    string        `json:"reasoning"`
	Alternatives []Alternative `json:"alternatives"`
}

// ScoredSong is one entry of a similarity ranking.
type ScoredSong struct {
	Song       catalog.Song `json:"song"`
	Similarity float64      `json:"similarity"`
}

// SimilarResult ranks songs against a reference.
type SimilarResult struct {
	Reference catalog.Song `json:"reference_song"`
	Similar   []ScoredSong `json:"similar_songs"`
}

// Engine scores candidates with the tuning weight tables.
type Engine struct {
	cfg tuning.Config
}

// New builds an engine on the given tables.
func New(cfg tuning.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Next picks the best next song from the library. current, when non-nil,
// is excluded by ID and contributes tempo/key/genre affinity; the mood
// and energy preferences contribute their bonuses when they match.
// Optional fields absent on either side silently skip their bonus.
func (e *Engine) Next(library []catalog.Song, current *catalog.Song, mood, energy string) (*Recommendation, error) {
	if len(library) == 0 {
		return nil, ErrNoSongs
	}

	type scored struct {
		song    catalog.Song
		score   float64
		reasons []string
	}

	var candidates []scored
	for _, song := range library {
		if current != nil && song.ID == current.ID {
			continue
		}
		score, reasons := e.scoreCandidate(song, current, mood, energy)
		candidates = append(candidates, scored{song: song, score: score, reasons: reasons})
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	// Stable: ties keep original library order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	best := candidates[0]
	rec := &Recommendation{
		Suggested:  best.song,
		Confidence: best.score,
		Reasoning:  reasoning(best.song, best.reasons),
	}
	for _, c := range candidates[1:] {
		if len(rec.Alternatives) == e.cfg.Recommend.MaxAlternatives {
			break
		}
		rec.Alternatives = append(rec.Alternatives, Alternative{
			ID:    c.song.ID,
			Title: c.song.Title,
			Score: c.score,
		})
	}
	return rec, nil
}

// scoreCandidate accumulates bonuses in a fixed evaluation order; each
// contributing bonus adds its label to the reasoning.
func (e *Engine) scoreCandidate(song catalog.Song, current *catalog.Song, mood, energy string) (float64, []string) {
	w := e.cfg.Recommend
	score := w.Base
	var reasons []string

	if current != nil {
		if song.TempoBPM != nil && current.TempoBPM != nil {
			diff := math.Abs(*song.TempoBPM - *current.TempoBPM)
			switch {
			case diff <= w.TempoCloseBPM:
				score += w.TempoClose
				reasons = append(reasons, "similar tempo")
			case diff <= w.TempoNearBPM:
				score += w.TempoNear
				reasons = append(reasons, "compatible tempo")
			}
		}
		if song.Key != "" && current.Key != "" && e.cfg.KeysCompatible(current.Key, song.Key) {
			score += w.KeyCompatible
			reasons = append(reasons, "harmonically compatible key")
		}
		if song.Genre != "" && current.Genre != "" && song.Genre == current.Genre {
			score += w.GenreMatch
			reasons = append(reasons, "same genre")
		}
	}

	if mood != "" && song.Mood == mood {
		score += w.MoodMatch
		reasons = append(reasons, "matches requested mood")
	}
	if energy != "" && song.Energy == energy {
		score += w.EnergyMatch
		reasons = append(reasons, "matches requested energy")
	}

	switch song.AudioQuality {
	case catalog.QualityExcellent:
		score += w.QualityExcellent
		reasons = append(reasons, "excellent audio quality")
	case catalog.QualityGood:
		score += w.QualityGood
		reasons = append(reasons, "good audio quality")
	}

	return score, reasons
}

func reasoning(song catalog.Song, reasons []string) string {
	if len(reasons) == 0 {
		return fmt.Sprintf("%q is a solid pick from the library", song.Title)
	}
	return fmt.Sprintf("%q: %s", song.Title, strings.Join(reasons, ", "))
}

// Similar ranks the library against a reference song with the 0-100
// pairwise score. Genre, mood, energy, tempo and key must be present on
// the reference and every candidate; a missing field is a hard error,
// not a skipped bonus.
func (e *Engine) Similar(reference catalog.Song, library []catalog.Song, limit int) (*SimilarResult, error) {
	if err := requireScoringFields(reference); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	var ranked []ScoredSong
	for _, song := range library {
		if song.ID == reference.ID {
			continue
		}
		if err := requireScoringFields(song); err != nil {
			return nil, err
		}
		ranked = append(ranked, ScoredSong{Song: song, Similarity: e.similarity(reference, song)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return &SimilarResult{Reference: reference, Similar: ranked}, nil
}

// similarity scores b against a. The key lookup runs a→b on the directed
// graph, so similarity(a, b) and similarity(b, a) can differ.
func (e *Engine) similarity(a, b catalog.Song) float64 {
	w := e.cfg.Similarity
	var score float64

	if a.Genre == b.Genre {
		score += w.GenreMatch
	}
	if a.Mood == b.Mood {
		score += w.MoodMatch
	}
	if a.Energy == b.Energy {
		score += w.EnergyMatch
	}
	diff := math.Abs(*a.TempoBPM - *b.TempoBPM)
	score += math.Max(0, w.TempoMax-diff*w.TempoPerBPM)
	if e.cfg.KeysCompatible(a.Key, b.Key) {
		score += w.KeyCompatible
	}
	return score
}

func requireScoringFields(song catalog.Song) error {
	switch {
	case song.Genre == "":
		return &MissingFieldError{SongID: song.ID, Field: "genre"}
	case song.Mood == "":
		return &MissingFieldError{SongID: song.ID, Field: "mood"}
	case song.Energy == "":
		return &MissingFieldError{SongID: song.ID, Field: "energy"}
	case song.TempoBPM == nil:
		return &MissingFieldError{SongID: song.ID, Field: "tempo_bpm"}
	case song.Key == "":
		return &MissingFieldError{SongID: song.ID, Field: "key"}
	}
	return nil
}
