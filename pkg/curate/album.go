// Package curate selects and sequences songs: theme-filtered albums that
// fit a duration budget, transition-quality analysis, and live setlists
// under named energy-flow strategies. Everything here is stateless over
// its inputs.
package curate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/catalog"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"
)

// Empty-result conditions, returned as values for the agent layer.
var (
	ErrNoSongs     = errors.New("no songs available")
	ErrTooFewSongs = errors.New("need at least 2 songs for flow analysis")
)

// NoMatchError reports a theme that filtered the library down to nothing.
type NoMatchError struct {
	Theme string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no songs match theme %q", e.Theme)
}

// TrackListing is one positioned track of an album or analysis.
type TrackListing struct {
	Position        int     `json:"position"`
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Genre           string  `json:"genre,omitempty"`
	Energy          string  `json:"energy"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Album is the curated result for the agent layer.
type Album struct {
	Name                 string         `json:"album_name"`
	Theme                string         `json:"theme,omitempty"`
	TotalDurationMinutes float64        `json:"total_duration_minutes"`
	TrackCount           int            `json:"track_count"`
	Tracks               []TrackListing `json:"tracks"`
	CurationNotes        []string       `json:"curation_notes"`
}

// Curator builds albums and setlists with the tuning tables.
type Curator struct {
	cfg tuning.Config
}

// New builds a curator on the given tables.
func New(cfg tuning.Config) *Curator {
	return &Curator{cfg: cfg}
}

// Album filters the library by theme, fits the duration budget, orders
// the selection for energy flow and emits the album with curation notes.
// targetMinutes <= 0 uses the default budget.
func (c *Curator) Album(library []catalog.Song, theme string, targetMinutes float64) (*Album, error) {
	if len(library) == 0 {
		return nil, ErrNoSongs
	}
	if targetMinutes <= 0 {
		targetMinutes = c.cfg.Selection.DefaultAlbumMinutes
	}

	pool := library
	if theme != "" {
		pool = filterTheme(library, theme)
		if len(pool) == 0 {
			return nil, &NoMatchError{Theme: theme}
		}
	}

	target := targetMinutes * 60
	selected := c.fitDuration(c.orderForSelection(pool, target), target)
	ordered := c.orderForFlow(selected)

	album := &Album{
		Name:       albumName(theme, ordered),
		Theme:      theme,
		TrackCount: len(ordered),
	}
	var total float64
	for i, song := range ordered {
		dur := song.Duration(c.cfg.Selection.DefaultDurationSeconds)
		total += dur
		album.Tracks = append(album.Tracks, TrackListing{
			Position:        i + 1,
			ID:              song.ID,
			Title:           song.Title,
			Genre:           song.Genre,
			Energy:          song.Energy,
			DurationSeconds: dur,
		})
	}
	album.TotalDurationMinutes = math.Round(total/60*10) / 10
	album.CurationNotes = c.curationNotes(theme, total, ordered)

	return album, nil
}

// filterTheme keeps songs whose genre, mood or any tag contains the theme
// string or any individual theme word, case-insensitively.
func filterTheme(library []catalog.Song, theme string) []catalog.Song {
	needles := append([]string{strings.ToLower(theme)}, strings.Fields(strings.ToLower(theme))...)

	matches := func(field string) bool {
		field = strings.ToLower(field)
		for _, n := range needles {
			if n != "" && strings.Contains(field, n) {
				return true
			}
		}
		return false
	}

	var out []catalog.Song
	for _, song := range library {
		if matches(song.Genre) || matches(song.Mood) {
			out = append(out, song)
			continue
		}
		for _, t := range song.Tags {
			if matches(t) {
				out = append(out, song)
				break
			}
		}
	}
	return out
}

// orderForSelection sorts candidates by audio-quality rank, then by how
// close each track's length sits to the budget, keeping library order for
// ties.
func (c *Curator) orderForSelection(pool []catalog.Song, targetSeconds float64) []catalog.Song {
	ordered := make([]catalog.Song, len(pool))
	copy(ordered, pool)
	sort.SliceStable(ordered, func(i, j int) bool {
		qi, qj := catalog.QualityRank(ordered[i].AudioQuality), catalog.QualityRank(ordered[j].AudioQuality)
		if qi != qj {
			return qi > qj
		}
		di := math.Abs(targetSeconds - ordered[i].Duration(c.cfg.Selection.DefaultDurationSeconds))
		dj := math.Abs(targetSeconds - ordered[j].Duration(c.cfg.Selection.DefaultDurationSeconds))
		return di < dj
	})
	return ordered
}

// fitDuration greedily accepts tracks while the running total stays within
// MaxFill of the target, stopping once MinFill is reached. The result
// never exceeds 110% of the budget and reaches 90% whenever the pool
// allows it.
func (c *Curator) fitDuration(ordered []catalog.Song, targetSeconds float64) []catalog.Song {
	var selected []catalog.Song
	var total float64
	for _, song := range ordered {
		if total >= c.cfg.Selection.MinFill*targetSeconds {
			break
		}
		dur := song.Duration(c.cfg.Selection.DefaultDurationSeconds)
		if total+dur <= c.cfg.Selection.MaxFill*targetSeconds {
			selected = append(selected, song)
			total += dur
		}
	}
	return selected
}

// orderForFlow sequences tracks so consecutive energy levels alternate
// when an alternative exists. The remaining pool is an indexable arena
// with removal by position, so structurally identical songs are never
// confused. Seeded with a medium-energy track, falling back to high.
func (c *Curator) orderForFlow(tracks []catalog.Song) []catalog.Song {
	remaining := make([]catalog.Song, len(tracks))
	copy(remaining, tracks)

	takeAt := func(i int) catalog.Song {
		t := remaining[i]
		remaining = append(remaining[:i], remaining[i+1:]...)
		return t
	}
	firstWithEnergy := func(energy string) int {
		for i, s := range remaining {
			if s.Energy == energy {
				return i
			}
		}
		return -1
	}

	if len(remaining) == 0 {
		return nil
	}

	seed := firstWithEnergy(tuning.EnergyMedium)
	if seed == -1 {
		seed = firstWithEnergy(tuning.EnergyHigh)
	}
	if seed == -1 {
		seed = 0
	}

	ordered := []catalog.Song{takeAt(seed)}
	scanOrder := []string{tuning.EnergyLow, tuning.EnergyMedium, tuning.EnergyHigh}

	for len(remaining) > 0 {
		prev := ordered[len(ordered)-1].Energy
		next := -1
		for _, energy := range scanOrder {
			if energy == prev {
				continue
			}
			if i := firstWithEnergy(energy); i != -1 {
				next = i
				break
			}
		}
		if next == -1 {
			next = 0 // only same-energy tracks left
		}
		ordered = append(ordered, takeAt(next))
	}
	return ordered
}

func albumName(theme string, tracks []catalog.Song) string {
	if theme != "" {
		return titleCase(theme) + " Collection"
	}
	if genre := dominantGenre(tracks); genre != "" {
		return titleCase(genre) + " Mix"
	}
	return "Mixtape"
}

func (c *Curator) curationNotes(theme string, totalSeconds float64, tracks []catalog.Song) []string {
	notes := []string{
		fmt.Sprintf("runtime %.1f minutes across %d tracks", totalSeconds/60, len(tracks)),
	}
	if theme != "" {
		notes = append([]string{fmt.Sprintf("curated around the theme %q", theme)}, notes...)
	}

	energies := make([]string, len(tracks))
	for i, t := range tracks {
		energies[i] = t.Energy
	}
	notes = append(notes, "energy progression: "+strings.Join(energies, " -> "))

	genres := genreSet(tracks)
	switch {
	case len(genres) == 1:
		notes = append(notes, fmt.Sprintf("a pure %s record", genres[0]))
	case len(genres) > 1:
		notes = append(notes, "blends "+strings.Join(genres, ", "))
	}
	return notes
}

// dominantGenre returns the most frequent non-empty genre, earliest-seen
// winning ties.
func dominantGenre(tracks []catalog.Song) string {
	counts := map[string]int{}
	var order []string
	for _, t := range tracks {
		if t.Genre == "" {
			continue
		}
		if counts[t.Genre] == 0 {
			order = append(order, t.Genre)
		}
		counts[t.Genre]++
	}
	best := ""
	for _, g := range order {
		if best == "" || counts[g] > counts[best] {
			best = g
		}
	}
	return best
}

func genreSet(tracks []catalog.Song) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range tracks {
		if t.Genre != "" && !seen[t.Genre] {
			seen[t.Genre] = true
			out = append(out, t.Genre)
		}
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
