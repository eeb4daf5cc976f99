package curate

import (
	"fmt"
	"math"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/catalog"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"
)

// Named energy-flow strategies for setlists.
const (
	FlowBuilding   = "building"   // low, then medium, then high
	FlowConsistent = "consistent" // anchored on medium
	FlowVaried     = "varied"     // round-robin across levels
)

// UnknownFlowError reports an energy-flow name outside the strategy set.
type UnknownFlowError struct {
	Flow string
}

func (e *UnknownFlowError) Error() string {
	return fmt.Sprintf("unknown energy flow %q", e.Flow)
}

// SetlistSong is one positioned setlist entry with its performance note.
type SetlistSong struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Energy   string `json:"energy"`
	Note     string `json:"note"`
}

// Setlist is the live-set result for the agent layer.
type Setlist struct {
	Name            string        `json:"setlist_name"`
	DurationMinutes float64       `json:"duration_minutes"`
	EnergyFlow      string        `json:"energy_flow"`
	Songs           []SetlistSong `json:"songs"`
	Notes           []string      `json:"setlist_notes"`
}

// Setlist builds a live set under the named energy-flow strategy.
// targetMinutes <= 0 uses the default; an empty flow means varied.
// The candidate pool is ordered by the strategy, then the same greedy
// duration fit as albums trims it to the time slot.
func (c *Curator) Setlist(library []catalog.Song, targetMinutes float64, energyFlow string) (*Setlist, error) {
	if len(library) == 0 {
		return nil, ErrNoSongs
	}
	if targetMinutes <= 0 {
		targetMinutes = c.cfg.Selection.DefaultSetlistMinutes
	}
	if energyFlow == "" {
		energyFlow = FlowVaried
	}

	pool, err := orderPool(library, energyFlow)
	if err != nil {
		return nil, err
	}
	selected := c.fitDuration(pool, targetMinutes*60)

	set := &Setlist{
		Name:       fmt.Sprintf("%.0f-Minute %s Set", targetMinutes, titleCase(energyFlow)),
		EnergyFlow: energyFlow,
	}
	var total float64
	for i, song := range selected {
		total += song.Duration(c.cfg.Selection.DefaultDurationSeconds)
		note := performanceNote(i, len(selected), song.Energy)
		set.Songs = append(set.Songs, SetlistSong{
			Position: i + 1,
			ID:       song.ID,
			Title:    song.Title,
			Energy:   song.Energy,
			Note:     note,
		})
		set.Notes = append(set.Notes, fmt.Sprintf("%d. %s: %s", i+1, song.Title, note))
	}
	set.DurationMinutes = math.Round(total/60*10) / 10

	return set, nil
}

// orderPool arranges the library into the strategy's candidate order.
// This is deliberately not the album flow ordering: setlist pools may
// repeat energy levels back to back.
func orderPool(library []catalog.Song, energyFlow string) ([]catalog.Song, error) {
	var low, medium, high []catalog.Song
	for _, song := range library {
		switch song.Energy {
		case tuning.EnergyLow:
			low = append(low, song)
		case tuning.EnergyHigh:
			high = append(high, song)
		default:
			medium = append(medium, song)
		}
	}

	switch energyFlow {
	case FlowBuilding:
		return concat(low, medium, high), nil
	case FlowConsistent:
		return concat(medium, high, low), nil
	case FlowVaried:
		return roundRobin(medium, high, low), nil
	default:
		return nil, &UnknownFlowError{Flow: energyFlow}
	}
}

func concat(groups ...[]catalog.Song) []catalog.Song {
	var out []catalog.Song
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// roundRobin interleaves one song from each bucket per round, skipping
// buckets that run out.
func roundRobin(buckets ...[]catalog.Song) []catalog.Song {
	var out []catalog.Song
	for i := 0; ; i++ {
		took := false
		for _, b := range buckets {
			if i < len(b) {
				out = append(out, b[i])
				took = true
			}
		}
		if !took {
			return out
		}
	}
}

// performanceNote picks the per-position stage direction. i is zero-based;
// the mid-set anchor sits at the integer-divide midpoint.
func performanceNote(i, total int, energy string) string {
	switch {
	case i == 0:
		return "opener, set the tone"
	case i == total-1:
		return "closer, leave them wanting more"
	case i == total/2:
		return "mid-set anchor"
	}
	switch energy {
	case tuning.EnergyHigh:
		return "get the crowd moving"
	case tuning.EnergyLow:
		return "breather, let the room reset"
	default:
		return "keep momentum"
	}
}
