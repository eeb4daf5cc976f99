package curate

import (
	"fmt"
	"math"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/catalog"
)

// Transition scores one adjacent pair of tracks.
type Transition struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Score   float64 `json:"score"`
	Quality string  `json:"quality"`
}

// FlowAnalysis reports transition quality across an ordered tracklist.
type FlowAnalysis struct {
	OverallFlowScore       float64      `json:"overall_flow_score"`
	FlowRating             string       `json:"flow_rating"`
	Transitions            []Transition `json:"transitions"`
	Issues                 []string     `json:"issues"`
	ImprovementSuggestions []string     `json:"improvement_suggestions"`
	TrackOrder             []string     `json:"track_order"`
}

// Flow analyzes every adjacent pair in the given order. Fewer than two
// songs is an explicit error; missing tempos simply skip the tempo signal.
func (c *Curator) Flow(songs []catalog.Song) (*FlowAnalysis, error) {
	if len(songs) < 2 {
		return nil, ErrTooFewSongs
	}

	analysis := &FlowAnalysis{}
	var sum float64

	for i := 1; i < len(songs); i++ {
		prev, next := songs[i-1], songs[i]
		score, issue, suggestion := c.scoreTransition(prev, next)
		sum += score

		// Threshold labels override any label implied along the way.
		analysis.Transitions = append(analysis.Transitions, Transition{
			From:    prev.Title,
			To:      next.Title,
			Score:   score,
			Quality: c.qualityLabel(score),
		})
		if issue != "" {
			analysis.Issues = append(analysis.Issues, issue)
			analysis.ImprovementSuggestions = append(analysis.ImprovementSuggestions, suggestion)
		}
	}

	for _, s := range songs {
		analysis.TrackOrder = append(analysis.TrackOrder, s.Title)
	}
	analysis.OverallFlowScore = math.Round(sum/float64(len(analysis.Transitions))*10) / 10
	analysis.FlowRating = c.qualityLabel(analysis.OverallFlowScore)

	return analysis, nil
}

// scoreTransition rates next following prev, starting from the base
// score. At most one issue is recorded per pair; a tempo jump takes
// precedence over an energy leap.
func (c *Curator) scoreTransition(prev, next catalog.Song) (score float64, issue, suggestion string) {
	w := c.cfg.Transition
	score = w.Base

	if prev.TempoBPM != nil && next.TempoBPM != nil {
		diff := math.Abs(*prev.TempoBPM - *next.TempoBPM)
		switch {
		case diff <= w.TempoTightBPM:
			score += w.TempoTight
		case diff <= w.TempoCloseBPM:
			score += w.TempoClose
		case diff > w.TempoJumpBPM:
			score -= w.TempoJumpPenalty
			issue = fmt.Sprintf("large tempo jump from %q (%.0f BPM) to %q (%.0f BPM)",
				prev.Title, *prev.TempoBPM, next.Title, *next.TempoBPM)
			suggestion = fmt.Sprintf("reorder %q or insert a bridge track between the tempos", next.Title)
		}
	}

	switch distance := abs(catalog.EnergyRank(prev.Energy) - catalog.EnergyRank(next.Energy)); distance {
	case 0:
		score += w.EnergySame
	case 1:
		score += w.EnergyStep
	case 2:
		score -= w.EnergyLeapPenalty
		if issue == "" {
			issue = fmt.Sprintf("abrupt energy change from %q (%s) to %q (%s)",
				prev.Title, prev.Energy, next.Title, next.Energy)
			suggestion = fmt.Sprintf("insert a medium-energy track before %q", next.Title)
		}
	}

	if prev.Genre != "" && prev.Genre == next.Genre {
		score += w.GenreMatch
	}

	return score, issue, suggestion
}

// qualityLabel maps a score onto the excellent/good/fair/poor scale.
func (c *Curator) qualityLabel(score float64) string {
	w := c.cfg.Transition
	switch {
	case score >= w.ExcellentMin:
		return "excellent"
	case score >= w.GoodMin:
		return "good"
	case score >= w.FairMin:
		return "fair"
	default:
		return "poor"
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
