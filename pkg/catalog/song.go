// Package catalog owns the song record contract shared with the storage
// and agent layers, and the SQLite-backed library store.
package catalog

import "github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"

// Audio quality labels, best first.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
)

// Song is the metadata record the scoring and curation code consumes.
// Required: ID, Title, Genre, Mood, Energy. The rest is optional; absent
// numeric fields are nil pointers, absent strings are empty. The core
// treats each Song as an immutable input per call.
type Song struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Genre           string   `json:"genre"`
	Mood            string   `json:"mood"`
	Energy          string   `json:"energy"`
	TempoBPM        *float64 `json:"tempo_bpm,omitempty"`
	Key             string   `json:"key,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	AudioQuality    string   `json:"audio_quality,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	AudioURL        string   `json:"audio_url,omitempty"`
}

// Duration returns the song length in seconds, falling back to the given
// default when unset.
func (s Song) Duration(fallback float64) float64 {
	if s.DurationSeconds != nil && *s.DurationSeconds > 0 {
		return *s.DurationSeconds
	}
	return fallback
}

// EnergyRank orders the three-level energy domain: low 0, medium 1,
// high 2. Unknown values rank as medium.
func EnergyRank(energy string) int {
	switch energy {
	case tuning.EnergyLow:
		return 0
	case tuning.EnergyHigh:
		return 2
	default:
		return 1
	}
}

// QualityRank orders audio quality for selection: excellent 3, good 2,
// fair 1, unrated 0.
func QualityRank(quality string) int {
	switch quality {
	case QualityExcellent:
		return 3
	case QualityGood:
		return 2
	case QualityFair:
		return 1
	default:
		return 0
	}
}
