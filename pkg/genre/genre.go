// Package genre maps extracted audio features onto a short ranked list of
// genre hints. The rules are fixed thresholds, not a trained model; the
// hints are suggestions for browsing and curation, nothing more.
package genre

import (
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/audio"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"
)

// Classifier applies the tuning rule table to extracted features.
// It is a pure function of its input and safe for concurrent use.
type Classifier struct {
	cfg tuning.Config
}

// NewClassifier builds a classifier on the given tables.
func NewClassifier(cfg tuning.Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Hints returns at most MaxHints genre hints, deduplicated with first
// occurrence winning. Rules are applied in a fixed order: tempo band,
// spectral brightness, noisiness, then energy extremes. A BPM outside
// every band contributes no tempo hint.
func (c *Classifier) Hints(f audio.Features) []string {
	var hints []string

	if f.BPM > 0 {
		hints = append(hints, c.cfg.TempoHints(f.BPM)...)
	}
	if f.SpectralCentroid > c.cfg.Classifier.BrightCentroidMin {
		hints = append(hints, "Pop")
	}
	if f.ZeroCrossingRate > c.cfg.Classifier.NoisyZCRMin {
		hints = append(hints, "Rock")
	}
	if f.RMS > c.cfg.Classifier.EnergeticRMSMin {
		hints = append(hints, "Energetic")
	}
	if f.RMS < c.cfg.Classifier.AcousticRMSMax {
		hints = append(hints, "Acoustic")
	}

	return dedupe(hints, c.cfg.Classifier.MaxHints)
}

func dedupe(hints []string, max int) []string {
	seen := make(map[string]bool, len(hints))
	out := make([]string, 0, max)
	for _, h := range hints {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
		if len(out) == max {
			break
		}
	}
	return out
}
