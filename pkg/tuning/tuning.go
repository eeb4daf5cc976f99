// Package tuning holds the fixed heuristic tables the analysis, scoring and
// curation code runs on: tempo bands, classifier thresholds, the key
// compatibility graph, and scoring weights. The tables are plain data loaded
// once at startup so they can be tuned without touching algorithm code.
package tuning

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variable overrides. Double
// underscores separate nesting levels, e.g. BAND_ENERGY__LOW_MAX=0.03
// overrides energy.low_max.
const EnvPrefix = "BAND_"

// Energy level names shared by song records and analysis records.
const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"
)

// PitchClasses lists the twelve semitone pitch classes in chroma-bin order.
var PitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// EnergyConfig buckets mean RMS energy into the three-level domain.
type EnergyConfig struct {
	LowMax    float64 `koanf:"low_max"`    // rms below this is "low"
	MediumMax float64 `koanf:"medium_max"` // rms below this is "medium", else "high"
}

// TempoBand maps a BPM range to the genre hints it contributes.
// Bands are checked in order and the first match wins, so shared
// boundaries resolve to the earlier band.
type TempoBand struct {
	MinBPM float64  `koanf:"min_bpm"`
	MaxBPM float64  `koanf:"max_bpm"`
	Hints  []string `koanf:"hints"`
}

// ClassifierConfig holds the non-tempo thresholds of the genre heuristic.
type ClassifierConfig struct {
	BrightCentroidMin float64 `koanf:"bright_centroid_min"` // spectral centroid above this adds Pop
	NoisyZCRMin       float64 `koanf:"noisy_zcr_min"`       // zero-crossing rate above this adds Rock
	EnergeticRMSMin   float64 `koanf:"energetic_rms_min"`   // rms above this adds Energetic
	AcousticRMSMax    float64 `koanf:"acoustic_rms_max"`    // rms below this adds Acoustic
	MaxHints          int     `koanf:"max_hints"`
}

// RecommendWeights are the bonuses of the next-song scorer.
type RecommendWeights struct {
	Base             float64 `koanf:"base"`
	TempoCloseBPM    float64 `koanf:"tempo_close_bpm"`
	TempoClose       float64 `koanf:"tempo_close"`
	TempoNearBPM     float64 `koanf:"tempo_near_bpm"`
	TempoNear        float64 `koanf:"tempo_near"`
	KeyCompatible    float64 `koanf:"key_compatible"`
	GenreMatch       float64 `koanf:"genre_match"`
	MoodMatch        float64 `koanf:"mood_match"`
	EnergyMatch      float64 `koanf:"energy_match"`
	QualityExcellent float64 `koanf:"quality_excellent"`
	QualityGood      float64 `koanf:"quality_good"`
	MaxAlternatives  int     `koanf:"max_alternatives"`
}

// SimilarityWeights are the components of the 0-100 pairwise similarity score.
type SimilarityWeights struct {
	GenreMatch    float64 `koanf:"genre_match"`
	MoodMatch     float64 `koanf:"mood_match"`
	EnergyMatch   float64 `koanf:"energy_match"`
	TempoMax      float64 `koanf:"tempo_max"`      // full tempo credit at zero BPM difference
	TempoPerBPM   float64 `koanf:"tempo_per_bpm"`  // credit lost per BPM of difference
	KeyCompatible float64 `koanf:"key_compatible"`
}

// TransitionWeights score how well one track leads into the next.
type TransitionWeights struct {
	Base              float64 `koanf:"base"`
	TempoTightBPM     float64 `koanf:"tempo_tight_bpm"`
	TempoTight        float64 `koanf:"tempo_tight"`
	TempoCloseBPM     float64 `koanf:"tempo_close_bpm"`
	TempoClose        float64 `koanf:"tempo_close"`
	TempoJumpBPM      float64 `koanf:"tempo_jump_bpm"`
	TempoJumpPenalty  float64 `koanf:"tempo_jump_penalty"`
	EnergySame        float64 `koanf:"energy_same"`
	EnergyStep        float64 `koanf:"energy_step"`
	EnergyLeapPenalty float64 `koanf:"energy_leap_penalty"`
	GenreMatch        float64 `koanf:"genre_match"`

	// Quality label thresholds, highest first.
	ExcellentMin float64 `koanf:"excellent_min"`
	GoodMin      float64 `koanf:"good_min"`
	FairMin      float64 `koanf:"fair_min"`
}

// SelectionConfig bounds the greedy duration-fitting used by albums and setlists.
type SelectionConfig struct {
	MinFill                float64 `koanf:"min_fill"` // stop adding once this share of the target is reached
	MaxFill                float64 `koanf:"max_fill"` // never let the total exceed this share of the target
	DefaultAlbumMinutes    float64 `koanf:"default_album_minutes"`
	DefaultSetlistMinutes  float64 `koanf:"default_setlist_minutes"`
	DefaultDurationSeconds float64 `koanf:"default_duration_seconds"` // assumed length of songs with no duration
}

// Config is the full set of heuristic tables. Treat a loaded Config as
// immutable; components copy it by value at construction time.
type Config struct {
	Energy     EnergyConfig        `koanf:"energy"`
	TempoBands []TempoBand         `koanf:"tempo_bands"`
	Classifier ClassifierConfig    `koanf:"classifier"`
	Keys       map[string][]string `koanf:"key_compatibility"`
	Recommend  RecommendWeights    `koanf:"recommend"`
	Similarity SimilarityWeights   `koanf:"similarity"`
	Transition TransitionWeights   `koanf:"transition"`
	Selection  SelectionConfig     `koanf:"selection"`
}

// Default returns the built-in tables.
func Default() Config {
	return Config{
		Energy: EnergyConfig{LowMax: 0.02, MediumMax: 0.05},
		TempoBands: []TempoBand{
			{MinBPM: 60, MaxBPM: 80, Hints: []string{"Blues", "Ballad", "Soul"}},
			{MinBPM: 80, MaxBPM: 110, Hints: []string{"Rock", "Alternative", "Folk"}},
			{MinBPM: 110, MaxBPM: 140, Hints: []string{"Rock", "Pop", "Indie"}},
			{MinBPM: 140, MaxBPM: 180, Hints: []string{"Punk", "Metal", "Hard Rock"}},
		},
		Classifier: ClassifierConfig{
			BrightCentroidMin: 2000,
			NoisyZCRMin:       0.1,
			EnergeticRMSMin:   0.05,
			AcousticRMSMax:    0.02,
			MaxHints:          3,
		},
		Keys: defaultKeyGraph(),
		Recommend: RecommendWeights{
			Base:             50,
			TempoCloseBPM:    20,
			TempoClose:       20,
			TempoNearBPM:     40,
			TempoNear:        10,
			KeyCompatible:    25,
			GenreMatch:       15,
			MoodMatch:        30,
			EnergyMatch:      30,
			QualityExcellent: 10,
			QualityGood:      5,
			MaxAlternatives:  3,
		},
		Similarity: SimilarityWeights{
			GenreMatch:    30,
			MoodMatch:     25,
			EnergyMatch:   20,
			TempoMax:      15,
			TempoPerBPM:   0.1,
			KeyCompatible: 10,
		},
		Transition: TransitionWeights{
			Base:              50,
			TempoTightBPM:     15,
			TempoTight:        25,
			TempoCloseBPM:     30,
			TempoClose:        15,
			TempoJumpBPM:      50,
			TempoJumpPenalty:  20,
			EnergySame:        15,
			EnergyStep:        20,
			EnergyLeapPenalty: 15,
			GenreMatch:        10,
			ExcellentMin:      80,
			GoodMin:           60,
			FairMin:           40,
		},
		Selection: SelectionConfig{
			MinFill:                0.9,
			MaxFill:                1.1,
			DefaultAlbumMinutes:    45,
			DefaultSetlistMinutes:  60,
			DefaultDurationSeconds: 210,
		},
	}
}

// Load builds the Config from defaults, an optional YAML file, and
// BAND_-prefixed environment variables, in that order of precedence.
// An empty path loads defaults plus environment only; a missing explicit
// path is an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	def := Default()
	if err := k.Load(structs.Provider(def, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("tuning file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parse tuning file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal tuning: %w", err)
	}
	return cfg, nil
}

// EnergyBucket maps a mean RMS value onto the low/medium/high domain.
func (c Config) EnergyBucket(rms float64) string {
	switch {
	case rms < c.Energy.LowMax:
		return EnergyLow
	case rms < c.Energy.MediumMax:
		return EnergyMedium
	default:
		return EnergyHigh
	}
}

// TempoHints returns the hints of the first band containing bpm, or nil
// when the tempo falls outside every band.
func (c Config) TempoHints(bpm float64) []string {
	for _, b := range c.TempoBands {
		if bpm >= b.MinBPM && bpm <= b.MaxBPM {
			return b.Hints
		}
	}
	return nil
}

// KeysCompatible reports whether moving from one key to another is
// harmonically acceptable. The lookup is directional: the graph is a
// directed adjacency map and KeysCompatible(a, b) does not imply
// KeysCompatible(b, a). Bare pitch classes ("G") are read as major keys.
func (c Config) KeysCompatible(from, to string) bool {
	f := NormalizeKey(from)
	t := NormalizeKey(to)
	if f == "" || t == "" {
		return false
	}
	for _, k := range c.Keys[f] {
		if k == t {
			return true
		}
	}
	return false
}

// NormalizeKey canonicalizes a key name for graph lookup: "g major" and
// "G" both become "G Major". Unparseable input yields "".
func NormalizeKey(key string) string {
	fields := strings.Fields(strings.TrimSpace(key))
	if len(fields) == 0 {
		return ""
	}
	note := fields[0]
	note = strings.ToUpper(note[:1]) + strings.ToLower(note[1:])
	mode := "Major"
	if len(fields) > 1 {
		switch strings.ToLower(fields[1]) {
		case "minor", "min", "m":
			mode = "Minor"
		case "major", "maj":
			mode = "Major"
		default:
			return ""
		}
	}
	return note + " " + mode
}

// defaultKeyGraph is the circle-of-fifths adjacency: each key points at its
// dominant, its subdominant, and its relative major/minor. Kept as a
// directed structure on purpose; see KeysCompatible.
func defaultKeyGraph() map[string][]string {
	return map[string][]string{
		"C Major":  {"G Major", "F Major", "A Minor"},
		"G Major":  {"D Major", "C Major", "E Minor"},
		"D Major":  {"A Major", "G Major", "B Minor"},
		"A Major":  {"E Major", "D Major", "F# Minor"},
		"E Major":  {"B Major", "A Major", "C# Minor"},
		"B Major":  {"F# Major", "E Major", "G# Minor"},
		"F# Major": {"C# Major", "B Major", "D# Minor"},
		"C# Major": {"G# Major", "F# Major", "A# Minor"},
		"G# Major": {"D# Major", "C# Major", "F Minor"},
		"D# Major": {"A# Major", "G# Major", "C Minor"},
		"A# Major": {"F Major", "D# Major", "G Minor"},
		"F Major":  {"C Major", "A# Major", "D Minor"},

		"A Minor":  {"E Minor", "D Minor", "C Major"},
		"E Minor":  {"B Minor", "A Minor", "G Major"},
		"B Minor":  {"F# Minor", "E Minor", "D Major"},
		"F# Minor": {"C# Minor", "B Minor", "A Major"},
		"C# Minor": {"G# Minor", "F# Minor", "E Major"},
		"G# Minor": {"D# Minor", "C# Minor", "B Major"},
		"D# Minor": {"A# Minor", "G# Minor", "F# Major"},
		"A# Minor": {"F Minor", "D# Minor", "C# Major"},
		"F Minor":  {"C Minor", "A# Minor", "G# Major"},
		"C Minor":  {"G Minor", "F Minor", "D# Major"},
		"G Minor":  {"D Minor", "C Minor", "A# Major"},
		"D Minor":  {"A Minor", "G Minor", "F Major"},
	}
}
