package audio

import "time"

// Record is the analysis result for one piece of audio. A record is
// immutable once produced; re-analysis of a changed file supersedes it
// with a fresh record rather than mutating it in place.
//
// A record with Error set is a degraded result: every numeric field is
// nil, Energy falls back to "medium", and downstream scoring must not
// treat it as a valid analysis.
type Record struct {
	BPM              *float64  `json:"bpm"`
	Key              *string   `json:"key"` // dominant pitch class, e.g. "G"
	Energy           string    `json:"energy"`
	DurationSeconds  *float64  `json:"duration_seconds"`
	GenreHints       []string  `json:"genre_hints"`
	SpectralCentroid *float64  `json:"spectral_centroid"`
	SpectralRolloff  *float64  `json:"spectral_rolloff"`
	ZeroCrossingRate *float64  `json:"zero_crossing_rate"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Failed reports whether this is a degraded record.
func (r *Record) Failed() bool {
	return r != nil && r.Error != ""
}

// Degraded builds the failure record returned when analysis cannot
// complete: numeric fields nil, energy defaulted, cause preserved.
func Degraded(cause string) *Record {
	return &Record{
		Energy:    "medium",
		Error:     cause,
		Timestamp: time.Now().UTC(),
	}
}

// Features are the raw measurements the extractor computes before they
// are folded into a Record. The classifier consumes these directly since
// it thresholds on unbucketed RMS.
type Features struct {
	DurationSeconds  float64
	BPM              float64 // 0 when no periodicity could be estimated
	RMS              float64
	SpectralCentroid float64
	SpectralRolloff  float64
	ZeroCrossingRate float64
	PitchClass       string
}

// Record folds the features into an immutable analysis record.
// Energy is bucketed by the supplied function; genre hints are attached
// by the caller since classification is a separate concern.
func (f Features) Record(bucket func(rms float64) string) *Record {
	rec := &Record{
		Key:              ptr(f.PitchClass),
		Energy:           bucket(f.RMS),
		DurationSeconds:  ptr(f.DurationSeconds),
		SpectralCentroid: ptr(f.SpectralCentroid),
		SpectralRolloff:  ptr(f.SpectralRolloff),
		ZeroCrossingRate: ptr(f.ZeroCrossingRate),
		Timestamp:        time.Now().UTC(),
	}
	if f.BPM > 0 {
		rec.BPM = ptr(f.BPM)
	}
	return rec
}

func ptr[T any](v T) *T { return &v }
