package audio

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"
)

// Tempo search range for the periodicity estimator.
const (
	minTempoBPM = 60.0
	maxTempoBPM = 180.0
)

// rolloffShare is the fraction of spectral energy below the rolloff point.
const rolloffShare = 0.85

// Extractor computes analysis records from audio files. It is stateless
// per call; parallelism across files belongs to the caller.
type Extractor struct {
	cfg  tuning.Config
	stft STFTConfig
	log  zerolog.Logger
}

// NewExtractor builds an extractor on the given tuning tables.
func NewExtractor(cfg tuning.Config, log zerolog.Logger) *Extractor {
	return &Extractor{
		cfg:  cfg,
		stft: DefaultSTFTConfig(),
		log:  log.With().Str("component", "extractor").Logger(),
	}
}

// Analyze decodes the file and returns its analysis record. It never
// fails past this boundary: any decode or processing failure yields a
// degraded record with the cause recorded, so callers always receive a
// record. Genre hints are not attached here; classification is layered
// on top by the analysis pipeline.
func (e *Extractor) Analyze(path string) *Record {
	f, err := e.Features(path)
	if err != nil {
		e.log.Warn().Err(err).Str("path", path).Msg("analysis degraded")
		return Degraded(err.Error())
	}
	return f.Record(e.cfg.EnergyBucket)
}

// Features decodes the file and computes the raw feature set. Unlike
// Analyze it surfaces failures, letting the pipeline decide how to degrade.
func (e *Extractor) Features(path string) (Features, error) {
	samples32, rate, err := LoadMono(path)
	if err != nil {
		return Features{}, err
	}

	samples := make([]float64, len(samples32))
	for i, s := range samples32 {
		samples[i] = float64(s)
	}

	return e.featuresFromSamples(samples, rate), nil
}

// featuresFromSamples runs the DSP chain over decoded mono samples.
func (e *Extractor) featuresFromSamples(samples []float64, rate int) Features {
	f := Features{
		DurationSeconds:  float64(len(samples)) / float64(rate),
		RMS:              rmsEnergy(samples),
		ZeroCrossingRate: zeroCrossingRate(samples),
	}

	spec := STFT(samples, e.stft)
	if len(spec) == 0 {
		// Too short for a single window; time-domain features only.
		return f
	}

	f.SpectralCentroid = meanCentroid(spec, e.stft, rate)
	f.SpectralRolloff = meanRolloff(spec, e.stft, rate)
	f.PitchClass = dominantPitchClass(spec, e.stft, rate)

	env := onsetEnvelope(spec)
	f.BPM = estimateTempo(env, e.stft.FrameRate(rate))

	return f
}

// rmsEnergy is the root-mean-square amplitude of the whole signal.
func rmsEnergy(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// zeroCrossingRate is the fraction of adjacent sample pairs changing sign.
func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i] >= 0) != (samples[i-1] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// meanCentroid averages the per-frame spectral centroid in Hz.
func meanCentroid(spec [][]float64, cfg STFTConfig, rate int) float64 {
	var total float64
	frames := 0
	for _, mags := range spec {
		var num, den float64
		for k, m := range mags {
			num += cfg.BinFrequency(k, rate) * m
			den += m
		}
		if den > 0 {
			total += num / den
			frames++
		}
	}
	if frames == 0 {
		return 0
	}
	return total / float64(frames)
}

// meanRolloff averages the per-frame frequency below which rolloffShare of
// the spectral energy lies.
func meanRolloff(spec [][]float64, cfg STFTConfig, rate int) float64 {
	var total float64
	frames := 0
	for _, mags := range spec {
		var sum float64
		for _, m := range mags {
			sum += m
		}
		if sum == 0 {
			continue
		}
		threshold := rolloffShare * sum
		var cum float64
		for k, m := range mags {
			cum += m
			if cum >= threshold {
				total += cfg.BinFrequency(k, rate)
				break
			}
		}
		frames++
	}
	if frames == 0 {
		return 0
	}
	return total / float64(frames)
}

// dominantPitchClass folds spectral energy into twelve semitone bins and
// returns the name of the strongest one.
func dominantPitchClass(spec [][]float64, cfg STFTConfig, rate int) string {
	var chroma [12]float64
	for _, mags := range spec {
		for k, m := range mags {
			freq := cfg.BinFrequency(k, rate)
			if freq < 20 || m == 0 {
				continue
			}
			midi := 69 + 12*math.Log2(freq/440.0)
			pc := int(math.Round(midi)) % 12
			if pc < 0 {
				pc += 12
			}
			chroma[pc] += m
		}
	}

	best := 0
	for i := 1; i < 12; i++ {
		if chroma[i] > chroma[best] {
			best = i
		}
	}
	if chroma[best] == 0 {
		return ""
	}
	return tuning.PitchClasses[best]
}

// onsetEnvelope computes per-frame onset strength as half-wave rectified
// spectral flux: energy rising in a bin counts, energy falling does not.
func onsetEnvelope(spec [][]float64) []float64 {
	if len(spec) < 2 {
		return nil
	}
	env := make([]float64, len(spec)-1)
	for t := 1; t < len(spec); t++ {
		var flux float64
		for k := range spec[t] {
			if d := spec[t][k] - spec[t-1][k]; d > 0 {
				flux += d
			}
		}
		env[t-1] = flux
	}
	return env
}

// estimateTempo finds the strongest periodicity in the onset envelope by
// autocorrelation over the 60-180 BPM lag range. Returns 0 when the
// envelope is too short to cover the slowest tempo.
func estimateTempo(env []float64, frameRate float64) float64 {
	minLag := int(frameRate * 60.0 / maxTempoBPM)
	maxLag := int(frameRate * 60.0 / minTempoBPM)
	if minLag < 1 || len(env) <= maxLag {
		return 0
	}

	// Remove the DC component so sustained loudness doesn't dominate.
	var mean float64
	for _, v := range env {
		mean += v
	}
	mean /= float64(len(env))

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := lag; i < len(env); i++ {
			corr += (env[i] - mean) * (env[i-lag] - mean)
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0
	}
	return 60.0 * frameRate / float64(bestLag)
}
