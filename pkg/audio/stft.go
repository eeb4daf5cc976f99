package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// STFTConfig describes the analysis grid for short-time spectra.
type STFTConfig struct {
	FFTSize    int // FFT window size
	HopSize    int // samples between frames
	WindowSize int // analysis window, usually equal to FFTSize
}

// DefaultSTFTConfig is the grid used for feature extraction: ~46ms windows
// with ~12ms hops at 44.1kHz.
func DefaultSTFTConfig() STFTConfig {
	return STFTConfig{FFTSize: 2048, HopSize: 512, WindowSize: 2048}
}

// FrameRate returns spectra frames per second at the given sample rate.
func (c STFTConfig) FrameRate(sampleRate int) float64 {
	return float64(sampleRate) / float64(c.HopSize)
}

// BinFrequency returns the center frequency of bin k in Hz.
func (c STFTConfig) BinFrequency(k, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(c.FFTSize)
}

// STFT computes a Hann-windowed magnitude spectrogram, [frames][bins] with
// bins = FFTSize/2 + 1. Returns nil when the signal is shorter than one
// window.
func STFT(samples []float64, cfg STFTConfig) [][]float64 {
	numFrames := (len(samples) - cfg.WindowSize) / cfg.HopSize
	if numFrames <= 0 {
		return nil
	}

	window := hannWindow(cfg.WindowSize)
	fft := fourier.NewFFT(cfg.FFTSize)
	numBins := cfg.FFTSize/2 + 1

	result := make([][]float64, numFrames)
	frame := make([]float64, cfg.FFTSize)

	for i := 0; i < numFrames; i++ {
		start := i * cfg.HopSize

		for j := range frame {
			frame[j] = 0
		}
		for j := 0; j < cfg.WindowSize && start+j < len(samples); j++ {
			frame[j] = samples[start+j] * window[j]
		}

		coeffs := fft.Coefficients(nil, frame)

		// One-sided spectrum scaling: 2/N except at DC and Nyquist.
		scale := 2.0 / float64(cfg.FFTSize)
		result[i] = make([]float64, numBins)
		for j := 0; j < numBins; j++ {
			s := scale
			if j == 0 || j == numBins-1 {
				s = 1.0 / float64(cfg.FFTSize)
			}
			re := real(coeffs[j])
			im := imag(coeffs[j])
			result[i][j] = math.Sqrt(re*re+im*im) * s
		}
	}

	return result
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}
