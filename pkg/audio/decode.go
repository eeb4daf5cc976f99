// Package audio decodes waveforms and computes the spectral and temporal
// features that feed the genre classifier and the analysis cache.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 emits more leading samples than browser decoders; measured offset
// beyond the LAME header's declared encoder delay.
const decoderDelay = 924

// Fallback encoder delay when no LAME header is present.
const defaultEncoderDelay = 576

// LoadMono decodes an audio file into mono float32 samples in [-1, 1]
// plus the sample rate. Only MP3 is decodable; other extensions return an
// unsupported-format error which the extractor degrades on.
func LoadMono(path string) ([]float32, int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".mp3" {
		return nil, 0, fmt.Errorf("unsupported audio format: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decoder: %w", err)
	}
	rate := dec.SampleRate()

	// 16-bit signed stereo interleaved PCM.
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decode: %w", err)
	}

	pairs := len(pcm) / 4
	samples := make([]float32, pairs)
	for i := 0; i < pairs; i++ {
		off := i * 4
		left := int16(binary.LittleEndian.Uint16(pcm[off:]))
		right := int16(binary.LittleEndian.Uint16(pcm[off+2:]))
		samples[i] = (float32(left) + float32(right)) / 2.0 / 32768.0
	}

	// Trim encoder+decoder delay so timings line up with playback.
	if skip := lameEncoderDelay(path) + decoderDelay; len(samples) > skip {
		samples = samples[skip:]
	}

	return samples, rate, nil
}

// lameEncoderDelay reads the encoder delay from a LAME/Xing header if one
// exists in the first 4KB of the file.
func lameEncoderDelay(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return defaultEncoderDelay
	}
	defer f.Close()

	buf := make([]byte, 4096)
	n, err := f.Read(buf)
	if err != nil || n < 200 {
		return defaultEncoderDelay
	}
	buf = buf[:n]

	idx := bytes.Index(buf, []byte("LAME"))
	if idx == -1 || idx+24 > len(buf) {
		return defaultEncoderDelay
	}

	// Encoder delay is the upper 12 bits of the 24-bit field at offset 21.
	b := buf[idx+21 : idx+24]
	delay := (int(b[0]) << 4) | (int(b[1]) >> 4)
	if delay < 0 || delay > 4096 {
		return defaultEncoderDelay
	}
	return delay
}
