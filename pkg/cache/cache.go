// Package cache is the persistent analysis store: a content-keyed mapping
// from audio identifiers to analysis records, backed by a single JSON file
// rewritten wholesale on every save, with cheap file-change invalidation.
//
// The store never raises on I/O trouble. A broken file on load is logged
// and treated as an empty cache; a failed write is logged and the
// in-memory state is kept so the next successful save carries it forward.
// The file is a shared mapping with exactly one writer assumed; concurrent
// writers from separate processes race and the last one wins.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/audio"
)

// Entry wraps one analysis record in the on-disk shape. The field names
// are a compatibility contract with pre-existing cache files.
type Entry struct {
	Analysis  *audio.Record `json:"analysis"`
	Timestamp time.Time     `json:"timestamp"`
	AudioURL  string        `json:"audio_url"`
	FileHash  string        `json:"file_hash,omitempty"`
	FilePath  string        `json:"file_path,omitempty"`
}

// Stats summarizes the store for diagnostics.
type Stats struct {
	Entries   int    `json:"entries"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// Store is an in-memory mapping persisted to one file. Safe for
// concurrent use within a process; cross-process writes are not
// coordinated.
type Store struct {
	path string
	log  zerolog.Logger

	mu      sync.Mutex
	entries map[string]Entry
}

// Open loads the store from path. Any read or parse error is logged and
// the store starts empty; Open never fails.
func Open(path string, log zerolog.Logger) *Store {
	s := &Store{
		path:    path,
		log:     log.With().Str("component", "cache").Logger(),
		entries: map[string]Entry{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", path).Msg("cache unreadable, starting empty")
		}
		return s
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("cache corrupt, starting empty")
		s.entries = map[string]Entry{}
	}
	return s
}

// Key derives the deterministic cache key for an audio identifier.
func Key(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached record for the identifier. When sourcePath is
// non-empty the live file's fingerprint is compared against the stored
// one and a mismatch reports a miss; with no path a hit by identifier
// alone is valid. Stale entries are ignored, not deleted.
func (s *Store) Get(identifier, sourcePath string) (*audio.Record, bool) {
	s.mu.Lock()
	entry, ok := s.entries[Key(identifier)]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	if sourcePath != "" && entry.FileHash != "" {
		if fingerprint(sourcePath) != entry.FileHash {
			return nil, false
		}
	}
	return entry.Analysis, true
}

// Save overwrites the entry for the identifier and synchronously persists
// the whole store. A persist failure is logged; memory stays updated.
func (s *Store) Save(identifier string, rec *audio.Record, sourcePath string) {
	entry := Entry{
		Analysis:  rec,
		Timestamp: time.Now().UTC(),
		AudioURL:  identifier,
	}
	if sourcePath != "" {
		entry.FilePath = sourcePath
		entry.FileHash = fingerprint(sourcePath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[Key(identifier)] = entry
	s.persistLocked()
}

// Clear resets the store to empty and persists the empty mapping.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]Entry{}
	s.persistLocked()
}

// Stats reports entry count, backing file and on-disk size.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	n := len(s.entries)
	s.mu.Unlock()

	st := Stats{Entries: n, Path: s.path}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	return st
}

func (s *Store) persistLocked() {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("cache marshal failed, keeping in-memory state")
		return
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("cache write failed, keeping in-memory state")
	}
}

// fingerprint is a cheap change detector: a hash of file size and
// modification time, no content read. Empty when the file can't be
// stat'ed.
func fingerprint(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%d:%d", info.Size(), info.ModTime().UnixNano()))
	return hex.EncodeToString(sum[:])
}
