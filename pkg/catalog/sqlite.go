package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // driver

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/audio"
)

// ErrNotFound is returned when a song ID has no row.
var ErrNotFound = fmt.Errorf("catalog: song not found")

// Store is the SQLite-backed song library. All access is parameterized
// CRUD; nothing clever lives here.
type Store struct {
	db *sql.DB
}

// Open connects to the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate catalog db: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS songs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		genre TEXT NOT NULL DEFAULT '',
		mood TEXT NOT NULL DEFAULT '',
		energy TEXT NOT NULL DEFAULT 'medium',
		tempo_bpm REAL,
		key TEXT,
		duration_seconds REAL,
		audio_quality TEXT,
		tags TEXT,
		audio_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`)
	return err
}

// Upsert inserts or fully replaces the song row.
func (s *Store) Upsert(ctx context.Context, song Song) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (id, title, genre, mood, energy, tempo_bpm, key,
			duration_seconds, audio_quality, tags, audio_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			genre=excluded.genre,
			mood=excluded.mood,
			energy=excluded.energy,
			tempo_bpm=excluded.tempo_bpm,
			key=excluded.key,
			duration_seconds=excluded.duration_seconds,
			audio_quality=excluded.audio_quality,
			tags=excluded.tags,
			audio_url=excluded.audio_url;
	`,
		song.ID, song.Title, song.Genre, song.Mood, song.Energy,
		song.TempoBPM, nullable(song.Key), song.DurationSeconds,
		nullable(song.AudioQuality), nullable(strings.Join(song.Tags, ",")),
		nullable(song.AudioURL),
	)
	if err != nil {
		return fmt.Errorf("upsert song %s: %w", song.ID, err)
	}
	return nil
}

// Get loads one song by ID.
func (s *Store) Get(ctx context.Context, id string) (Song, error) {
	row := s.db.QueryRowContext(ctx, selectSongs+" WHERE id = ?", id)
	song, err := scanSong(row)
	if err == sql.ErrNoRows {
		return Song{}, ErrNotFound
	}
	if err != nil {
		return Song{}, fmt.Errorf("load song %s: %w", id, err)
	}
	return song, nil
}

// List returns the whole library in insertion order.
func (s *Store) List(ctx context.Context) ([]Song, error) {
	rows, err := s.db.QueryContext(ctx, selectSongs+" ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

// ApplyAnalysis merges a successful analysis record onto the song row:
// computed tempo, key, energy and duration fill in or refresh the catalog
// values. Degraded records are ignored.
func (s *Store) ApplyAnalysis(ctx context.Context, id string, rec *audio.Record) error {
	if rec.Failed() {
		return nil
	}

	var key any
	if rec.Key != nil && *rec.Key != "" {
		key = *rec.Key + " Major"
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE songs SET
			tempo_bpm = COALESCE(?, tempo_bpm),
			key = COALESCE(key, ?),
			energy = ?,
			duration_seconds = COALESCE(?, duration_seconds)
		WHERE id = ?
	`, rec.BPM, key, rec.Energy, rec.DurationSeconds, id)
	if err != nil {
		return fmt.Errorf("apply analysis to %s: %w", id, err)
	}
	return nil
}

const selectSongs = `
	SELECT id, title, genre, mood, energy, tempo_bpm, key,
		duration_seconds, audio_quality, tags, audio_url
	FROM songs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (Song, error) {
	var song Song
	var tempo, duration sql.NullFloat64
	var key, quality, tags, url sql.NullString

	if err := row.Scan(
		&song.ID, &song.Title, &song.Genre, &song.Mood, &song.Energy,
		&tempo, &key, &duration, &quality, &tags, &url,
	); err != nil {
		return Song{}, err
	}

	if tempo.Valid {
		v := tempo.Float64
		song.TempoBPM = &v
	}
	if duration.Valid {
		v := duration.Float64
		song.DurationSeconds = &v
	}
	song.Key = key.String
	song.AudioQuality = quality.String
	song.AudioURL = url.String
	if tags.Valid && tags.String != "" {
		song.Tags = strings.Split(tags.String, ",")
	}
	return song, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
