package catalog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Importer walks a music directory, turning file tags into catalog rows
// and queueing each file for background analysis.
type Importer struct {
	store *Store
	pool  *Pool
	log   zerolog.Logger
}

// NewImporter builds an importer; pool may be nil to skip analysis.
func NewImporter(store *Store, pool *Pool, log zerolog.Logger) *Importer {
	return &Importer{
		store: store,
		pool:  pool,
		log:   log.With().Str("component", "importer").Logger(),
	}
}

// ImportDir recursively imports supported audio files under dir and
// returns how many songs were added or refreshed. Files whose tags can't
// be read are imported with filename-derived metadata.
func (im *Importer) ImportDir(ctx context.Context, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedAudio(filepath.Ext(path)) {
			return nil
		}

		song := im.songFromFile(path)
		if err := im.store.Upsert(ctx, song); err != nil {
			return err
		}
		count++

		if im.pool != nil {
			im.pool.Submit(Job{SongID: song.ID, Path: path})
		}
		return nil
	})
	return count, err
}

// songFromFile builds a Song from ID3/metadata tags, degrading to the
// filename when tags are unreadable. Energy defaults to medium until
// analysis fills it in. The ID is derived from the path so re-importing
// the same directory refreshes rows instead of duplicating them.
func (im *Importer) songFromFile(path string) Song {
	song := Song{
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String(),
		Title:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Energy:   "medium",
		AudioURL: path,
	}

	f, err := os.Open(path)
	if err != nil {
		im.log.Warn().Err(err).Str("path", path).Msg("open for tags failed")
		return song
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		im.log.Debug().Err(err).Str("path", path).Msg("no readable tags")
		return song
	}

	if t := meta.Title(); t != "" {
		song.Title = t
	}
	song.Genre = meta.Genre()
	if artist := meta.Artist(); artist != "" {
		song.Tags = append(song.Tags, artist)
	}
	if album := meta.Album(); album != "" {
		song.Tags = append(song.Tags, album)
	}
	return song
}

func supportedAudio(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp3", ".m4a", ".flac", ".ogg":
		return true
	default:
		return false
	}
}
