package cache

import (
	"github.com/rs/zerolog"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/audio"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/genre"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"
)

// Analyzer is the change-aware analysis pipeline: extractor and classifier
// behind the store, so a file is only decoded when no valid cached record
// exists. Degraded records are cached too; a broken file costs one decode
// attempt, not one per lookup.
type Analyzer struct {
	store      *Store
	extractor  *audio.Extractor
	classifier *genre.Classifier
	bucket     func(float64) string
	log        zerolog.Logger
}

// NewAnalyzer wires the pipeline on shared tuning tables.
func NewAnalyzer(store *Store, cfg tuning.Config, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		store:      store,
		extractor:  audio.NewExtractor(cfg, log),
		classifier: genre.NewClassifier(cfg),
		bucket:     cfg.EnergyBucket,
		log:        log.With().Str("component", "analyzer").Logger(),
	}
}

// Analyze returns the analysis record for the identifier, computing and
// caching it when absent or stale. identifier is the stable cache key
// (URL or path); sourcePath, when non-empty, is the local file to decode
// and fingerprint. Always returns a record.
func (a *Analyzer) Analyze(identifier, sourcePath string) *audio.Record {
	if rec, ok := a.store.Get(identifier, sourcePath); ok {
		return rec
	}

	path := sourcePath
	if path == "" {
		path = identifier
	}

	var rec *audio.Record
	f, err := a.extractor.Features(path)
	if err != nil {
		a.log.Warn().Err(err).Str("identifier", identifier).Msg("analysis degraded")
		rec = audio.Degraded(err.Error())
	} else {
		rec = f.Record(a.bucket)
		rec.GenreHints = a.classifier.Hints(f)
	}

	a.store.Save(identifier, rec, sourcePath)
	return rec
}
