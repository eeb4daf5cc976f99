package catalog

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/cache"
)

// Job asks for one song's audio to be analyzed.
type Job struct {
	SongID string
	Path   string
}

// Pool runs audio analysis in the background: each job decodes through
// the cache-backed analyzer and merges the result onto the catalog row.
// The extractor itself is single-threaded per call; this pool is where
// cross-file parallelism lives.
type Pool struct {
	store    *Store
	analyzer *cache.Analyzer
	log      zerolog.Logger

	jobs chan Job
	wg   sync.WaitGroup
}

// NewPool creates a pool with the given queue size.
func NewPool(store *Store, analyzer *cache.Analyzer, queueSize int, log zerolog.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		store:    store,
		analyzer: analyzer,
		log:      log.With().Str("component", "worker").Logger(),
		jobs:     make(chan Job, queueSize),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.process(job)
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight jobs.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Submit queues a job without blocking; a full queue drops the job with
// a warning, re-import picks it up again.
func (p *Pool) Submit(job Job) {
	select {
	case p.jobs <- job:
	default:
		p.log.Warn().Str("song_id", job.SongID).Msg("queue full, dropping analysis job")
	}
}

func (p *Pool) process(job Job) {
	rec := p.analyzer.Analyze(job.Path, job.Path)
	if rec.Failed() {
		p.log.Warn().Str("song_id", job.SongID).Str("cause", rec.Error).Msg("analysis degraded")
		return
	}
	if err := p.store.ApplyAnalysis(context.Background(), job.SongID, rec); err != nil {
		p.log.Error().Err(err).Str("song_id", job.SongID).Msg("applying analysis failed")
		return
	}
	p.log.Info().Str("song_id", job.SongID).Msg("analysis applied")
}
