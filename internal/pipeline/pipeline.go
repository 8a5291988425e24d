package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/postgres"
	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/rawstore"
	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/staging"
	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/yelp"
	"github.com/couchcryptid/restaurant-staging-etl/internal/config"
	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"github.com/couchcryptid/restaurant-staging-etl/internal/fileutil"
	"github.com/couchcryptid/restaurant-staging-etl/internal/observability"
	"github.com/couchcryptid/restaurant-staging-etl/internal/report"
)

// ManifestFile is written to the staging directory at the end of every run.
const ManifestFile = "_manifest.json"

// Sink replaces relational tables from the staging CSV files.
type Sink interface {
	LoadAll(ctx context.Context, dir string, schemas []staging.Schema) (postgres.LoadResult, error)
}

// Publisher sends derived views downstream.
type Publisher interface {
	PublishView(ctx context.Context, view, runID string, rows []domain.Restaurant) error
}

// Pipeline runs named stages in order. Each stage reads its inputs from disk
// and replaces its output file, so any stage can be rerun on its own.
type Pipeline struct {
	cfg       *config.Config
	raw       *rawstore.Store
	fetcher   yelp.Fetcher
	sink      Sink
	publisher Publisher
	cuisine   domain.CuisineMapping
	console   io.Writer
	runID     string
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready  atomic.Bool
	mu     sync.Mutex
	tables map[string]int
	status domain.RunStatus
}

// Option configures optional collaborators of a Pipeline.
type Option func(*Pipeline)

// WithFetcher sets the API client used by the search and details stages.
func WithFetcher(f yelp.Fetcher) Option { return func(p *Pipeline) { p.fetcher = f } }

// WithSink sets the relational sink used by the load stage.
func WithSink(s Sink) Option { return func(p *Pipeline) { p.sink = s } }

// WithPublisher sets the view publisher used by the publish stage.
func WithPublisher(pub Publisher) Option { return func(p *Pipeline) { p.publisher = pub } }

// WithCuisineMapping overrides the default alias-to-cuisine mapping.
func WithCuisineMapping(m domain.CuisineMapping) Option { return func(p *Pipeline) { p.cuisine = m } }

// WithConsole sets where stage previews are printed. Previews are discarded by default.
func WithConsole(w io.Writer) Option { return func(p *Pipeline) { p.console = w } }

// WithRunID tags the manifest and published records with a run identifier.
func WithRunID(id string) Option { return func(p *Pipeline) { p.runID = id } }

// New creates a Pipeline over the directories named in cfg.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		raw:     rawstore.New(cfg.RawDir, cfg.DetailsDir),
		cuisine: domain.DefaultCuisineMapping(),
		console: io.Discard,
		logger:  logger,
		metrics: metrics,
		tables:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a stage has completed, or an error
// describing why the run is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed any stage yet")
	}
	return nil
}

// Status reports the progress of the current or most recent run.
func (p *Pipeline) Status() domain.RunStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.status
	st.RunID = p.runID
	st.Completed = append([]string{}, p.status.Completed...)
	return st
}

func (p *Pipeline) setStatus(fn func(st *domain.RunStatus)) {
	p.mu.Lock()
	fn(&p.status)
	p.mu.Unlock()
}

// Run executes stages in order and stops at the first failure. A manifest
// describing the tables written is saved when every stage succeeds.
func (p *Pipeline) Run(ctx context.Context, stages []Stage) error {
	names := StageNames(stages)
	p.logger.Info("pipeline started", "stages", names)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.setStatus(func(st *domain.RunStatus) { *st = domain.RunStatus{Running: true} })
	defer p.setStatus(func(st *domain.RunStatus) {
		st.Running = false
		st.CurrentStage = ""
	})

	if err := p.checkCollaborators(stages); err != nil {
		return err
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline canceled before stage %s: %w", s.Name, err)
		}
		if err := p.runStage(ctx, s); err != nil {
			return err
		}
	}

	if err := p.writeManifest(names); err != nil {
		return err
	}
	p.metrics.LastSuccess.SetToCurrentTime()
	p.logger.Info("pipeline complete", "stages", len(stages))
	return nil
}

func (p *Pipeline) checkCollaborators(stages []Stage) error {
	for _, s := range stages {
		switch {
		case s.needs&needsFetcher != 0 && p.fetcher == nil:
			return fmt.Errorf("stage %s: no API client configured", s.Name)
		case s.needs&needsSink != 0 && p.sink == nil:
			return fmt.Errorf("stage %s: no sink configured", s.Name)
		case s.needs&needsPublisher != 0 && p.publisher == nil:
			return fmt.Errorf("stage %s: no publisher configured", s.Name)
		}
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, s Stage) error {
	start := time.Now()
	p.logger.Info("stage started", "stage", s.Name)
	p.setStatus(func(st *domain.RunStatus) { st.CurrentStage = s.Name })

	err := s.run(p, ctx)
	p.metrics.StageDuration.WithLabelValues(s.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		p.setStatus(func(st *domain.RunStatus) {
			st.FailedStage = s.Name
			st.Error = err.Error()
		})
		p.metrics.StageRuns.WithLabelValues(s.Name, "error").Inc()
		p.logger.Error("stage failed", "stage", s.Name, "error", err)
		return fmt.Errorf("stage %s: %w", s.Name, err)
	}

	p.setStatus(func(st *domain.RunStatus) { st.Completed = append(st.Completed, s.Name) })
	p.metrics.StageRuns.WithLabelValues(s.Name, "success").Inc()
	p.logger.Info("stage complete", "stage", s.Name, "duration", time.Since(start))
	p.ready.Store(true)
	return nil
}

// writeTable replaces a staging table and records its row count.
func writeTable[T any](p *Pipeline, t staging.Table[T], rows []T) error {
	if err := t.Write(p.cfg.StagingDir, rows); err != nil {
		return err
	}

	p.mu.Lock()
	p.tables[t.Name] = len(rows)
	p.mu.Unlock()

	p.metrics.RowsWritten.WithLabelValues(t.Name).Set(float64(len(rows)))
	p.logger.Info("table written", "table", t.Name, "rows", len(rows), "path", t.Path(p.cfg.StagingDir))
	return nil
}

func (p *Pipeline) dropped(table, reason string, n int) {
	if n <= 0 {
		return
	}
	p.metrics.RowsDropped.WithLabelValues(table, reason).Add(float64(n))
}

func (p *Pipeline) preview(t report.Table) {
	if err := t.Render(p.console); err != nil {
		p.logger.Warn("preview failed", "title", t.Title, "error", err)
	}
}

// writeManifest records the row counts of the tables written by this run on
// top of the counts kept from earlier runs.
func (p *Pipeline) writeManifest(stages []string) error {
	path := filepath.Join(p.cfg.StagingDir, ManifestFile)
	tables := previousTables(path)

	p.mu.Lock()
	if len(p.tables) == 0 {
		p.mu.Unlock()
		return nil
	}
	for k, v := range p.tables {
		tables[k] = v
	}
	p.mu.Unlock()

	m := domain.NewManifest(p.runID, stages, tables)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n')); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func previousTables(path string) map[string]int {
	tables := make(map[string]int)
	data, err := os.ReadFile(path)
	if err != nil {
		return tables
	}
	var m domain.Manifest
	if json.Unmarshal(data, &m) == nil {
		for k, v := range m.Tables {
			tables[k] = v
		}
	}
	return tables
}
