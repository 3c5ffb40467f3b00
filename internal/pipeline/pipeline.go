// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives reconciliation runs: for each paper it gathers
// the extraction records, assembles the canonical paper, projects it into
// the graph and records it for review.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-reconciler/internal/assemble"
	"github.com/pdiddy/paper-reconciler/internal/graph"
	"github.com/pdiddy/paper-reconciler/internal/logging"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

const defaultSourceTimeout = 60 * time.Second

// Source is one extraction collaborator.
type Source interface {
	Source() types.SourceID
	Extract(ctx context.Context, ref types.PaperRef) (types.ExtractionRecord, error)
}

// Catalogue lists the papers of a volume and its venue.
type Catalogue interface {
	Papers(ctx context.Context, vol int) ([]types.PaperRef, error)
	Venue(ctx context.Context, vol int) (types.VenueContext, error)
}

// Recorder stores assembled papers for review.
type Recorder interface {
	Record(ctx context.Context, runID string, ref types.PaperRef, res assemble.Result) error
}

// PaperResult is the outcome of processing one paper.
type PaperResult struct {
	Ref types.PaperRef
	assemble.Result

	// ProjectErr is set when graph projection failed. The paper itself may
	// still have resolved.
	ProjectErr error
	// RecordErr is set when the review store rejected the paper.
	RecordErr error
}

// BatchResult holds the counts of a run.
type BatchResult struct {
	RunID       string
	Resolved    int
	NeedsReview int
	Failed      int
	// ProjectFailed counts papers whose graph write failed.
	ProjectFailed int
	// VolumesFailed counts volumes whose paper listing could not be read.
	VolumesFailed int
}

// Total returns the number of papers processed.
func (b BatchResult) Total() int {
	return b.Resolved + b.NeedsReview + b.Failed
}

// HasFailures reports whether any paper, volume or graph write failed.
func (b BatchResult) HasFailures() bool {
	return b.Failed > 0 || b.ProjectFailed > 0 || b.VolumesFailed > 0
}

func (b *BatchResult) add(r PaperResult) {
	switch r.Status() {
	case assemble.StatusResolved:
		b.Resolved++
	case assemble.StatusNeedsReview:
		b.NeedsReview++
	default:
		b.Failed++
	}
	if r.ProjectErr != nil {
		b.ProjectFailed++
	}
}

// Runner processes papers.
type Runner struct {
	sources   []Source
	assembler *assemble.Assembler
	catalogue Catalogue
	store     graph.Store
	recorder  Recorder
	cfg       types.PipelineConfig
	runID     string
	log       *logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithSources sets the extraction sources.
func WithSources(s ...Source) Option {
	return func(r *Runner) { r.sources = append(r.sources, s...) }
}

// WithCatalogue sets the catalogue used by ProcessVolumes.
func WithCatalogue(c Catalogue) Option {
	return func(r *Runner) { r.catalogue = c }
}

// WithStore enables graph projection into s.
func WithStore(s graph.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithRecorder enables review recording.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) { r.log = logging.OrNop(l) }
}

// New builds a runner. A fresh run id is drawn for each runner.
func New(asm *assemble.Assembler, cfg types.PipelineConfig, opts ...Option) *Runner {
	r := &Runner{
		assembler: asm,
		cfg:       cfg,
		runID:     uuid.NewString(),
		log:       logging.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.cfg.Workers <= 0 {
		r.cfg.Workers = 1
	}
	if r.cfg.SourceTimeout <= 0 {
		r.cfg.SourceTimeout = defaultSourceTimeout
	}
	return r
}

// RunID returns the id recorded with every paper of this runner.
func (r *Runner) RunID() string {
	return r.runID
}

// ProcessPaper gathers ref's records, assembles the paper, projects it when
// a store is configured and records it when a recorder is configured.
// Source failures become issues; they never abort the paper.
func (r *Runner) ProcessPaper(ctx context.Context, ref types.PaperRef, venue types.VenueContext) PaperResult {
	log := r.log.With("paper", ref.ID())

	var records []types.ExtractionRecord
	var unavailable []assemble.Issue
	for _, src := range r.sources {
		rec, err := r.extract(ctx, src, ref)
		if err != nil {
			log.Warn("source unavailable", "source", src.Source(), "error", err)
			unavailable = append(unavailable, assemble.SourceUnavailable(src.Source(), err))
			continue
		}
		records = append(records, rec)
	}

	res := PaperResult{Ref: ref, Result: r.assembler.Assemble(ctx, ref, records, venue)}
	res.Issues = append(unavailable, res.Issues...)

	if r.store != nil && res.Err == nil {
		if err := graph.Project(ctx, r.store, res.Paper); err != nil {
			log.Error("graph projection failed", "error", err)
			res.ProjectErr = err
		}
	}
	if r.recorder != nil {
		if err := r.recorder.Record(ctx, r.runID, ref, res.Result); err != nil {
			log.Error("recording failed", "error", err)
			res.RecordErr = err
		}
	}
	return res
}

// extract runs one source under the source timeout. A panicking source is
// reported as unavailable.
func (r *Runner) extract(ctx context.Context, src Source, ref types.PaperRef) (rec types.ExtractionRecord, err error) {
	sctx, cancel := context.WithTimeout(ctx, r.cfg.SourceTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			rec, err = types.ExtractionRecord{}, fmt.Errorf("source %s panicked: %v", src.Source(), p)
		}
	}()
	rec, err = src.Extract(sctx, ref)
	if err != nil {
		return types.ExtractionRecord{}, err
	}
	rec.Source = src.Source()
	return rec, nil
}

type job struct {
	ref   types.PaperRef
	venue types.VenueContext
}

// ProcessVolumes processes every paper of vols with up to cfg.Workers
// papers in flight, printing one line per paper and a summary to w.
// Results come back in catalogue order. When ctx is cancelled no new paper
// is started; papers already finished are kept.
func (r *Runner) ProcessVolumes(ctx context.Context, vols []int, w io.Writer) (BatchResult, []PaperResult, error) {
	batch := BatchResult{RunID: r.runID}
	if r.catalogue == nil {
		return batch, nil, fmt.Errorf("no catalogue configured")
	}

	var jobs []job
	for _, vol := range vols {
		if err := ctx.Err(); err != nil {
			return batch, nil, err
		}
		venue, err := r.catalogue.Venue(ctx, vol)
		if err != nil {
			r.log.Warn("venue unavailable", "volume", vol, "error", err)
		}
		refs, err := r.catalogue.Papers(ctx, vol)
		if err != nil {
			fmt.Fprintf(w, "failed:   Vol-%d (%v)\n", vol, err)
			batch.VolumesFailed++
			continue
		}
		for _, ref := range refs {
			jobs = append(jobs, job{ref: ref, venue: venue})
		}
	}

	results := make([]PaperResult, len(jobs))
	done := make([]bool, len(jobs))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		i, j := i, j
		g.Go(func() error {
			res := r.ProcessPaper(ctx, j.ref, j.venue)
			mu.Lock()
			defer mu.Unlock()
			results[i], done[i] = res, true
			report(w, res)
			return nil
		})
	}
	_ = g.Wait()

	var out []PaperResult
	for i, res := range results {
		if !done[i] {
			continue
		}
		out = append(out, res)
		batch.add(res)
	}

	fmt.Fprintf(w, "\nBatch summary: %d resolved, %d needs review, %d failed (total: %d)\n",
		batch.Resolved, batch.NeedsReview, batch.Failed, batch.Total())
	if batch.ProjectFailed > 0 {
		fmt.Fprintf(w, "graph projection failed for %d papers\n", batch.ProjectFailed)
	}
	return batch, out, ctx.Err()
}

func report(w io.Writer, res PaperResult) {
	switch res.Status() {
	case assemble.StatusFailed:
		fmt.Fprintf(w, "failed:   %s (%v)\n", res.Ref.ID(), res.Err)
	case assemble.StatusNeedsReview:
		fmt.Fprintf(w, "review:   %s (%d issues)\n", res.Ref.ID(), len(res.Issues))
	default:
		fmt.Fprintf(w, "resolved: %s %q\n", res.Ref.ID(), res.Paper.Title)
	}
	if res.ProjectErr != nil {
		fmt.Fprintf(w, "          graph: %v\n", res.ProjectErr)
	}
}
