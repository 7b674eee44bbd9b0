// Package batch drives resolution and extraction across a whole
// metadata index. Records are independent, so the driver runs one
// worker per record under a concurrency cap; per-record failures are
// recorded and never abort the run.
package batch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Phlares/arenaflow/internal/model"
	"github.com/Phlares/arenaflow/pkg/checkpoint"
	"github.com/Phlares/arenaflow/pkg/config"
	"github.com/Phlares/arenaflow/pkg/errors"
	"github.com/Phlares/arenaflow/pkg/extract"
	"github.com/Phlares/arenaflow/pkg/hooks"
	"github.com/Phlares/arenaflow/pkg/metrics"
	"github.com/Phlares/arenaflow/pkg/ownership"
	"github.com/Phlares/arenaflow/pkg/resolve"
	"github.com/Phlares/arenaflow/pkg/sinks"
	"github.com/Phlares/arenaflow/pkg/storage"
	"github.com/Phlares/arenaflow/pkg/telemetry"
)

// Result is the outcome of one record.
type Result struct {
	// RunID is a unique id for this record's processing, for audit
	// correlation across logs and failure reports.
	RunID string

	Record   string
	Resolved bool
	Skipped  bool
	Err      error
	Elapsed  time.Duration

	// Composite is the winning candidate's score when resolved.
	Composite float64
}

// Summary aggregates a batch run.
type Summary struct {
	Total      int
	Resolved   int
	Unresolved int
	Skipped    int

	// Failures holds per-record failure reasons for the audit trail.
	Failures []Result
}

// Driver runs batch resolution.
type Driver struct {
	cfg       *config.Config
	resolver  *resolve.Resolver
	extractor *extract.Extractor
	store     storage.LogStore
	sink      sinks.Sink
	resolved  checkpoint.ResolvedSet
	metrics   *metrics.Manager
	hooks     *hooks.Manager
	progress  func(*Result)

	sinkMu sync.Mutex
}

// Option configures a Driver.
type Option func(*Driver)

// WithMetrics attaches a metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithHooks attaches an observability hook manager, shared with the
// resolver.
func WithHooks(h *hooks.Manager) Option {
	return func(d *Driver) { d.hooks = h }
}

// WithProgress registers a callback invoked after every record.
func WithProgress(fn func(*Result)) Option {
	return func(d *Driver) { d.progress = fn }
}

// New creates a batch driver. resolved may be nil for a run without
// resume tracking.
func New(cfg *config.Config, store storage.LogStore, idx *ownership.Index, sink sinks.Sink, resolved checkpoint.ResolvedSet, opts ...Option) *Driver {
	d := &Driver{
		cfg:       cfg,
		store:     store,
		sink:      sink,
		resolved:  resolved,
		extractor: extract.New(cfg.Resolver, idx),
	}
	for _, opt := range opts {
		opt(d)
	}

	var ropts []resolve.Option
	if d.hooks != nil {
		ropts = append(ropts, resolve.WithHooks(d.hooks))
	}
	d.resolver = resolve.New(cfg.Resolver, ropts...)
	return d
}

// Run processes every record and returns the summary. Records are
// grouped by reliability grade so the trustworthy declared starts go
// first; within a group, workers run concurrently.
func (d *Driver) Run(ctx context.Context, records []*model.MetadataRecord) (*Summary, error) {
	summary := &Summary{Total: len(records)}
	var mu sync.Mutex

	workers := d.cfg.Batch.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	for _, group := range groupByReliability(records) {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)

		for _, rec := range group {
			rec := rec
			g.Go(func() error {
				res := d.processRecord(gctx, rec)

				mu.Lock()
				switch {
				case res.Skipped:
					summary.Skipped++
				case res.Resolved:
					summary.Resolved++
				default:
					summary.Unresolved++
					summary.Failures = append(summary.Failures, *res)
				}
				mu.Unlock()

				if d.progress != nil {
					d.progress(res)
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// processRecord runs one record end to end. All failures are captured
// in the result; nothing here is fatal to the batch.
func (d *Driver) processRecord(ctx context.Context, rec *model.MetadataRecord) *Result {
	res := &Result{RunID: uuid.NewString(), Record: rec.Filename}
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	ctx, span := telemetry.StartSpan(ctx, "record.process", trace.WithAttributes(
		attribute.String("record", rec.Filename),
		attribute.String("run_id", res.RunID),
		attribute.String("reliability", rec.Reliability),
	))
	defer span.End()

	if d.metrics != nil {
		d.metrics.WorkerStarted()
		defer d.metrics.WorkerFinished()
	}

	if d.resolved != nil {
		done, err := d.resolved.Contains(ctx, rec.Filename)
		if err == nil && done {
			res.Skipped = true
			if d.metrics != nil {
				d.metrics.RecordSkipped()
			}
			return res
		}
	}

	handle, err := d.store.Find(ctx, rec.DeclaredStart)
	if err != nil {
		return d.fail(ctx, res, err)
	}

	rctx, rspan := telemetry.StartSpan(ctx, "record.resolve")
	resolution, err := d.resolver.Resolve(rctx, handle, rec)
	if err != nil {
		rspan.End()
		return d.fail(ctx, res, err)
	}
	rspan.SetAttributes(
		attribute.Int("candidates", len(resolution.Candidates)),
		attribute.Float64("composite", resolution.Winner.Composite),
		attribute.Bool("synthetic_end", resolution.SyntheticEnd),
	)
	rspan.End()
	res.Composite = resolution.Winner.Composite
	if d.metrics != nil {
		d.metrics.RecordResolved(time.Since(start))
		d.metrics.ObserveCandidates(len(resolution.Candidates))
		d.metrics.AddLinesSkipped(resolution.LinesSkipped)
		if resolution.Winner.CrossSourceScore > 0 {
			d.metrics.RecordCrossSource()
		}
	}

	extractStart := time.Now()
	ectx, espan := telemetry.StartSpan(ctx, "record.extract")
	rc, err := handle.Open(ectx)
	if err != nil {
		espan.End()
		return d.fail(ctx, res, errors.LogUnreadable(handle.Path(), err))
	}
	counters, err := d.extractor.Extract(ectx, rc, resolution.Interval, rec.PrimaryActor)
	rc.Close()
	espan.End()
	if err != nil {
		if ctx.Err() != nil {
			return d.fail(ctx, res, errors.ContextCanceled("feature extraction"))
		}
		return d.fail(ctx, res, errors.LogUnreadable(handle.Path(), err))
	}
	if d.metrics != nil {
		d.metrics.RecordExtract(time.Since(extractStart))
	}
	d.hooks.RunExtract(ctx, rec.Filename, counters)

	row := &model.FeatureRow{
		Filename: rec.Filename,
		Interval: resolution.Interval,
		Counters: *counters,
	}
	d.sinkMu.Lock()
	err = d.sink.WriteRow(ctx, row)
	d.sinkMu.Unlock()
	if err != nil {
		if d.metrics != nil {
			d.metrics.RecordSinkError()
		}
		return d.fail(ctx, res, errors.Wrap(err, errors.CodeSinkFailed, "write feature row"))
	}

	res.Resolved = true
	d.mark(ctx, rec.Filename, true, "")
	return res
}

// fail finalizes a failed record, marking it in the resolved set so a
// rerun does not repeat a deterministic failure.
func (d *Driver) fail(ctx context.Context, res *Result, err error) *Result {
	res.Err = err
	telemetry.RecordError(ctx, err)
	if d.metrics != nil {
		d.metrics.RecordUnresolved(string(errors.GetCode(err)))
	}
	if errors.IsUnresolved(err) {
		d.mark(ctx, res.Record, false, err.Error())
	}
	return res
}

func (d *Driver) mark(ctx context.Context, record string, resolved bool, reason string) {
	if d.resolved == nil {
		return
	}
	_ = d.resolved.Mark(ctx, checkpoint.Outcome{
		Record:     record,
		Resolved:   resolved,
		Reason:     reason,
		FinishedAt: time.Now(),
	})
}

// reliabilityOrder lists grades most-trusted first.
var reliabilityOrder = []string{"high", "medium", "low"}

// groupByReliability splits records into grade groups in processing
// order. Unknown grades land in the low group.
func groupByReliability(records []*model.MetadataRecord) [][]*model.MetadataRecord {
	byGrade := map[string][]*model.MetadataRecord{}
	for _, rec := range records {
		grade := rec.Reliability
		if grade != "high" && grade != "medium" {
			grade = "low"
		}
		byGrade[grade] = append(byGrade[grade], rec)
	}

	var groups [][]*model.MetadataRecord
	for _, grade := range reliabilityOrder {
		if g := byGrade[grade]; len(g) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}
