package resolve

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/Phlares/arenaflow/internal/model"
	"github.com/Phlares/arenaflow/pkg/config"
	"github.com/Phlares/arenaflow/pkg/errors"
	"github.com/Phlares/arenaflow/pkg/hooks"
)

// LogSource provides repeatable read access to one combat log. Each
// Open returns a fresh reader positioned at the start of the log; the
// resolver opens it once per pass and closes it when the pass ends.
type LogSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)

	// Path identifies the log for error reporting.
	Path() string
}

// Resolution is the outcome of a successful resolution.
type Resolution struct {
	Record *model.MetadataRecord

	// Interval is the resolved log sub-interval, closed on both ends.
	Interval model.Interval

	// Winner is the chosen candidate with its final scores.
	Winner *model.Candidate

	// Candidates is every scored candidate, best-first.
	Candidates []*model.Candidate

	// SyntheticEnd is true when the interval end was derived from the
	// declared duration rather than an end marker.
	SyntheticEnd bool

	// LinesSkipped aggregates unparseable lines across the scan.
	LinesSkipped int
}

// Resolver matches one metadata record to its log sub-interval.
// Safe for concurrent use; all state is per-call.
type Resolver struct {
	cfg     config.ResolverConfig
	scanner *Scanner
	scorer  *Scorer
	disamb  *Disambiguator
	hooks   *hooks.Manager
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHooks attaches an observability hook manager.
func WithHooks(m *hooks.Manager) Option {
	return func(r *Resolver) { r.hooks = m }
}

// New creates a Resolver with the given configuration.
func New(cfg config.ResolverConfig, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:     cfg,
		scanner: NewScanner(),
		scorer:  NewScorer(cfg),
		disamb:  NewDisambiguator(cfg),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// reliabilityPadding widens the scan window according to how much the
// declared start time is trusted.
func reliabilityPadding(grade string) time.Duration {
	switch grade {
	case "high":
		return 30 * time.Second
	case "medium":
		return 2 * time.Minute
	default:
		return 5 * time.Minute
	}
}

// searchWindow computes the boundary-scan window for a record: the
// declared span padded by the reliability grade and extended by the
// maximum start offset (the hard limit on how far a real start may
// drift from the declared one).
func (r *Resolver) searchWindow(rec *model.MetadataRecord) model.Interval {
	pad := reliabilityPadding(rec.Reliability) + r.cfg.SearchPadding
	return model.Interval{
		Start: rec.DeclaredStart.Add(-(r.cfg.MaxStartOffset + pad)),
		End:   rec.DeclaredStart.Add(rec.DeclaredDuration + r.cfg.MaxStartOffset + pad),
	}
}

// Resolve runs the full resolution flow for one record: boundary scan,
// candidate build, scoring, and cross-source disambiguation if the
// scores leave more than one contender. Failures are per-record:
// callers should record them and move on, never abort a batch.
func (r *Resolver) Resolve(ctx context.Context, src LogSource, rec *model.MetadataRecord) (*Resolution, error) {
	window := r.searchWindow(rec)

	rc, err := src.Open(ctx)
	if err != nil {
		e := errors.LogUnreadable(src.Path(), err)
		r.hooks.RunError(ctx, e, "scan")
		return nil, e
	}
	scan, err := r.scanner.Scan(ctx, rc, window)
	rc.Close()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.ContextCanceled("boundary scan")
		}
		e := errors.LogUnreadable(src.Path(), err)
		r.hooks.RunError(ctx, e, "scan")
		return nil, e
	}

	r.hooks.RunScan(ctx, &hooks.ScanInfo{
		Record:       rec.Filename,
		WindowStart:  window.Start,
		WindowEnd:    window.End,
		Markers:      len(scan.Markers),
		LinesRead:    scan.LinesRead,
		LinesSkipped: scan.LinesSkipped,
	})

	if len(scan.Markers) == 0 {
		e := errors.NoBoundaryMarkers(rec.Filename)
		r.hooks.RunError(ctx, e, "scan")
		return nil, e
	}

	var cands []*model.Candidate
	for _, c := range BuildCandidates(scan.Markers) {
		if r.scorer.Score(c, rec) {
			cands = append(cands, c)
		}
	}
	if len(cands) == 0 {
		e := errors.NoConfidentMatch(rec.Filename, 0)
		r.hooks.RunError(ctx, e, "score")
		return nil, e
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Composite > cands[j].Composite
	})
	r.hooks.RunCandidates(ctx, rec.Filename, cands)

	winner := cands[0]
	ambiguous := len(cands) > 1 && cands[0].Composite-cands[1].Composite < r.cfg.AmbiguityMargin
	if winner.Composite < r.cfg.HighConfidence || ambiguous {
		chosen, derr := r.disambiguate(ctx, src, rec, cands)
		if derr != nil {
			r.hooks.RunError(ctx, derr, "disambiguate")
			return nil, derr
		}
		winner = chosen
	}

	if winner.Composite < r.cfg.ViabilityBar {
		e := errors.NoConfidentMatch(rec.Filename, len(cands))
		r.hooks.RunError(ctx, e, "disambiguate")
		return nil, e
	}

	interval, synthetic := r.resolveInterval(winner, rec)
	r.hooks.RunResolve(ctx, &hooks.Outcome{
		Record:      rec.Filename,
		Interval:    interval,
		Composite:   winner.Composite,
		CrossSource: winner.CrossSourceScore,
		Synthetic:   synthetic,
		Duration:    interval.Duration(),
	})

	return &Resolution{
		Record:       rec,
		Interval:     interval,
		Winner:       winner,
		Candidates:   cands,
		SyntheticEnd: synthetic,
		LinesSkipped: scan.LinesSkipped,
	}, nil
}

// disambiguate cross-scores every candidate still competitive with the
// leader and returns the re-ranked winner.
func (r *Resolver) disambiguate(ctx context.Context, src LogSource, rec *model.MetadataRecord, cands []*model.Candidate) (*model.Candidate, error) {
	competitive := cands[:1]
	for _, c := range cands[1:] {
		if cands[0].Composite-c.Composite < r.cfg.AmbiguityMargin {
			competitive = append(competitive, c)
		}
	}
	if len(competitive) == 1 && len(rec.GroundTruth) == 0 {
		return competitive[0], nil
	}

	for _, c := range competitive {
		interval, _ := r.resolveInterval(c, rec)
		rc, err := src.Open(ctx)
		if err != nil {
			return nil, errors.LogUnreadable(src.Path(), err)
		}
		cerr := r.disamb.CrossScore(ctx, rc, c, interval, rec)
		rc.Close()
		if cerr != nil {
			if ctx.Err() != nil {
				return nil, errors.ContextCanceled("cross-source scan")
			}
			return nil, errors.LogUnreadable(src.Path(), cerr)
		}
	}

	r.disamb.Rank(competitive, rec)
	return competitive[0], nil
}

// resolveInterval derives the final closed interval for a candidate.
// Continuous sessions and open-ended candidates get a synthetic end at
// start + declared duration; when no duration was declared the upper
// plausibility bound stands in.
func (r *Resolver) resolveInterval(c *model.Candidate, rec *model.MetadataRecord) (model.Interval, bool) {
	start := c.Start.Timestamp
	if c.Start.Type == model.SessionContinuous || model.ContinuousCategory(rec.Category) || c.Open() {
		d := rec.DeclaredDuration
		if d <= 0 {
			d = maxPlausibleDuration
		}
		return model.Interval{Start: start, End: start.Add(d)}, true
	}
	return model.Interval{Start: start, End: c.End.Timestamp}, false
}
