package resolve

import (
	"bufio"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/Phlares/arenaflow/internal/model"
	"github.com/Phlares/arenaflow/pkg/config"
	"github.com/Phlares/arenaflow/pkg/ownership"
	"github.com/Phlares/arenaflow/pkg/parser"
)

// Disambiguator re-ranks competitive candidates using the record's
// ground-truth elimination list. It is invoked only when scoring
// leaves two or more candidates within the ambiguity margin, or none
// above the high-confidence threshold.
type Disambiguator struct {
	cfg config.ResolverConfig
	tok *parser.Tokenizer
}

// NewDisambiguator creates a cross-source disambiguator.
func NewDisambiguator(cfg config.ResolverConfig) *Disambiguator {
	return &Disambiguator{cfg: cfg, tok: parser.NewTokenizer()}
}

// CrossScore re-scans the candidate's interval in r, counting
// elimination events against the record's ground-truth list, and sets
// the candidate's CrossSourceScore to the fraction of ground-truth
// events that find a timing-and-identity match inside the interval.
func (d *Disambiguator) CrossScore(ctx context.Context, r io.Reader, c *model.Candidate, interval model.Interval, rec *model.MetadataRecord) error {
	if len(rec.GroundTruth) == 0 {
		return nil
	}

	elims, err := d.scanEliminations(ctx, r, interval)
	if err != nil {
		return err
	}

	matched := 0
	used := make([]bool, len(elims))
	for _, gt := range rec.GroundTruth {
		expected := c.Start.Timestamp.Add(gt.Offset)
		for i, ev := range elims {
			if used[i] {
				continue
			}
			diff := ev.Timestamp.Sub(expected)
			if diff < 0 {
				diff = -diff
			}
			if diff <= d.cfg.GroundTruthTolerance && identityMatches(gt.ActorID, ev.TargetID) {
				used[i] = true
				matched++
				break
			}
		}
	}

	c.CrossSourceScore = float64(matched) / float64(len(rec.GroundTruth))
	return nil
}

// scanEliminations streams r collecting elimination events inside the
// closed interval.
func (d *Disambiguator) scanEliminations(ctx context.Context, r io.Reader, interval model.Interval) ([]*model.Event, error) {
	reader := bufio.NewReaderSize(r, scanBufferSize)
	var elims []*model.Event

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}

		if ts, ok := parser.LineTimestamp(line); ok && interval.Contains(ts) {
			if ev, perr := d.tok.Tokenize(line); perr == nil && ev.Kind == model.KindActorEliminated {
				elims = append(elims, ev)
			}
		}

		if err == io.EOF {
			break
		}
	}
	return elims, nil
}

// identityMatches compares a ground-truth actor id against a log
// identity field. Realm/region qualifiers and volatile summon
// suffixes are stripped from both sides.
func identityMatches(truth, logged string) bool {
	return strings.EqualFold(ownership.BaseName(truth), ownership.BaseName(logged))
}

// Rank orders candidates best-first in place after cross-source
// scoring. When duration data and ground truth are both available the
// key is 0.7*duration-agreement + 0.3*cross-source; with ground truth
// alone the cross-source score decides; when neither discriminates,
// ranking falls back to pure proximity.
func (d *Disambiguator) Rank(cands []*model.Candidate, rec *model.MetadataRecord) {
	haveDuration := false
	crossSpread := false
	for i, c := range cands {
		if durationAgreement(c, rec) >= 0 {
			haveDuration = true
		}
		if i > 0 && c.CrossSourceScore != cands[0].CrossSourceScore {
			crossSpread = true
		}
	}

	switch {
	case haveDuration && len(rec.GroundTruth) > 0:
		key := func(c *model.Candidate) float64 {
			da := durationAgreement(c, rec)
			if da < 0 {
				da = 0
			}
			return 0.7*da + 0.3*c.CrossSourceScore
		}
		sort.SliceStable(cands, func(i, j int) bool {
			return key(cands[i]) > key(cands[j])
		})
	case crossSpread:
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].CrossSourceScore > cands[j].CrossSourceScore
		})
	default:
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].ProximityScore > cands[j].ProximityScore
		})
	}
}
