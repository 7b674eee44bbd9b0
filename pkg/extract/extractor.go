// Package extract performs the second, attributed pass over a combat
// log: every event inside the resolved interval is classified into a
// fixed set of per-actor counters, folding owned sub-agent actions
// into the primary actor's counters under category-specific rules.
package extract

import (
	"bufio"
	"context"
	"io"

	"github.com/Phlares/arenaflow/internal/model"
	"github.com/Phlares/arenaflow/pkg/config"
	"github.com/Phlares/arenaflow/pkg/ownership"
	"github.com/Phlares/arenaflow/pkg/parser"
)

const extractBufferSize = 256 * 1024

// Payload field positions for the event kinds the extractor reads.
const (
	fieldSpellName  = 9
	fieldPurgedAura = 11
)

// Minimum payload lengths per event kind; shorter lines are skipped.
const (
	minFieldsSpell  = 10
	minFieldsDispel = 12
	minFieldsDied   = 6
)

// Extractor classifies events in a resolved interval into counters.
// Stateless and safe for concurrent use; the ownership index it holds
// is read-only.
type Extractor struct {
	cfg   config.ResolverConfig
	owner *ownership.Index
	tok   *parser.Tokenizer
}

// New creates an Extractor. idx may be nil when no sub-agent ownership
// data is available; sub-agent attribution then never matches.
func New(cfg config.ResolverConfig, idx *ownership.Index) *Extractor {
	return &Extractor{cfg: cfg, owner: idx, tok: parser.NewTokenizer()}
}

// Extract makes a single forward pass over r, processing every event
// whose timestamp falls inside the closed interval, and returns the
// finished counters. Counters only increment; no lookahead is done.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, interval model.Interval, primaryActor string) (*model.FeatureCounters, error) {
	reader := bufio.NewReaderSize(r, extractBufferSize)
	counters := model.NewFeatureCounters()

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
			if ev, perr := e.tok.Tokenize(line); perr == nil {
				e.apply(ev, primaryActor, counters)
			}
		}

		if err == io.EOF {
			break
		}
	}

	return counters, nil
}

// apply folds one event into the counters.
func (e *Extractor) apply(ev *model.Event, primaryActor string, c *model.FeatureCounters) {
	switch ev.Kind {
	case model.KindCastSuccess:
		// Casts count for the primary actor only; a sub-agent's casts
		// belong to nobody.
		if len(ev.Fields) < minFieldsSpell {
			return
		}
		if ownership.BaseName(ev.ActorID) == primaryActor {
			c.CastSuccess++
			c.SpellsCast = append(c.SpellsCast, ev.Fields[fieldSpellName])
		}

	case model.KindDispel:
		// Only the recognized purge spell, and only when cast by a
		// sub-agent the index attributes to the primary actor.
		if len(ev.Fields) < minFieldsDispel {
			return
		}
		if ev.Fields[fieldSpellName] != e.cfg.PurgeSpell {
			return
		}
		if e.ownedBy(ev.ActorID, primaryActor) {
			c.Purges++
			c.SpellsPurged = append(c.SpellsPurged, ev.Fields[fieldPurgedAura])
		}

	case model.KindInterrupt:
		// Actor and owned sub-agents count as one unit, both
		// directions. Source attribution wins when both sides match.
		if len(ev.Fields) < minFieldsSpell {
			return
		}
		src := ownership.BaseName(ev.ActorID)
		dst := ownership.BaseName(ev.TargetID)
		switch {
		case src == primaryActor || e.ownedBy(ev.ActorID, primaryActor):
			c.InterruptsDone++
		case dst == primaryActor || e.ownedBy(ev.TargetID, primaryActor):
			c.TimesInterrupted++
		}

	case model.KindAuraApplied:
		if len(ev.Fields) < minFieldsSpell {
			return
		}
		if ev.Fields[fieldSpellName] != e.cfg.TrackedAura {
			return
		}
		if ownership.BaseName(ev.TargetID) == primaryActor {
			c.BuffGainedSelf++
		} else {
			c.BuffGainedOpponent++
		}

	case model.KindActorEliminated:
		if len(ev.Fields) < minFieldsDied {
			return
		}
		if ownership.BaseName(ev.TargetID) == primaryActor {
			c.TimesDied++
		}
	}
}

// ownedBy reports whether id (after suffix stripping) is a sub-agent
// the index attributes to owner.
func (e *Extractor) ownedBy(id, owner string) bool {
	if e.owner == nil {
		return false
	}
	return e.owner.OwnedBy(ownership.BaseName(id), owner)
}
