// Package resolve matches metadata records against combat-log
// sub-intervals. A resolution runs the boundary scanner over a padded
// window around the declared start, builds candidate intervals from
// the session markers it finds, scores them against the record's
// declared attributes, and falls back to ground-truth correlation
// when the scores alone cannot separate the leaders.
package resolve

import (
	"bufio"
	"context"
	"io"
	"strconv"

	"github.com/Phlares/arenaflow/internal/model"
	"github.com/Phlares/arenaflow/pkg/parser"
)

const scanBufferSize = 256 * 1024

// ScanResult is the output of one boundary scan.
type ScanResult struct {
	// Markers holds session boundary events in file order.
	Markers []*model.SessionMarker

	// LinesRead is the total line count of the pass.
	LinesRead int

	// LinesSkipped counts unparseable lines. Reported in aggregate
	// only; per-line noise would swamp batch output.
	LinesSkipped int
}

// Scanner streams a combat log once and collects session markers
// inside a bounded time window. Lines outside the window are rejected
// on the timestamp prefix alone, before any payload parsing.
type Scanner struct {
	tok *parser.Tokenizer
}

// NewScanner creates a boundary scanner.
func NewScanner() *Scanner {
	return &Scanner{tok: parser.NewTokenizer()}
}

// Scan reads r line by line and returns every session start/end marker
// whose timestamp falls inside window, in file order.
func (s *Scanner) Scan(ctx context.Context, r io.Reader, window model.Interval) (*ScanResult, error) {
	reader := bufio.NewReaderSize(r, scanBufferSize)
	res := &ScanResult{}

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
		res.LinesRead++

		ts, ok := parser.LineTimestamp(line)
		if !ok {
			res.LinesSkipped++
			if err == io.EOF {
				break
			}
			continue
		}
		if window.Contains(ts) {
			ev, perr := s.tok.Tokenize(line)
			if perr != nil {
				res.LinesSkipped++
			} else if ev.Kind == model.KindSessionStart || ev.Kind == model.KindSessionEnd {
				res.Markers = append(res.Markers, MarkerFromEvent(ev))
			}
		}

		if err == io.EOF {
			break
		}
	}

	return res, nil
}

// MarkerFromEvent builds a SessionMarker from a parsed boundary event.
// Start markers declare zone id and bracket in the first and third
// payload fields; end markers carry no attributes worth keeping.
func MarkerFromEvent(ev *model.Event) *model.SessionMarker {
	m := &model.SessionMarker{Event: *ev}
	if ev.Kind == model.KindSessionEnd {
		m.Marker = model.MarkerEnd
		return m
	}

	m.Marker = model.MarkerStart
	if len(ev.Fields) > 0 {
		if id, err := strconv.Atoi(ev.Fields[0]); err == nil {
			m.ZoneID = id
			m.Location = LocationName(id)
		}
	}
	if len(ev.Fields) > 2 {
		m.Category = ev.Fields[2]
	}
	if model.ContinuousCategory(m.Category) {
		m.Type = model.SessionContinuous
	}
	return m
}
