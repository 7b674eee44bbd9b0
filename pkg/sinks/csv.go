package sinks

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/Phlares/arenaflow/internal/model"
)

// CSVSink writes feature rows to a CSV file with a header row.
type CSVSink struct {
	f *os.File
	w *csv.Writer
}

// NewCSVSink creates the file (truncating an existing one) and writes
// the header.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		f.Close()
		return nil, err
	}

	return &CSVSink{f: f, w: w}, nil
}

// WriteRow implements Sink.
func (s *CSVSink) WriteRow(_ context.Context, row *model.FeatureRow) error {
	c := &row.Counters
	return s.w.Write([]string{
		row.Filename,
		row.Interval.Start.Format(time.RFC3339),
		strconv.Itoa(c.CastSuccess),
		strconv.Itoa(c.InterruptsDone),
		strconv.Itoa(c.TimesInterrupted),
		strconv.Itoa(c.BuffGainedSelf),
		strconv.Itoa(c.BuffGainedOpponent),
		strconv.Itoa(c.Purges),
		strconv.Itoa(c.DamageDone),
		strconv.Itoa(c.HealingDone),
		strconv.Itoa(c.DeathsCaused),
		strconv.Itoa(c.TimesDied),
		joinList(c.SpellsCast),
		joinList(c.SpellsPurged),
	})
}

// Close implements Sink.
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
