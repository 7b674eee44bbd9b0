package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Phlares/arenaflow/internal/model"
	"github.com/Phlares/arenaflow/pkg/checkpoint"
	"github.com/Phlares/arenaflow/pkg/config"
	"github.com/Phlares/arenaflow/pkg/ownership"
	"github.com/Phlares/arenaflow/pkg/storage"
)

// captureSink collects rows in memory.
type captureSink struct {
	mu   sync.Mutex
	rows []*model.FeatureRow
}

func (s *captureSink) WriteRow(_ context.Context, row *model.FeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

func (s *captureSink) Close() error { return nil }

func logLine(ts time.Time, event string, fields ...string) string {
	return ts.Format("1/2/2006 15:04:05.000") + "  " + event + "," + strings.Join(fields, ",") + "\n"
}

func castLine(ts time.Time, source, spell string) string {
	return logLine(ts, "SPELL_CAST_SUCCESS",
		"Player-1096-AAAA", source, "0x511", "0x0",
		"Player-1096-BBBB", "Velra-Stormrage", "0x512", "0x0",
		"30451", spell, "0x40")
}

func TestDriver_Run(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)

	// One combat log holding one clean 3v3 session.
	logsDir := t.TempDir()
	content := "" +
		logLine(base, "ARENA_MATCH_START", "1505", "33", "3v3", "1") +
		castLine(base.Add(30*time.Second), "Kaelys-Tichondrius", "Chaos Bolt") +
		castLine(base.Add(time.Minute), "Kaelys-Tichondrius", "Fear") +
		logLine(base.Add(4*time.Minute), "ARENA_MATCH_END", "8", "1", "123", "456")
	if err := os.WriteFile(filepath.Join(logsDir, "WoWCombatLog-050825_205500.txt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewLocalStore(logsDir)
	if err != nil {
		t.Fatal(err)
	}

	records := []*model.MetadataRecord{
		{
			Filename:      "2025-05-08_21-00-00_-_Kaelys_-_3v3_Nagrand_(Win).mp4",
			DeclaredStart: base,
			Category:      "3v3",
			Location:      "Nagrand",
			PrimaryActor:  "Kaelys",
			Reliability:   "high",
		},
		{
			// Declared hours past the session: no markers in window.
			Filename:      "2025-05-09_03-00-00_-_Kaelys_-_3v3_Nagrand_(Loss).mp4",
			DeclaredStart: base.Add(6 * time.Hour),
			Category:      "3v3",
			Location:      "Nagrand",
			PrimaryActor:  "Kaelys",
			Reliability:   "low",
		},
		{
			Filename:      "already-done.mp4",
			DeclaredStart: base,
			Category:      "3v3",
			PrimaryActor:  "Kaelys",
		},
	}

	resolved := checkpoint.NewMemorySet()
	if err := resolved.Mark(ctx, checkpoint.Outcome{Record: "already-done.mp4", Resolved: true}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Batch.Workers = 2

	sink := &captureSink{}
	idx := ownership.New(map[string]string{"Felhunter": "Kaelys"})

	var progressed int
	var mu sync.Mutex
	d := New(cfg, store, idx, sink, resolved, WithProgress(func(*Result) {
		mu.Lock()
		progressed++
		mu.Unlock()
	}))

	summary, err := d.Run(ctx, records)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Total != 3 || summary.Resolved != 1 || summary.Unresolved != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want total=3 resolved=1 unresolved=1 skipped=1", summary)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(summary.Failures))
	}
	if summary.Failures[0].Record != records[1].Filename {
		t.Errorf("failure record = %q, want the windowless one", summary.Failures[0].Record)
	}
	if progressed != 3 {
		t.Errorf("progress callback ran %d times, want 3", progressed)
	}

	if len(sink.rows) != 1 {
		t.Fatalf("sink got %d rows, want 1", len(sink.rows))
	}
	row := sink.rows[0]
	if row.Filename != records[0].Filename {
		t.Errorf("row.Filename = %q", row.Filename)
	}
	if row.Counters.CastSuccess != 2 {
		t.Errorf("CastSuccess = %d, want 2", row.Counters.CastSuccess)
	}
	if !row.Interval.Start.Equal(base) {
		t.Errorf("Interval.Start = %v, want %v", row.Interval.Start, base)
	}

	// Both finished records land in the resolved set; a rerun skips
	// everything.
	done, _ := resolved.Contains(ctx, records[0].Filename)
	if !done {
		t.Error("resolved record not marked")
	}
	done, _ = resolved.Contains(ctx, records[1].Filename)
	if !done {
		t.Error("deterministically failed record not marked")
	}

	rerun, err := d.Run(ctx, records)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if rerun.Skipped != 3 {
		t.Errorf("rerun skipped %d, want 3", rerun.Skipped)
	}
	if len(sink.rows) != 1 {
		t.Error("rerun wrote duplicate rows")
	}
}

func TestDriver_CanceledContext(t *testing.T) {
	logsDir := t.TempDir()
	base := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)
	if err := os.WriteFile(filepath.Join(logsDir, "050825_205500.txt"),
		[]byte(logLine(base, "ARENA_MATCH_START", "1505", "33", "3v3", "1")), 0644); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewLocalStore(logsDir)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.Default()
	d := New(cfg, store, nil, &captureSink{}, nil)
	_, err = d.Run(ctx, []*model.MetadataRecord{{
		Filename:      "a.mp4",
		DeclaredStart: base,
		Category:      "3v3",
		PrimaryActor:  "Kaelys",
	}})
	if err == nil {
		t.Error("Run with canceled context succeeded, want error")
	}
}

func TestGroupByReliability(t *testing.T) {
	records := []*model.MetadataRecord{
		{Filename: "low1.mp4", Reliability: "low"},
		{Filename: "high1.mp4", Reliability: "high"},
		{Filename: "odd.mp4", Reliability: "dubious"},
		{Filename: "med1.mp4", Reliability: "medium"},
		{Filename: "high2.mp4", Reliability: "high"},
	}

	groups := groupByReliability(records)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].Filename != "high1.mp4" {
		t.Errorf("first group = %v, want the high records", names(groups[0]))
	}
	if len(groups[1]) != 1 || groups[1][0].Filename != "med1.mp4" {
		t.Errorf("second group = %v, want the medium records", names(groups[1]))
	}
	// Unknown grades fold into the low group.
	if len(groups[2]) != 2 {
		t.Errorf("third group = %v, want low plus unknown", names(groups[2]))
	}
}

func names(recs []*model.MetadataRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Filename
	}
	return out
}

func TestDriver_EmitsSpansPerRecord(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx := context.Background()
	base := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)

	logsDir := t.TempDir()
	content := "" +
		logLine(base, "ARENA_MATCH_START", "1505", "33", "3v3", "1") +
		castLine(base.Add(30*time.Second), "Kaelys-Tichondrius", "Chaos Bolt") +
		logLine(base.Add(4*time.Minute), "ARENA_MATCH_END", "8", "1", "123", "456")
	if err := os.WriteFile(filepath.Join(logsDir, "WoWCombatLog-050825_205500.txt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewLocalStore(logsDir)
	if err != nil {
		t.Fatal(err)
	}

	records := []*model.MetadataRecord{
		{
			Filename:      "2025-05-08_21-00-00_-_Kaelys_-_3v3_Nagrand_(Win).mp4",
			DeclaredStart: base,
			Category:      "3v3",
			Location:      "Nagrand",
			PrimaryActor:  "Kaelys",
			Reliability:   "high",
		},
		{
			// Declared hours past the session: resolution fails.
			Filename:      "2025-05-09_03-00-00_-_Kaelys_-_3v3_Nagrand_(Loss).mp4",
			DeclaredStart: base.Add(6 * time.Hour),
			Category:      "3v3",
			Location:      "Nagrand",
			PrimaryActor:  "Kaelys",
			Reliability:   "low",
		},
	}

	cfg := config.Default()
	cfg.Batch.Workers = 1

	d := New(cfg, store, nil, &captureSink{}, nil)
	if _, err := d.Run(ctx, records); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	byName := map[string]int{}
	for _, span := range recorder.Ended() {
		byName[span.Name()]++
	}
	if byName["record.process"] != 2 {
		t.Errorf("record.process spans = %d, want 2", byName["record.process"])
	}
	if byName["record.resolve"] != 1 {
		t.Errorf("record.resolve spans = %d, want 1", byName["record.resolve"])
	}
	if byName["record.extract"] != 1 {
		t.Errorf("record.extract spans = %d, want 1", byName["record.extract"])
	}

	// The failing record's span carries the error.
	var errorEvents int
	for _, span := range recorder.Ended() {
		if span.Name() != "record.process" {
			continue
		}
		for _, ev := range span.Events() {
			if ev.Name == "exception" {
				errorEvents++
			}
		}
	}
	if errorEvents != 1 {
		t.Errorf("process spans with error events = %d, want 1", errorEvents)
	}
}
