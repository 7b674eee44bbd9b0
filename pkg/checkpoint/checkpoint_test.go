package checkpoint

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestMemorySet(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySet()
	defer s.Close()

	ok, err := s.Contains(ctx, "a.mp4")
	if err != nil || ok {
		t.Errorf("Contains on empty set = %v, %v", ok, err)
	}

	if err := s.Mark(ctx, Outcome{Record: "a.mp4", Resolved: true, FinishedAt: time.Now()}); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if err := s.Mark(ctx, Outcome{Record: "b.mp4", Resolved: false, Reason: "[E201] no markers", FinishedAt: time.Now()}); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}

	ok, _ = s.Contains(ctx, "a.mp4")
	if !ok {
		t.Error("Contains(a.mp4) = false after Mark")
	}

	outcomes, err := s.Outcomes(ctx)
	if err != nil {
		t.Fatalf("Outcomes failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	// Sorted by record name.
	if outcomes[0].Record != "a.mp4" || outcomes[1].Record != "b.mp4" {
		t.Errorf("outcomes out of order: %v", outcomes)
	}
	if outcomes[1].Reason != "[E201] no markers" {
		t.Errorf("Reason = %q, dropped on round trip", outcomes[1].Reason)
	}
}

func TestFileSet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "resolved.json")

	s, err := NewFileSet(path)
	if err != nil {
		t.Fatalf("NewFileSet failed: %v", err)
	}
	if err := s.Mark(ctx, Outcome{Record: "a.mp4", Resolved: true, FinishedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	s.Close()

	// A fresh set over the same path sees the previous run.
	reloaded, err := NewFileSet(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	defer reloaded.Close()

	ok, err := reloaded.Contains(ctx, "a.mp4")
	if err != nil || !ok {
		t.Errorf("Contains after reload = %v, %v, want true", ok, err)
	}
	outcomes, _ := reloaded.Outcomes(ctx)
	if len(outcomes) != 1 || !outcomes[0].Resolved {
		t.Errorf("outcomes after reload = %v", outcomes)
	}
}

func TestFileSet_MissingFileIsEmpty(t *testing.T) {
	s, err := NewFileSet(filepath.Join(t.TempDir(), "never-written.json"))
	if err != nil {
		t.Fatalf("NewFileSet failed: %v", err)
	}
	defer s.Close()

	outcomes, _ := s.Outcomes(context.Background())
	if len(outcomes) != 0 {
		t.Errorf("fresh set has %d outcomes, want 0", len(outcomes))
	}
}

func TestFileSet_Remark(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "resolved.json")

	s, err := NewFileSet(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.Mark(ctx, Outcome{Record: "a.mp4", Resolved: false, Reason: "transient"})
	s.Mark(ctx, Outcome{Record: "a.mp4", Resolved: true})

	outcomes, _ := s.Outcomes(ctx)
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1 after remark", len(outcomes))
	}
	if !outcomes[0].Resolved || outcomes[0].Reason != "" {
		t.Errorf("remark did not replace the outcome: %+v", outcomes[0])
	}
}
