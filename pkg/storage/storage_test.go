package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseStamp(t *testing.T) {
	tests := []struct {
		name     string
		expected time.Time
		ok       bool
	}{
		{"WoWCombatLog-050825_210533.txt", time.Date(2025, 5, 8, 21, 5, 33, 0, time.UTC), true},
		{"123124_235959.log", time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), true},
		{"WoWCombatLog.txt", time.Time{}, false},
		{"WoWCombatLog-999999_999999.txt", time.Time{}, false},
		{"notes.md", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := parseStamp(tt.name)
		if ok != tt.ok {
			t.Errorf("parseStamp(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.expected) {
			t.Errorf("parseStamp(%q) = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestBestCandidate(t *testing.T) {
	day := time.Date(2025, 5, 8, 0, 0, 0, 0, time.UTC)
	names := []string{"a", "b", "c", "d"}
	starts := []time.Time{
		day.Add(18 * time.Hour),      // a: starts 3h before the record
		day.Add(20 * time.Hour),      // b: starts 1h before
		day.Add(21*time.Hour + 30*time.Minute), // c: starts 30m after (beyond skew)
		day.Add(-5 * 24 * time.Hour), // d: different week
	}
	record := day.Add(21 * time.Hour)

	if got := bestCandidate(names, starts, record); got != 1 {
		t.Errorf("bestCandidate = %d (%s), want 1 (b)", got, names[got])
	}
}

func TestBestCandidate_SkewTolerance(t *testing.T) {
	day := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)

	// A log starting 5 minutes after the record is within skew.
	got := bestCandidate([]string{"late"}, []time.Time{day.Add(5 * time.Minute)}, day)
	if got != 0 {
		t.Errorf("5m-late log rejected, want accepted")
	}

	// 11 minutes after is not.
	got = bestCandidate([]string{"toolate"}, []time.Time{day.Add(11 * time.Minute)}, day)
	if got != -1 {
		t.Errorf("11m-late log accepted, want rejected")
	}
}

func TestBestCandidate_NoMatch(t *testing.T) {
	if got := bestCandidate(nil, nil, time.Now()); got != -1 {
		t.Errorf("bestCandidate on empty = %d, want -1", got)
	}
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("WoWCombatLog-050825_190000.txt", "early log\n")
	write("WoWCombatLog-050825_205500.txt", "the right log\n")
	write("README.txt", "not a log\n")

	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2 stamped logs", store.Len())
	}

	handle, err := store.Find(context.Background(), time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if filepath.Base(handle.Path()) != "WoWCombatLog-050825_205500.txt" {
		t.Errorf("Find picked %q, want the closest stamp", handle.Path())
	}

	rc, err := handle.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "the right log\n" {
		t.Errorf("read %q, want log contents", data)
	}
}

func TestLocalStore_NoCoverage(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	if _, err := store.Find(context.Background(), time.Now()); err == nil {
		t.Error("Find on empty store succeeded, want error")
	}
}

func TestLocalStore_MissingDir(t *testing.T) {
	if _, err := NewLocalStore(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("NewLocalStore on a missing directory succeeded, want error")
	}
}
