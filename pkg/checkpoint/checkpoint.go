// Package checkpoint tracks which metadata records have already been
// resolved, so interrupted batch runs resume instead of redoing work.
// The set is injected into the batch driver; nothing in the resolution
// flow itself consults it.
package checkpoint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Outcome records how a record finished.
type Outcome struct {
	Record     string    `json:"record"`
	Resolved   bool      `json:"resolved"`
	Reason     string    `json:"reason,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// ResolvedSet is the already-resolved record set shared by batch runs.
type ResolvedSet interface {
	// Contains reports whether the record already finished (resolved
	// or failed) in a previous run.
	Contains(ctx context.Context, record string) (bool, error)

	// Mark records a finished record.
	Mark(ctx context.Context, outcome Outcome) error

	// Outcomes returns all recorded outcomes.
	Outcomes(ctx context.Context) ([]Outcome, error)

	// Close releases backend resources.
	Close() error
}

// MemorySet is an in-process ResolvedSet, used in tests and one-shot
// runs.
type MemorySet struct {
	mu  sync.RWMutex
	set map[string]Outcome
}

// NewMemorySet creates an empty in-memory set.
func NewMemorySet() *MemorySet {
	return &MemorySet{set: make(map[string]Outcome)}
}

// Contains implements ResolvedSet.
func (s *MemorySet) Contains(_ context.Context, record string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[record]
	return ok, nil
}

// Mark implements ResolvedSet.
func (s *MemorySet) Mark(_ context.Context, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[outcome.Record] = outcome
	return nil
}

// Outcomes implements ResolvedSet.
func (s *MemorySet) Outcomes(_ context.Context) ([]Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Outcome, 0, len(s.set))
	for _, o := range s.set {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Record < out[j].Record })
	return out, nil
}

// Close implements ResolvedSet.
func (s *MemorySet) Close() error { return nil }

// FileSet persists outcomes to a JSON file, written atomically via a
// temp file and rename.
type FileSet struct {
	path string

	mu  sync.Mutex
	set map[string]Outcome
}

// NewFileSet loads (or creates) the set at path.
func NewFileSet(path string) (*FileSet, error) {
	s := &FileSet{path: path, set: make(map[string]Outcome)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	var outcomes []Outcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return nil, err
	}
	for _, o := range outcomes {
		s.set[o.Record] = o
	}
	return s, nil
}

// Contains implements ResolvedSet.
func (s *FileSet) Contains(_ context.Context, record string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[record]
	return ok, nil
}

// Mark implements ResolvedSet. Every mark rewrites the file; batch
// throughput is bounded by log scanning, not by this.
func (s *FileSet) Mark(_ context.Context, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[outcome.Record] = outcome
	return s.saveLocked()
}

// Outcomes implements ResolvedSet.
func (s *FileSet) Outcomes(_ context.Context) ([]Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Outcome, 0, len(s.set))
	for _, o := range s.set {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Record < out[j].Record })
	return out, nil
}

// Close implements ResolvedSet.
func (s *FileSet) Close() error { return nil }

func (s *FileSet) saveLocked() error {
	outcomes := make([]Outcome, 0, len(s.set))
	for _, o := range s.set {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Record < outcomes[j].Record })

	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
