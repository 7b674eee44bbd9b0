// Package hooks provides observability hooks for the resolution flow.
// Hooks allow injecting custom logic at the stages of a resolution
// without separate debug code paths.
package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/Phlares/arenaflow/internal/model"
)

// Manager manages all registered hooks.
type Manager struct {
	mu sync.RWMutex

	scanHooks      []ScanHook
	candidateHooks []CandidateHook
	resolveHooks   []ResolveHook
	extractHooks   []ExtractHook
	errorHooks     []ErrorHook
}

// NewManager creates a new hook manager.
func NewManager() *Manager {
	return &Manager{}
}

// ScanHook is called after each boundary scan.
// Use cases: progress display, scan statistics, debug logging.
type ScanHook func(ctx context.Context, info *ScanInfo)

// ScanInfo describes one completed boundary scan.
type ScanInfo struct {
	Record       string
	WindowStart  time.Time
	WindowEnd    time.Time
	Markers      int
	LinesRead    int
	LinesSkipped int
}

// CandidateHook is called after scoring, before disambiguation.
// Use cases: score tracing, candidate dumps during tuning.
type CandidateHook func(ctx context.Context, record string, candidates []*model.Candidate)

// ResolveHook is called when a record resolves to an interval.
// Use cases: audit logging, metrics.
type ResolveHook func(ctx context.Context, outcome *Outcome)

// Outcome describes a successful resolution.
type Outcome struct {
	Record      string
	Interval    model.Interval
	Composite   float64
	CrossSource float64
	Synthetic   bool
	Duration    time.Duration
}

// ExtractHook is called after feature extraction completes.
type ExtractHook func(ctx context.Context, record string, counters *model.FeatureCounters)

// ErrorHook is called when a stage fails.
// Use cases: alerting, failure audit trails.
type ErrorHook func(ctx context.Context, err error, phase string)

// RegisterScan adds a scan hook.
func (m *Manager) RegisterScan(h ScanHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanHooks = append(m.scanHooks, h)
}

// RegisterCandidate adds a candidate hook.
func (m *Manager) RegisterCandidate(h CandidateHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidateHooks = append(m.candidateHooks, h)
}

// RegisterResolve adds a resolve hook.
func (m *Manager) RegisterResolve(h ResolveHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveHooks = append(m.resolveHooks, h)
}

// RegisterExtract adds an extract hook.
func (m *Manager) RegisterExtract(h ExtractHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractHooks = append(m.extractHooks, h)
}

// RegisterError adds an error hook.
func (m *Manager) RegisterError(h ErrorHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorHooks = append(m.errorHooks, h)
}

// RunScan executes all scan hooks.
func (m *Manager) RunScan(ctx context.Context, info *ScanInfo) {
	if m == nil {
		return
	}
	m.mu.RLock()
	hooks := m.scanHooks
	m.mu.RUnlock()
	for _, h := range hooks {
		h(ctx, info)
	}
}

// RunCandidates executes all candidate hooks.
func (m *Manager) RunCandidates(ctx context.Context, record string, cands []*model.Candidate) {
	if m == nil {
		return
	}
	m.mu.RLock()
	hooks := m.candidateHooks
	m.mu.RUnlock()
	for _, h := range hooks {
		h(ctx, record, cands)
	}
}

// RunResolve executes all resolve hooks.
func (m *Manager) RunResolve(ctx context.Context, outcome *Outcome) {
	if m == nil {
		return
	}
	m.mu.RLock()
	hooks := m.resolveHooks
	m.mu.RUnlock()
	for _, h := range hooks {
		h(ctx, outcome)
	}
}

// RunExtract executes all extract hooks.
func (m *Manager) RunExtract(ctx context.Context, record string, counters *model.FeatureCounters) {
	if m == nil {
		return
	}
	m.mu.RLock()
	hooks := m.extractHooks
	m.mu.RUnlock()
	for _, h := range hooks {
		h(ctx, record, counters)
	}
}

// RunError executes all error hooks.
func (m *Manager) RunError(ctx context.Context, err error, phase string) {
	if m == nil {
		return
	}
	m.mu.RLock()
	hooks := m.errorHooks
	m.mu.RUnlock()
	for _, h := range hooks {
		h(ctx, err, phase)
	}
}
