// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all ArenaFlow configuration.
type Config struct {
	Version int `yaml:"version"`

	Resolver   ResolverConfig   `yaml:"resolver"`
	Batch      BatchConfig      `yaml:"batch"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Sinks      SinksConfig      `yaml:"sinks"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ResolverConfig controls candidate scoring and window sizing. The
// weights are empirically tuned defaults, not invariants; they are
// deliberately exposed here rather than hard-coded.
type ResolverConfig struct {
	// AttributeWeight scores declared category+location agreement.
	AttributeWeight float64 `yaml:"attribute_weight"`

	// ProximityWeight scores temporal closeness to the declared start.
	ProximityWeight float64 `yaml:"proximity_weight"`

	// DurationWeight is the plausible-duration sanity bonus.
	DurationWeight float64 `yaml:"duration_weight"`

	// ZoneIDWeight scores an authoritative numeric location id match
	// and supersedes AttributeWeight when the id is available.
	ZoneIDWeight float64 `yaml:"zone_id_weight"`

	// HighConfidence is the composite score above which a lone leader
	// ends resolution without cross-source checking.
	HighConfidence float64 `yaml:"high_confidence"`

	// AmbiguityMargin is the score distance under which two candidates
	// are considered competitive.
	AmbiguityMargin float64 `yaml:"ambiguity_margin"`

	// ViabilityBar is the minimum composite score for any candidate to
	// be accepted at all.
	ViabilityBar float64 `yaml:"viability_bar"`

	// MaxStartOffset excludes candidates whose start is further than
	// this from the declared start.
	MaxStartOffset time.Duration `yaml:"max_start_offset"`

	// SearchPadding widens the boundary-scan window on both sides of
	// the declared span to tolerate clock skew (extended further by
	// the per-record reliability grade).
	SearchPadding time.Duration `yaml:"search_padding"`

	// GroundTruthTolerance is the timing window for matching a
	// ground-truth elimination against a log event.
	GroundTruthTolerance time.Duration `yaml:"ground_truth_tolerance"`

	// PurgeSpell is the recognized dispel attributed to owned
	// sub-agents.
	PurgeSpell string `yaml:"purge_spell"`

	// TrackedAura is the named buff counted as gained self/opponent.
	TrackedAura string `yaml:"tracked_aura"`
}

// BatchConfig controls the batch driver.
type BatchConfig struct {
	// Workers caps concurrent per-record resolutions (0 = NumCPU).
	Workers int `yaml:"workers"`

	// LogsDir is the default combat-log directory.
	LogsDir string `yaml:"logs_dir"`
}

// CheckpointConfig selects the already-resolved set backend.
type CheckpointConfig struct {
	Backend string `yaml:"backend"` // memory | file | redis
	Path    string `yaml:"path"`    // file backend

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

// SinksConfig controls feature output.
type SinksConfig struct {
	Format      string `yaml:"format"` // csv | parquet | duckdb
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"` // parquet: snappy | zstd | gzip | none
}

// TelemetryConfig for optional OTLP trace export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// MetricsConfig for the Prometheus registry.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	flowDir := filepath.Join(homeDir, ".arenaflow")

	return &Config{
		Version: 1,
		Resolver: ResolverConfig{
			AttributeWeight:      0.4,
			ProximityWeight:      0.3,
			DurationWeight:       0.1,
			ZoneIDWeight:         0.5,
			HighConfidence:       0.8,
			AmbiguityMargin:      0.1,
			ViabilityBar:         0.3,
			MaxStartOffset:       10 * time.Minute,
			SearchPadding:        2 * time.Minute,
			GroundTruthTolerance: 10 * time.Second,
			PurgeSpell:           "Devour Magic",
			TrackedAura:          "Precognition",
		},
		Batch: BatchConfig{
			Workers: 0, // auto
		},
		Checkpoint: CheckpointConfig{
			Backend:     "file",
			Path:        filepath.Join(flowDir, "resolved.json"),
			RedisPrefix: "arenaflow:resolved:",
			RedisTTL:    0,
		},
		Sinks: SinksConfig{
			Format:      "csv",
			Compression: "snappy",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "localhost:9184",
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()

	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	m.loadEnv()
	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/arenaflow/config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".arenaflow", "config.yaml"))
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".arenaflow.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	r := &src.Resolver
	dst := &m.config.Resolver
	if r.AttributeWeight != 0 {
		dst.AttributeWeight = r.AttributeWeight
	}
	if r.ProximityWeight != 0 {
		dst.ProximityWeight = r.ProximityWeight
	}
	if r.DurationWeight != 0 {
		dst.DurationWeight = r.DurationWeight
	}
	if r.ZoneIDWeight != 0 {
		dst.ZoneIDWeight = r.ZoneIDWeight
	}
	if r.HighConfidence != 0 {
		dst.HighConfidence = r.HighConfidence
	}
	if r.AmbiguityMargin != 0 {
		dst.AmbiguityMargin = r.AmbiguityMargin
	}
	if r.ViabilityBar != 0 {
		dst.ViabilityBar = r.ViabilityBar
	}
	if r.MaxStartOffset != 0 {
		dst.MaxStartOffset = r.MaxStartOffset
	}
	if r.SearchPadding != 0 {
		dst.SearchPadding = r.SearchPadding
	}
	if r.GroundTruthTolerance != 0 {
		dst.GroundTruthTolerance = r.GroundTruthTolerance
	}
	if r.PurgeSpell != "" {
		dst.PurgeSpell = r.PurgeSpell
	}
	if r.TrackedAura != "" {
		dst.TrackedAura = r.TrackedAura
	}

	if src.Batch.Workers != 0 {
		m.config.Batch.Workers = src.Batch.Workers
	}
	if src.Batch.LogsDir != "" {
		m.config.Batch.LogsDir = src.Batch.LogsDir
	}

	if src.Checkpoint.Backend != "" {
		m.config.Checkpoint.Backend = src.Checkpoint.Backend
	}
	if src.Checkpoint.Path != "" {
		m.config.Checkpoint.Path = src.Checkpoint.Path
	}
	if src.Checkpoint.RedisAddr != "" {
		m.config.Checkpoint.RedisAddr = src.Checkpoint.RedisAddr
	}
	if src.Checkpoint.RedisPassword != "" {
		m.config.Checkpoint.RedisPassword = src.Checkpoint.RedisPassword
	}
	if src.Checkpoint.RedisDB != 0 {
		m.config.Checkpoint.RedisDB = src.Checkpoint.RedisDB
	}
	if src.Checkpoint.RedisPrefix != "" {
		m.config.Checkpoint.RedisPrefix = src.Checkpoint.RedisPrefix
	}
	if src.Checkpoint.RedisTTL != 0 {
		m.config.Checkpoint.RedisTTL = src.Checkpoint.RedisTTL
	}

	if src.Sinks.Format != "" {
		m.config.Sinks.Format = src.Sinks.Format
	}
	if src.Sinks.Path != "" {
		m.config.Sinks.Path = src.Sinks.Path
	}
	if src.Sinks.Compression != "" {
		m.config.Sinks.Compression = src.Sinks.Compression
	}

	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
	if src.Metrics.Enabled {
		m.config.Metrics.Enabled = true
	}
	if src.Metrics.Listen != "" {
		m.config.Metrics.Listen = src.Metrics.Listen
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("ARENAFLOW_LOGS_DIR"); v != "" {
		m.config.Batch.LogsDir = v
	}
	if v := os.Getenv("ARENAFLOW_REDIS_ADDR"); v != "" {
		m.config.Checkpoint.RedisAddr = v
		m.config.Checkpoint.Backend = "redis"
	}
	if v := os.Getenv("ARENAFLOW_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Endpoint = v
		m.config.Telemetry.Enabled = true
	}
	if v := os.Getenv("ARENAFLOW_WORKERS"); v != "" {
		var workers int
		if _, err := fmt.Sscanf(v, "%d", &workers); err == nil {
			m.config.Batch.Workers = workers
		}
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".arenaflow")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}
