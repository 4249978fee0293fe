// Package data loads the design-system datasets from their backing files,
// validates them, and holds them as one atomic in-memory snapshot. When
// file watching is enabled the snapshot is refreshed asynchronously after
// the backing files change; a failed reload never disturbs the snapshot
// already being served.
package data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"designkit/internal/errdefs"
)

// Backing file names recognized inside the data directory.
const (
	TokensFile     = "tokens.json"
	ComponentsFile = "components.json"
	GuidelinesFile = "guidelines.json"
)

// Config configures the data manager.
type Config struct {
	// DataDir is the directory holding the three dataset files. It is also
	// the file-watch root.
	DataDir string

	// WatchFiles enables hot reload when the backing files change.
	WatchFiles bool

	// CacheTTL bounds CacheValid. The TTL is advisory: nothing evicts or
	// reloads on expiry, callers that care must check CacheValid themselves.
	CacheTTL time.Duration
}

// DefaultConfig returns the default manager configuration for a data dir.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:    dataDir,
		WatchFiles: true,
		CacheTTL:   5 * time.Minute,
	}
}

// LoadResult reports the outcome of one Load, including the aggregated
// warnings from missing files, parse failures and dropped elements. A load
// can succeed overall while still carrying warnings, so callers can detect
// partial degradation.
type LoadResult struct {
	Snapshot *Snapshot
	Warnings []string
}

// Manager owns the cached snapshot. It is the sole writer; facades obtain a
// non-owning reference per call through Cached.
type Manager struct {
	cfg      Config
	validate *validator.Validate

	mu       sync.RWMutex
	snapshot *Snapshot

	// loading is the single-flight guard: at most one load runs at a time,
	// shared by manual and watcher-triggered loads.
	loading atomic.Bool

	watcher *watcher

	handlersMu sync.RWMutex
	handlers   []EventHandler
}

// NewManager creates a data manager. The data directory must be configured;
// it does not have to exist yet.
func NewManager(cfg Config) (*Manager, error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, errdefs.New(errdefs.ConfigurationError, "data directory must be configured")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig(cfg.DataDir).CacheTTL
	}
	return &Manager{
		cfg:      cfg,
		validate: newValidator(),
	}, nil
}

// OnEvent registers a subscriber for manager events.
func (m *Manager) OnEvent(h EventHandler) {
	if h == nil {
		return
	}
	m.handlersMu.Lock()
	m.handlers = append(m.handlers, h)
	m.handlersMu.Unlock()
}

func (m *Manager) emit(ev Event) {
	m.handlersMu.RLock()
	handlers := make([]EventHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.handlersMu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Initialize performs the first load and, on success, starts the file
// watcher when watching is enabled.
func (m *Manager) Initialize(ctx context.Context) (*LoadResult, error) {
	res, err := m.Load(ctx)
	if err != nil {
		return res, err
	}

	if m.cfg.WatchFiles {
		if werr := m.startWatcher(ctx); werr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("file watching disabled: %v", werr))
		}
	}
	return res, nil
}

// Load reads, parses and validates the three dataset files and atomically
// replaces the cached snapshot on success. Elements that fail validation are
// dropped from their collection rather than aborting the load; the load
// succeeds overall when at least one collection ends up with an entry. A
// concurrent Load fails immediately instead of queuing.
func (m *Manager) Load(ctx context.Context) (*LoadResult, error) {
	if !m.loading.CompareAndSwap(false, true) {
		return nil, errdefs.New(errdefs.ServiceUnavailable, "data load already in progress").
			WithSuggestions("Wait for the in-flight load to finish and retry")
	}
	defer m.loading.Store(false)

	if err := ctx.Err(); err != nil {
		return nil, errdefs.New(errdefs.ServiceError, "load canceled").WithCause(err)
	}

	var warnings []string

	tokens, w := loadDataset[DesignToken](m.validate, m.cfg.DataDir, TokensFile, "tokens")
	warnings = append(warnings, w...)

	components, w := loadDataset[Component](m.validate, m.cfg.DataDir, ComponentsFile, "components")
	warnings = append(warnings, w...)

	guidelines, w := loadDataset[Guideline](m.validate, m.cfg.DataDir, GuidelinesFile, "guidelines")
	warnings = append(warnings, w...)

	snapshot := &Snapshot{
		Tokens:      tokens,
		Components:  components,
		Guidelines:  guidelines,
		LastUpdated: time.Now(),
	}

	res := &LoadResult{Snapshot: snapshot, Warnings: warnings}

	if snapshot.Empty() {
		err := errdefs.Newf(errdefs.InvalidData,
			"no valid entries in any dataset under %s", m.cfg.DataDir).
			WithContext("warnings", warnings).
			WithSuggestions(
				"Check that tokens.json, components.json and guidelines.json exist in the data directory",
				"Check the aggregated warnings for parse and validation failures",
			)
		return res, err
	}

	// Single assignment: readers see either the full old snapshot or the
	// full new one, never a mix.
	m.mu.Lock()
	m.snapshot = snapshot
	m.mu.Unlock()

	m.emit(Event{Type: EventDataLoaded, Snapshot: snapshot, Warnings: warnings, Time: time.Now()})
	return res, nil
}

// loadDataset reads one dataset file. A missing file or a parse failure
// yields an empty collection plus a warning, never a hard error.
func loadDataset[T entity](v *validator.Validate, dir, file, dataset string) ([]T, []string) {
	path := filepath.Join(dir, file)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, []string{fmt.Sprintf("%s: file not found: %s", dataset, path)}
		}
		return nil, []string{fmt.Sprintf("%s: cannot stat %s: %v", dataset, path, err)}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, []string{fmt.Sprintf("%s: cannot read %s: %v", dataset, path, err)}
	}

	return decodeElements[T](v, dataset, raw)
}

// Cached returns the current snapshot, or nil when no load has succeeded
// yet. It never blocks and never triggers a reload.
func (m *Manager) Cached() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// CacheValid reports whether a snapshot exists and is younger than the
// configured TTL. Advisory only.
func (m *Manager) CacheValid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return false
	}
	return time.Since(m.snapshot.LastUpdated) < m.cfg.CacheTTL
}

// CacheStatus describes the cache for health reporting.
type CacheStatus struct {
	Loaded      bool           `json:"loaded"`
	Valid       bool           `json:"valid"`
	Watching    bool           `json:"watching"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
	Counts      map[string]int `json:"counts,omitempty"`
}

// Status returns a point-in-time description of the cache.
func (m *Manager) Status() CacheStatus {
	m.mu.RLock()
	snapshot := m.snapshot
	m.mu.RUnlock()

	st := CacheStatus{Watching: m.watching()}
	if snapshot == nil {
		return st
	}
	t := snapshot.LastUpdated
	st.Loaded = true
	st.Valid = time.Since(t) < m.cfg.CacheTTL
	st.LastUpdated = &t
	st.Counts = snapshot.Counts()
	return st
}

func (m *Manager) watching() bool {
	return m.watcher != nil && m.watcher.active()
}

// startWatcher wires the debounced file watcher to reloads.
func (m *Manager) startWatcher(ctx context.Context) error {
	recognized := []string{TokensFile, ComponentsFile, GuidelinesFile}

	w, err := newWatcher(m.cfg.DataDir, recognized,
		func(changes []fileChange) { m.handleFileChanges(ctx, changes) },
		func(err error) { m.emit(Event{Type: EventWatchError, Err: err, Time: time.Now()}) },
	)
	if err != nil {
		return err
	}
	if err := w.start(ctx); err != nil {
		w.stop()
		return err
	}
	m.watcher = w
	return nil
}

// handleFileChanges is invoked by the watcher after the debounce window
// closes. It reports the individual file events, then refreshes the cache.
// The previous snapshot stays authoritative until the reload succeeds.
func (m *Manager) handleFileChanges(ctx context.Context, changes []fileChange) {
	for _, c := range changes {
		m.emit(Event{Type: c.eventType(), Path: c.path, Time: c.at})
	}

	res, err := m.Load(ctx)
	if err != nil {
		var warnings []string
		if res != nil {
			warnings = res.Warnings
		}
		m.emit(Event{Type: EventDataError, Warnings: warnings, Err: err, Time: time.Now()})
		return
	}
	m.emit(Event{Type: EventDataUpdated, Snapshot: res.Snapshot, Warnings: res.Warnings, Time: time.Now()})
}

// Close stops the watcher and clears the cached snapshot and all
// subscribers. Explicit teardown; the manager is not reusable afterwards.
func (m *Manager) Close() error {
	if m.watcher != nil {
		m.watcher.stop()
		m.watcher = nil
	}

	m.mu.Lock()
	m.snapshot = nil
	m.mu.Unlock()

	m.handlersMu.Lock()
	m.handlers = nil
	m.handlersMu.Unlock()
	return nil
}
