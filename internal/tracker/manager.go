// Package tracker remembers the last analysis of each watched symbol between runs.
package tracker

import (
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"

	"StrengthSentinel/internal/model"
)

// Manager guards the watch state and persists it after every change.
type Manager struct {
	mu       sync.Mutex
	state    *model.WatchState
	filePath string
	now      func() time.Time
}

// NewManager creates a Manager, loading or initializing state from disk.
func NewManager(filePath string) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	m := &Manager{state: state, filePath: filePath, now: time.Now}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetState returns a copy of the current watch state.
func (m *Manager) GetState() model.WatchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.state
	cp.Entries = make(map[string]model.WatchEntry, len(m.state.Entries))
	for k, v := range m.state.Entries {
		cp.Entries[k] = v
	}
	return cp
}

// Observe stores the latest bundle for its symbol. It returns the previous entry
// and whether trend or recommendation changed; a first observation is not a change.
func (m *Manager) Observe(b *model.Bundle) (prev model.WatchEntry, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToUpper(b.Symbol)
	prev, seen := m.state.Entries[key]
	m.state.Entries[key] = model.WatchEntry{
		Symbol:         key,
		Benchmark:      b.Benchmark.ID,
		AsOf:           b.Latest.Date,
		Normalized:     b.Latest.Normalized,
		Trend:          b.Analysis.Trend,
		Recommendation: b.Analysis.Recommendation,
		ObservedAt:     m.now(),
	}
	changed = seen && (prev.Trend != b.Analysis.Trend || prev.Recommendation != b.Analysis.Recommendation)

	if err := m.save(); err != nil {
		log.Error().Err(err).Str("file", m.filePath).Msg("failed to save watch state")
	}
	return prev, changed
}

// MarkRun records the completion of a scheduled pass.
func (m *Manager) MarkRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Runs++
	m.state.LastRunAt = m.now()
	if err := m.save(); err != nil {
		log.Error().Err(err).Str("file", m.filePath).Msg("failed to save watch state")
	}
}

// Forget drops a symbol from the state.
func (m *Manager) Forget(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.Entries, strings.ToUpper(symbol))
	if err := m.save(); err != nil {
		log.Error().Err(err).Str("file", m.filePath).Msg("failed to save watch state")
	}
}

// save must be called with mu held.
func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
