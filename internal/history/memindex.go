package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Compile-time assertion: *MemIndex satisfies Index.
var _ Index = (*MemIndex)(nil)

// MemIndex implements Index with Go maps. Thread-safe via sync.RWMutex.
type MemIndex struct {
	mu      sync.RWMutex
	runs    map[string]Run
	units   map[string]bool
	modules map[string]bool
}

// NewMemIndex returns an empty MemIndex.
func NewMemIndex() *MemIndex {
	return &MemIndex{
		runs:    make(map[string]Run),
		units:   make(map[string]bool),
		modules: make(map[string]bool),
	}
}

// InitSchema is a no-op for the in-memory index.
func (m *MemIndex) InitSchema(_ context.Context) error {
	return nil
}

func (m *MemIndex) Record(_ context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("history: record: run id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.runs[run.ID]; dup {
		return fmt.Errorf("history: record: run %s already indexed", run.ID)
	}
	run.Units = append([]string(nil), run.Units...)
	run.Modules = append([]string(nil), run.Modules...)
	m.runs[run.ID] = run
	for _, u := range run.Units {
		m.units[u] = true
	}
	for _, mod := range run.Modules {
		m.modules[mod] = true
	}
	return nil
}

func (m *MemIndex) Recent(_ context.Context, limit int) ([]Run, error) {
	return m.filter(func(Run) bool { return true }, limit), nil
}

func (m *MemIndex) ForUnit(_ context.Context, unitID string, limit int) ([]Run, error) {
	return m.filter(func(r Run) bool { return contains(r.Units, unitID) }, limit), nil
}

func (m *MemIndex) ForModule(_ context.Context, moduleID string, limit int) ([]Run, error) {
	return m.filter(func(r Run) bool { return contains(r.Modules, moduleID) }, limit), nil
}

func (m *MemIndex) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &Stats{Runs: len(m.runs), Units: len(m.units), Modules: len(m.modules)}
	for _, r := range m.runs {
		if !r.Success {
			st.Failures++
		}
	}
	return st, nil
}

// Close is a no-op.
func (m *MemIndex) Close() error {
	return nil
}

// filter returns matching runs newest first, ties broken by id.
func (m *MemIndex) filter(keep func(Run) bool, limit int) []Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	if n := limitOr(limit); len(out) > n {
		out = out[:n]
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
