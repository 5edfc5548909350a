// Package store persists the working client configuration as a JSON file
// and offers dotted-path access, merging, history bookkeeping and
// import/export in JSON, YAML and TOML.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/govgen/internal/values"
)

// Format names an import/export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnsupportedFormat is returned for an unknown import/export format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// DefaultHistoryLimit bounds metadata.generationHistory.
const DefaultHistoryLimit = 20

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("store: %w: %q", ErrUnsupportedFormat, s)
}

// HistoryRecord is one generation run as kept in the configuration's
// metadata.
type HistoryRecord struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"runId"`
	Units     []string  `json:"units"`
	Modules   []string  `json:"modules"`
	FileCount int       `json:"fileCount"`
	Success   bool      `json:"success"`
}

// Default returns the configuration a new store starts from.
func Default() values.Map {
	return values.FromAny(map[string]any{
		"clientName": "",
		"industry":   "",
		"environment": map[string]any{
			"cloud":        "azure",
			"dataplatform": "fabric",
			"governance":   "purview",
		},
		"naming": map[string]any{
			"orgPrefix": "",
			"envCodes":  map[string]any{"dev": "d", "test": "t", "staging": "s", "prod": "p"},
			"separator": "_",
		},
		"classification": map[string]any{
			"tierCount":            4,
			"tierLabels":           []any{"Public", "Internal", "Confidential", "Restricted"},
			"regulatoryFrameworks": []any{},
		},
		"modules": map[string]any{
			"selected": []any{},
			"phaseMap": map[string]any{"foundation": []any{}, "core": []any{}, "advanced": []any{}},
		},
		"adapters": map[string]any{
			"enabled": []any{},
			"config":  map[string]any{},
		},
		"overrides": map[string]any{},
		"metadata": map[string]any{
			"createdAt":         nil,
			"updatedAt":         nil,
			"version":           "1.0.0",
			"generationHistory": []any{},
		},
	})
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the clock used for metadata timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store holds one configuration document, optionally backed by a file.
// Every mutation is written through immediately. It is safe for
// concurrent use.
type Store struct {
	mu        sync.RWMutex
	path      string
	doc       values.Map
	persisted bool
	now       func() time.Time
	listeners map[int]func(values.Map)
	nextID    int
}

// Open loads the store at path. A missing file yields the default
// document; a present one is layered over the default so new keys appear.
func Open(path string, opts ...Option) (*Store, error) {
	s := newStore(path, opts)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	s.doc = values.DeepMerge(Default(), values.FromAny(doc))
	s.persisted = true
	return s, nil
}

// NewMemory returns a store that is never written to disk.
func NewMemory(opts ...Option) *Store {
	return newStore("", opts)
}

func newStore(path string, opts []Option) *Store {
	s := &Store{
		path:      path,
		doc:       Default(),
		now:       time.Now,
		listeners: make(map[int]func(values.Map)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file, or "" for a memory store.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the value at a dotted path, or nil.
func (s *Store) Get(path string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values.Clone(s.doc.Get(path))
}

// Set writes v at a dotted path and saves.
func (s *Store) Set(path string, v any) error {
	if path == "" {
		return fmt.Errorf("store: set: empty path")
	}
	s.mu.Lock()
	s.doc.Set(path, v)
	return s.saveLocked()
}

// Merge layers partial over the current document and saves.
func (s *Store) Merge(partial values.Map) error {
	s.mu.Lock()
	s.doc = values.DeepMerge(s.doc, partial)
	return s.saveLocked()
}

// Snapshot returns a deep copy of the whole document.
func (s *Store) Snapshot() values.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Replace swaps in cfg, layered over the default document, and saves.
func (s *Store) Replace(cfg values.Map) error {
	s.mu.Lock()
	s.doc = values.DeepMerge(Default(), cfg)
	return s.saveLocked()
}

// AppendHistory adds rec to metadata.generationHistory, keeping the most
// recent limit records. A non-positive limit means DefaultHistoryLimit.
func (s *Store) AppendHistory(rec HistoryRecord, limit int) error {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	s.mu.Lock()
	hist, _ := values.AsSlice(s.doc.Get("metadata.generationHistory"))
	hist = append(append([]any(nil), hist...), values.Normalize(rec))
	if len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	s.doc.Set("metadata.generationHistory", hist)
	return s.saveLocked()
}

// History returns the recorded runs, oldest first.
func (s *Store) History() ([]HistoryRecord, error) {
	raw := s.Get("metadata.generationHistory")
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	var out []HistoryRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	return out, nil
}

// Reset restores the default document and removes the backing file.
func (s *Store) Reset() error {
	s.mu.Lock()
	s.doc = Default()
	s.persisted = false
	snap := s.doc.Clone()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("store: reset: %w", err)
		}
	}
	notify(listeners, snap)
	return nil
}

// IsFirstRun reports whether nothing has been saved yet.
func (s *Store) IsFirstRun() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.persisted
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned func unregisters it.
func (s *Store) Subscribe(fn func(values.Map)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// --- import / export ---

// Export encodes the whole document in format.
func (s *Store) Export(format Format) ([]byte, error) {
	doc := s.Snapshot()
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("store: export json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(map[string]any(doc))
		if err != nil {
			return nil, fmt.Errorf("store: export yaml: %w", err)
		}
		return data, nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(map[string]any(values.Compact(doc))); err != nil {
			return nil, fmt.Errorf("store: export toml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("store: export: %w: %q", ErrUnsupportedFormat, format)
}

// Import replaces the document with data decoded from format, layered over
// the default document, and saves.
func (s *Store) Import(data []byte, format Format) error {
	doc, err := Decode(data, format)
	if err != nil {
		return err
	}
	return s.Replace(doc)
}

// Decode parses a configuration document in format.
func Decode(data []byte, format Format) (values.Map, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("store: import json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("store: import yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("store: import toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("store: import: %w: %q", ErrUnsupportedFormat, format)
	}
	return values.FromAny(raw), nil
}

// --- persistence ---

// saveLocked stamps metadata timestamps, writes the file, releases the
// lock and notifies listeners. The caller must hold s.mu.
func (s *Store) saveLocked() error {
	ts := s.now().UTC().Format(time.RFC3339)
	s.doc.Set("metadata.updatedAt", ts)
	if created, _ := s.doc.Get("metadata.createdAt").(string); created == "" {
		s.doc.Set("metadata.createdAt", ts)
	}

	var err error
	if s.path != "" {
		err = s.writeLocked()
	}
	if err == nil {
		s.persisted = true
	}
	snap := s.doc.Clone()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	notify(listeners, snap)
	return nil
}

func (s *Store) writeLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".govgen-store-*")
	if err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("store: save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: save: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: save: %w", err)
	}
	return nil
}

func (s *Store) listenersLocked() []func(values.Map) {
	out := make([]func(values.Map), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(listeners []func(values.Map), snap values.Map) {
	for _, fn := range listeners {
		fn(snap.Clone())
	}
}
