// Package archive collects the categorized files produced by a run and
// serializes them, together with the run manifest, into a single
// uncompressed ZIP container.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/govgen/internal/unit"
	"github.com/dusk-indust/govgen/internal/values"
)

// ErrArchiveBuildFailed is returned when the container cannot be encoded or
// written. A run has no deliverable output after this error.
var ErrArchiveBuildFailed = errors.New("archive build failed")

// ManifestFile is the name of the run manifest at the archive root.
const ManifestFile = "manifest.json"

// Option configures an Archiver.
type Option func(*options)

type options struct {
	now     func() time.Time
	modTime time.Time
	redact  bool
}

// WithTimestamp fixes the manifest's generation time, for deterministic
// output.
func WithTimestamp(t time.Time) Option {
	return func(o *options) {
		o.now = func() time.Time { return t }
	}
}

// WithModTime stamps every archive entry with t. Without it entries carry a
// zero DOS time and date.
func WithModTime(t time.Time) Option {
	return func(o *options) {
		o.modTime = t
	}
}

// WithRedaction masks secret-looking keys in the manifest's configuration
// snapshot.
func WithRedaction() Option {
	return func(o *options) {
		o.redact = true
	}
}

// Entry is one output file owned by the archiver.
type Entry struct {
	Unit     string `json:"unit"`
	Category string `json:"category"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Path returns the entry's location below the archive root.
func (e Entry) Path() string {
	return e.Unit + "/" + e.Category + "/" + e.Filename
}

// Summary totals the archived files.
type Summary struct {
	TotalFiles int            `json:"totalFiles"`
	ByUnit     map[string]int `json:"byUnit"`
	ByCategory map[string]int `json:"byCategory"`
}

// FileEntry is the manifest's inventory record for one archived file.
type FileEntry struct {
	Path   string `json:"path"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
}

// RunManifest is the audit summary of one run.
type RunManifest struct {
	RunID           string                        `json:"runId"`
	GeneratedAt     string                        `json:"generatedAt"`
	Version         string                        `json:"version"`
	ClientName      string                        `json:"clientName"`
	Industry        string                        `json:"industry"`
	Profile         string                        `json:"profile"`
	ModulesDeployed []string                      `json:"modulesDeployed"`
	UnitsExecuted   []string                      `json:"unitsExecuted"`
	OutputSummary   Summary                       `json:"outputSummary"`
	ConfigSnapshot  map[string]any                `json:"configSnapshot"`
	UnitManifests   map[string]unit.ManifestEntry `json:"unitManifests"`
	Files           []FileEntry                   `json:"files"`
	ContentHash     string                        `json:"contentHash"`
}

// UnitFiles lists one unit's file names by category.
type UnitFiles struct {
	Configs   []string `json:"configs"`
	Docs      []string `json:"docs"`
	Scripts   []string `json:"scripts"`
	Manifests []string `json:"manifests"`
}

// Bundle is the structural preview of an archive: file names without
// content, plus the last generated manifest.
type Bundle struct {
	Root     string               `json:"root"`
	Units    map[string]UnitFiles `json:"units"`
	Manifest *RunManifest         `json:"manifest,omitempty"`
}

// Archiver accumulates output files for one run. Adding the same (unit,
// category, filename) triple again replaces the earlier content in place.
// It is safe for concurrent use.
type Archiver struct {
	mu       sync.Mutex
	client   string
	opts     options
	units    []string
	entries  map[string][]*Entry
	index    map[string]*Entry
	manifest *RunManifest
}

// New returns an empty Archiver for client.
func New(client string, opts ...Option) *Archiver {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	a := &Archiver{client: client, opts: o}
	a.reset()
	return a
}

func (a *Archiver) reset() {
	a.units = nil
	a.entries = make(map[string][]*Entry)
	a.index = make(map[string]*Entry)
	a.manifest = nil
}

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeName maps a client name to the archive root directory name.
func SanitizeName(name string) string {
	if name == "" {
		name = "client"
	}
	return strings.ToLower(unsafeNameRe.ReplaceAllString(name, "_"))
}

// Root returns the archive root directory name.
func (a *Archiver) Root() string {
	return SanitizeName(a.client)
}

// Add records a file produced by unitID.
func (a *Archiver) Add(unitID, category, filename, content string) error {
	if !isCategory(category) {
		return fmt.Errorf("archive: add %s/%s: unknown category %q", unitID, filename, category)
	}
	if unitID == "" || filename == "" {
		return fmt.Errorf("archive: add: unit and filename are required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	key := unitID + "\x00" + category + "\x00" + filename
	if e, ok := a.index[key]; ok {
		e.Content = content
		return nil
	}
	if _, ok := a.entries[unitID]; !ok {
		a.units = append(a.units, unitID)
	}
	e := &Entry{Unit: unitID, Category: category, Filename: filename, Content: content}
	a.entries[unitID] = append(a.entries[unitID], e)
	a.index[key] = e
	return nil
}

// AddResult records every file of a unit result plus scripts generated
// afterwards.
func (a *Archiver) AddResult(unitID string, res *unit.Result, scripts []unit.File) error {
	groups := []struct {
		category string
		files    []unit.File
	}{
		{unit.CategoryConfigs, res.Configs},
		{unit.CategoryDocs, res.Docs},
		{unit.CategoryScripts, res.Scripts},
		{unit.CategoryScripts, scripts},
	}
	for _, g := range groups {
		for _, f := range g.files {
			if err := a.Add(unitID, g.category, f.Name, f.Content); err != nil {
				return err
			}
		}
	}
	return nil
}

func isCategory(c string) bool {
	for _, known := range unit.Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Entries returns copies of the accumulated entries in archive order: units
// in first-added order, categories in unit.Categories order, files in
// first-added order.
func (a *Archiver) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ordered()
}

func (a *Archiver) ordered() []Entry {
	var out []Entry
	for _, u := range a.units {
		for _, cat := range unit.Categories {
			for _, e := range a.entries[u] {
				if e.Category == cat {
					out = append(out, *e)
				}
			}
		}
	}
	return out
}

// Summary totals the accumulated files by unit and by category.
func (a *Archiver) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary()
}

func (a *Archiver) summary() Summary {
	s := Summary{ByUnit: make(map[string]int), ByCategory: make(map[string]int)}
	for _, cat := range unit.Categories {
		s.ByCategory[cat] = 0
	}
	for _, u := range a.units {
		for _, e := range a.entries[u] {
			s.ByUnit[u]++
			s.ByCategory[e.Category]++
			s.TotalFiles++
		}
	}
	return s
}

func unique(ss []string) []string {
	out := make([]string, 0, len(ss))
	seen := make(map[string]bool, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// GenerateManifest builds the run manifest from cfg, the per-unit manifest
// entries, and the files accumulated so far. The manifest is kept and
// written at the archive root by Serialize.
func (a *Archiver) GenerateManifest(cfg values.Map, unitManifests map[string]unit.ManifestEntry) *RunManifest {
	a.mu.Lock()
	defer a.mu.Unlock()

	modules := cfg.Strings("modules.selected")
	if len(modules) == 0 {
		modules = cfg.Strings("modules.recommended")
	}
	modules = unique(modules)
	profile := cfg.String("industry")
	if profile == "" {
		profile = "custom"
	}
	version := cfg.String("metadata.version")
	if version == "" {
		version = "1.0.0"
	}

	snapshot := map[string]any{
		"environment":    values.Clone(cfg.Get("environment")),
		"naming":         values.Clone(cfg.Get("naming")),
		"classification": values.Clone(cfg.Get("classification")),
		"adapters":       values.Clone(cfg.Get("adapters")),
	}
	if a.opts.redact {
		snapshot = Redact(snapshot)
	}

	if unitManifests == nil {
		unitManifests = map[string]unit.ManifestEntry{}
	}

	files, hash := inventory(a.ordered())
	m := &RunManifest{
		RunID:           uuid.NewString(),
		GeneratedAt:     a.opts.now().UTC().Format(time.RFC3339),
		Version:         version,
		ClientName:      a.client,
		Industry:        cfg.String("industry"),
		Profile:         profile,
		ModulesDeployed: modules,
		UnitsExecuted:   append([]string{}, a.units...),
		OutputSummary:   a.summary(),
		ConfigSnapshot:  snapshot,
		UnitManifests:   unitManifests,
		Files:           files,
		ContentHash:     hash,
	}
	a.manifest = m
	return m
}

// inventory hashes each entry and folds the per-file hashes into one
// content hash.
func inventory(entries []Entry) ([]FileEntry, string) {
	files := make([]FileEntry, 0, len(entries))
	total := sha256.New()
	for _, e := range entries {
		sum := sha256.Sum256([]byte(e.Content))
		fe := FileEntry{Path: e.Path(), Size: len(e.Content), SHA256: hex.EncodeToString(sum[:])}
		files = append(files, fe)
		total.Write([]byte(fe.Path))
		total.Write([]byte{0})
		total.Write([]byte(fe.SHA256))
	}
	return files, hex.EncodeToString(total.Sum(nil))
}

// Manifest returns the last generated manifest, or nil.
func (a *Archiver) Manifest() *RunManifest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.manifest
}

// Bundle returns file names per unit and the last generated manifest.
func (a *Archiver) Bundle() Bundle {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := Bundle{Root: SanitizeName(a.client), Units: make(map[string]UnitFiles, len(a.units)), Manifest: a.manifest}
	for _, u := range a.units {
		uf := UnitFiles{Configs: []string{}, Docs: []string{}, Scripts: []string{}, Manifests: []string{}}
		for _, e := range a.entries[u] {
			switch e.Category {
			case unit.CategoryConfigs:
				uf.Configs = append(uf.Configs, e.Filename)
			case unit.CategoryDocs:
				uf.Docs = append(uf.Docs, e.Filename)
			case unit.CategoryScripts:
				uf.Scripts = append(uf.Scripts, e.Filename)
			case unit.CategoryManifests:
				uf.Manifests = append(uf.Manifests, e.Filename)
			}
		}
		b.Units[u] = uf
	}
	return b
}

// Files returns the archive contents as path/content pairs in container
// order: the manifest first when one was generated, then every entry.
func (a *Archiver) Files() ([]File, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	root := SanitizeName(a.client)
	var files []File
	if a.manifest != nil {
		data, err := json.MarshalIndent(a.manifest, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("archive: %w: marshal manifest: %v", ErrArchiveBuildFailed, err)
		}
		files = append(files, File{Name: root + "/" + ManifestFile, Data: data})
	}
	for _, e := range a.ordered() {
		files = append(files, File{Name: root + "/" + e.Path(), Data: []byte(e.Content)})
	}
	return files, nil
}

// Serialize encodes the archive contents as an uncompressed ZIP container.
func (a *Archiver) Serialize() ([]byte, error) {
	files, err := a.Files()
	if err != nil {
		return nil, err
	}
	data, err := Encode(files, a.opts.modTime)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return data, nil
}

// FileName returns the container file name for the archive, dated by the
// archiver's clock.
func (a *Archiver) FileName() string {
	return fmt.Sprintf("%s_govgen_%s.zip", a.Root(), a.opts.now().UTC().Format("2006-01-02"))
}

// WriteFile serializes the archive into dir and returns the written path.
func (a *Archiver) WriteFile(dir string) (string, error) {
	data, err := a.Serialize()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("archive: %w: %v", ErrArchiveBuildFailed, err)
	}
	path := filepath.Join(dir, a.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("archive: %w: %v", ErrArchiveBuildFailed, err)
	}
	return path, nil
}

// Clear discards every entry and the last manifest.
func (a *Archiver) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
}
