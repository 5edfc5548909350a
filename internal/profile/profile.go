// Package profile holds the catalog of industry baseline profiles. Profiles
// are immutable once registered: lookups hand out deep copies.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/govgen/internal/assets"
	"github.com/dusk-indust/govgen/internal/values"
)

// ErrInvalidProfile is returned when a profile fails structural validation.
var ErrInvalidProfile = errors.New("invalid profile")

// Profile is an industry-scoped starting configuration.
type Profile struct {
	ID             string     `yaml:"id" json:"id" toml:"id"`
	Name           string     `yaml:"name" json:"name" toml:"name"`
	Description    string     `yaml:"description" json:"description" toml:"description"`
	Industry       string     `yaml:"industry" json:"industry" toml:"industry"`
	Environment    values.Map `yaml:"environment" json:"environment" toml:"environment"`
	Naming         values.Map `yaml:"naming" json:"naming" toml:"naming"`
	Classification values.Map `yaml:"classification" json:"classification" toml:"classification"`
	Modules        values.Map `yaml:"modules" json:"modules" toml:"modules"`
	Adapters       values.Map `yaml:"adapters" json:"adapters" toml:"adapters"`
	Overlays       values.Map `yaml:"overlays" json:"overlays" toml:"overlays"`
}

// Config returns the configuration-relevant subset of the profile as a
// fresh document that shares nothing with p.
func (p Profile) Config() values.Map {
	return values.FromAny(map[string]any{
		"industry":       p.Industry,
		"environment":    mapOrEmpty(p.Environment),
		"naming":         mapOrEmpty(p.Naming),
		"classification": mapOrEmpty(p.Classification),
		"modules":        mapOrEmpty(p.Modules),
		"adapters":       mapOrEmpty(p.Adapters),
		"overlays":       mapOrEmpty(p.Overlays),
	})
}

func mapOrEmpty(m values.Map) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	out := p
	out.Environment = p.Environment.Clone()
	out.Naming = p.Naming.Clone()
	out.Classification = p.Classification.Clone()
	out.Modules = p.Modules.Clone()
	out.Adapters = p.Adapters.Clone()
	out.Overlays = p.Overlays.Clone()
	return out
}

// Summary is the selection-list view of a profile.
type Summary struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Industry               string   `json:"industry"`
	Description            string   `json:"description"`
	RegulatoryFrameworks   []string `json:"regulatoryFrameworks"`
	ModuleRecommendations  []string `json:"moduleRecommendations"`
	AdapterRecommendations []string `json:"adapterRecommendations"`
	Overlays               []string `json:"overlays"`
}

// Summarize builds the Summary for p. Overlays lists only the enabled flags,
// sorted.
func (p Profile) Summarize() Summary {
	cfg := p.Config()
	var overlays []string
	for _, k := range values.SortedKeys(cfg.Sub("overlays")) {
		if b, _ := cfg.Get("overlays." + k).(bool); b {
			overlays = append(overlays, k)
		}
	}
	return Summary{
		ID:                     p.ID,
		Name:                   p.Name,
		Industry:               p.Industry,
		Description:            p.Description,
		RegulatoryFrameworks:   cfg.Strings("classification.regulatoryFrameworks"),
		ModuleRecommendations:  cfg.Strings("modules.recommended"),
		AdapterRecommendations: cfg.Strings("adapters.recommended"),
		Overlays:               overlays,
	}
}

// Validate returns the structural problems with p, or nil.
func Validate(p Profile) []string {
	var errs []string
	if p.Name == "" {
		errs = append(errs, "missing profile name")
	}
	if p.Environment == nil {
		errs = append(errs, "missing environment section")
	}
	if p.Naming == nil {
		errs = append(errs, "missing naming section")
	}
	if p.Classification == nil {
		errs = append(errs, "missing classification section")
	}
	if p.Modules == nil {
		errs = append(errs, "missing modules section")
	}
	if p.Classification != nil {
		cls := values.FromAny(p.Classification)
		if _, ok := values.AsSlice(cls["tierLabels"]); !ok {
			errs = append(errs, "classification.tierLabels must be a sequence")
		}
		if _, ok := cls["tierCount"].(float64); !ok {
			errs = append(errs, "classification.tierCount must be a number")
		}
	}
	return errs
}

// Registry is an in-memory profile catalog safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]Profile)}
}

// Builtin returns a Registry preloaded with the embedded industry profiles.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	sub, err := fs.Sub(assets.ProfilesFS, "profiles")
	if err != nil {
		return nil, fmt.Errorf("profile: builtin: %w", err)
	}
	if err := r.LoadFS(sub); err != nil {
		return nil, err
	}
	return r, nil
}

// Register validates p and stores it under id, replacing any previous
// profile with that id.
func (r *Registry) Register(id string, p Profile) error {
	if id == "" {
		return fmt.Errorf("profile: register: %w: empty id", ErrInvalidProfile)
	}
	if errs := Validate(p); len(errs) > 0 {
		return fmt.Errorf("profile: register %s: %w: %s", id, ErrInvalidProfile, strings.Join(errs, ", "))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[id] = p.Clone()
	return nil
}

// Lookup returns a deep copy of the profile registered under id.
func (r *Registry) Lookup(id string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, false
	}
	return p.Clone(), true
}

// IDs returns every registered profile id, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summaries returns a Summary for every registered profile, sorted by id.
func (r *Registry) Summaries() []Summary {
	ids := r.IDs()
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		p, ok := r.Lookup(id)
		if !ok {
			continue
		}
		s := p.Summarize()
		s.ID = id
		out = append(out, s)
	}
	return out
}

// LoadDir registers every profile file in dir. The profile id is the file
// name without extension.
func (r *Registry) LoadDir(dir string) error {
	return r.LoadFS(os.DirFS(dir))
}

// LoadFS registers every .yaml, .yml, .json, and .toml file at the root of
// fsys.
func (r *Registry) LoadFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("profile: read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		format, ok := formatForExt(ext)
		if !ok {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return fmt.Errorf("profile: read %s: %w", e.Name(), err)
		}
		p, err := Decode(data, format)
		if err != nil {
			return fmt.Errorf("profile: decode %s: %w", e.Name(), err)
		}
		if err := r.Register(strings.TrimSuffix(e.Name(), ext), p); err != nil {
			return err
		}
	}
	return nil
}

func formatForExt(ext string) (string, bool) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return "yaml", true
	case ".json":
		return "json", true
	case ".toml":
		return "toml", true
	default:
		return "", false
	}
}

// Decode parses a profile document in the named format (yaml, json, toml).
func Decode(data []byte, format string) (Profile, error) {
	var p Profile
	var err error
	switch format {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &p)
	case "json":
		err = json.Unmarshal(data, &p)
	case "toml":
		_, err = toml.Decode(string(data), &p)
	default:
		return Profile{}, fmt.Errorf("unsupported profile format %q", format)
	}
	if err != nil {
		return Profile{}, err
	}
	p.Environment = normalized(p.Environment)
	p.Naming = normalized(p.Naming)
	p.Classification = normalized(p.Classification)
	p.Modules = normalized(p.Modules)
	p.Adapters = normalized(p.Adapters)
	p.Overlays = normalized(p.Overlays)
	return p, nil
}

func normalized(m values.Map) values.Map {
	if m == nil {
		return nil
	}
	return values.FromAny(m)
}
