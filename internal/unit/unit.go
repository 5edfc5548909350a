// Package unit defines the contract every transformation unit satisfies,
// built in or supplied as a plugin, and the registry the orchestrator uses
// to discover and construct units.
package unit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dusk-indust/govgen/internal/values"
)

// Output categories.
const (
	CategoryConfigs   = "configs"
	CategoryDocs      = "docs"
	CategoryScripts   = "scripts"
	CategoryManifests = "manifests"
)

// Categories lists the output categories in archive order.
var Categories = []string{CategoryConfigs, CategoryDocs, CategoryScripts, CategoryManifests}

// Registration kinds reported in Info.
const (
	KindBuiltIn = "builtin"
	KindPlugin  = "plugin"
)

var (
	// ErrValidationFailed marks a unit that reported its configuration
	// invalid. Such a unit is never transformed.
	ErrValidationFailed = errors.New("validation failed")

	// ErrTransformFailed marks a unit whose transform or script generation
	// returned an error or panicked.
	ErrTransformFailed = errors.New("transform failed")

	// ErrUnknownUnit is returned when no registration exists for an id.
	ErrUnknownUnit = errors.New("unknown unit")
)

// Error is a failure scoped to one unit. It matches its Kind and its Cause
// with errors.Is.
type Error struct {
	UnitID   string
	Kind     error
	Messages []string
	Cause    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unit %s: %v", e.UnitID, e.Kind)
	if len(e.Messages) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Messages, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

// Unwrap returns the kind and cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Info is the capability-discovery view of a unit.
type Info struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Modules     []string `json:"modules"`
	Kind        string   `json:"kind"`
	Version     string   `json:"version,omitempty"`
	Layer       string   `json:"layer,omitempty"`
}

// SupportsModule reports whether the unit declares module id.
func (i Info) SupportsModule(id string) bool {
	for _, m := range i.Modules {
		if m == id {
			return true
		}
	}
	return false
}

// File is one generated output file.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// Result holds a unit's categorized outputs.
type Result struct {
	Configs []File `json:"configs"`
	Docs    []File `json:"docs"`
	Scripts []File `json:"scripts"`
}

// Validation is a unit's precondition report.
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validations builds a Validation from an error list.
func Validations(errs []string) Validation {
	if errs == nil {
		errs = []string{}
	}
	return Validation{Valid: len(errs) == 0, Errors: errs}
}

// Counts tallies generated files per category.
type Counts struct {
	Configs int `json:"configs"`
	Docs    int `json:"docs"`
	Scripts int `json:"scripts"`
}

// ManifestEntry is a unit's audit summary for one run.
type ManifestEntry struct {
	UnitID    string    `json:"unitId"`
	UnitName  string    `json:"unitName"`
	Kind      string    `json:"kind"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Modules   []string  `json:"modules"`
	Counts    Counts    `json:"counts"`
}

// Templates maps module id to template name to expanded text.
type Templates map[string]map[string]string

// ForModules returns the subset of t for the given modules.
func (t Templates) ForModules(ids []string) Templates {
	out := make(Templates, len(ids))
	for _, id := range ids {
		if m, ok := t[id]; ok {
			out[id] = m
		}
	}
	return out
}

// AsValue converts t into a configuration value so templates can reference
// expanded module text.
func (t Templates) AsValue() map[string]any {
	out := make(map[string]any, len(t))
	for mod, byName := range t {
		inner := make(map[string]any, len(byName))
		for name, text := range byName {
			inner[name] = text
		}
		out[mod] = inner
	}
	return out
}

// Unit is a pluggable generator. A unit is constructed with the resolved
// configuration it serves; Validate must not change its state, and the
// orchestrator calls Transform only after Validate reports valid.
type Unit interface {
	Info() Info
	Validate() Validation
	Transform(tpl Templates, cfg values.Map) (*Result, error)
	GenerateScripts(res *Result) ([]File, error)
	OutputManifest() ManifestEntry
}

// Base carries the bookkeeping shared by unit implementations: identity,
// the configuration the unit was built with, and output counts for the
// manifest entry. Units embed *Base and implement the rest of Unit.
type Base struct {
	info   Info
	cfg    values.Map
	counts Counts
	now    func() time.Time
}

// NewBase returns a Base for info serving cfg.
func NewBase(info Info, cfg values.Map) *Base {
	return &Base{info: info, cfg: cfg, now: time.Now}
}

// Info returns the unit's identity.
func (b *Base) Info() Info {
	return b.info
}

// Config returns the configuration the unit was constructed with.
func (b *Base) Config() values.Map {
	return b.cfg
}

// AdapterConfig returns adapters.config.<unit id> from the configuration.
func (b *Base) AdapterConfig() values.Map {
	return b.cfg.Sub("adapters.config." + b.info.ID)
}

// Now returns the current time from the unit's clock.
func (b *Base) Now() time.Time {
	return b.now()
}

// SetClock replaces the unit's clock.
func (b *Base) SetClock(now func() time.Time) {
	b.now = now
}

// Record counts a transform result.
func (b *Base) Record(res *Result) *Result {
	b.counts.Configs = len(res.Configs)
	b.counts.Docs = len(res.Docs)
	b.counts.Scripts = len(res.Scripts)
	return res
}

// RecordScripts adds generated scripts to the script count.
func (b *Base) RecordScripts(files []File) []File {
	b.counts.Scripts += len(files)
	return files
}

// OutputManifest returns the unit's audit summary.
func (b *Base) OutputManifest() ManifestEntry {
	return ManifestEntry{
		UnitID:    b.info.ID,
		UnitName:  b.info.Name,
		Kind:      b.info.Kind,
		Version:   b.info.Version,
		Timestamp: b.now().UTC(),
		Modules:   append([]string(nil), b.info.Modules...),
		Counts:    b.counts,
	}
}
