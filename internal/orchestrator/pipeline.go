package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dusk-indust/govgen/internal/archive"
	"github.com/dusk-indust/govgen/internal/assets"
	"github.com/dusk-indust/govgen/internal/history"
	"github.com/dusk-indust/govgen/internal/logging"
	"github.com/dusk-indust/govgen/internal/store"
	"github.com/dusk-indust/govgen/internal/unit"
	"github.com/dusk-indust/govgen/internal/values"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// UnitManifestFile is the name under which each unit's manifest entry is
// archived in its manifests category.
const UnitManifestFile = "manifest.json"

// Pipeline implements Orchestrator. It expands module templates through a
// FanOut, runs units from a registry one at a time and reports events to
// the configured sinks.
type Pipeline struct {
	cfg      Config
	source   ConfigSource
	registry *unit.Registry
	fanout   *FanOut
	state    atomic.Int32
}

// NewPipeline creates a Pipeline that reads its configuration from source
// and constructs units from registry.
func NewPipeline(cfg Config, source ConfigSource, registry *unit.Registry) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		cfg:      cfg,
		source:   source,
		registry: registry,
		fanout:   NewFanOut(cfg.Engine, cfg.Concurrency),
	}
}

// State returns the state of the current or last run.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
}

// EffectiveModules returns modules.selected, or modules.recommended when
// nothing is selected.
func EffectiveModules(cfg values.Map) []string {
	mods := cfg.Strings("modules.selected")
	if len(mods) == 0 {
		mods = cfg.Strings("modules.recommended")
	}
	out := make([]string, 0, len(mods))
	seen := make(map[string]bool, len(mods))
	for _, m := range mods {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// ---------------------------------------------------------------------------
// Orchestrator interface
// ---------------------------------------------------------------------------

// Execute runs one generation. A nil sources map expands the embedded
// module templates. Per-template and per-unit failures are collected on the
// result; only a missing configuration source, unreadable embedded
// templates or a failed archive write return an error.
func (p *Pipeline) Execute(ctx context.Context, sources Sources) (*Result, error) {
	log := logging.FromContext(ctx)
	if p.source == nil {
		return nil, fmt.Errorf("orchestrator: execute: no configuration source")
	}

	res := &Result{}
	emit := func(ev Event) {
		res.Events = append(res.Events, ev)
		for _, s := range p.cfg.Sinks {
			s.Emit(ev)
		}
	}
	warn := func(msg string) {
		res.Warnings = append(res.Warnings, msg)
		log.Warn(msg)
	}

	// --- resolve ---
	p.setState(StateResolving)
	cfg := p.source.Snapshot()
	enabled := cfg.Strings("adapters.enabled")
	modules := EffectiveModules(cfg)
	total := len(enabled)
	log.Info("run started", "units", enabled, "modules", modules)
	emit(Event{Kind: EventRunStart, State: StateResolving, Total: total})

	// --- expand ---
	p.setState(StateExpanding)
	if sources == nil {
		builtin, err := assets.BuiltinModules(modules)
		if err != nil {
			p.setState(StateIdle)
			return nil, fmt.Errorf("orchestrator: execute: %w", err)
		}
		sources = builtin
	}
	for _, mod := range modules {
		if len(sources[mod]) == 0 {
			warn(fmt.Sprintf("module %s has no templates", mod))
		}
	}
	tpl, expandErrs := MergeExpansions(p.fanout.Run(ctx, cfg, Jobs(sources, modules)))
	res.Templates = tpl
	res.Errors = append(res.Errors, expandErrs...)
	for _, err := range expandErrs {
		log.Error("template expansion failed", "err", err)
	}

	// --- run units ---
	p.setState(StateRunning)
	arch := archive.New(cfg.String("clientName"), p.cfg.ArchiveOptions...)
	manifests := make(map[string]unit.ManifestEntry)
	succeeded := 0
	for i, id := range enabled {
		emit(Event{Kind: EventProgress, State: StateRunning, Unit: id, Status: UnitRunning, Completed: i, Total: total})

		entry, warnings, err := p.runUnit(id, cfg, tpl, arch)
		for _, w := range warnings {
			warn(w)
		}
		if err != nil {
			res.Errors = append(res.Errors, err)
			log.Error("unit failed", "unit", id, "err", err)
			emit(Event{Kind: EventUnitError, State: StateRunning, Unit: id, Status: UnitErrored, Completed: i + 1, Total: total, Message: err.Error()})
			continue
		}

		manifests[id] = entry
		succeeded++
		log.Info("unit complete", "unit", id, "configs", entry.Counts.Configs, "docs", entry.Counts.Docs, "scripts", entry.Counts.Scripts)
		emit(Event{Kind: EventProgress, State: StateRunning, Unit: id, Status: UnitComplete, Completed: i + 1, Total: total})
	}

	// --- aggregate ---
	p.setState(StateAggregating)
	manifest := arch.GenerateManifest(cfg, manifests)
	summary := manifest.OutputSummary
	res.Outputs = arch
	res.Manifest = manifest
	res.Success = len(res.Errors) == 0

	rec := store.HistoryRecord{
		Timestamp: p.cfg.Now().UTC(),
		RunID:     manifest.RunID,
		Units:     append([]string{}, enabled...),
		Modules:   modules,
		FileCount: summary.TotalFiles,
		Success:   res.Success,
	}
	if p.cfg.History != nil {
		if err := p.cfg.History.AppendHistory(rec, p.cfg.HistoryLimit); err != nil {
			warn(fmt.Sprintf("history not saved: %v", err))
		}
	}
	if p.cfg.Index != nil {
		run := history.Run{
			ID:        rec.RunID,
			Timestamp: rec.Timestamp,
			Client:    manifest.ClientName,
			Units:     rec.Units,
			Modules:   rec.Modules,
			FileCount: rec.FileCount,
			Success:   rec.Success,
		}
		if err := p.cfg.Index.Record(ctx, run); err != nil {
			warn(fmt.Sprintf("run not indexed: %v", err))
		}
	}

	if p.cfg.OutputDir != "" {
		path, err := arch.WriteFile(p.cfg.OutputDir)
		if err != nil {
			p.setState(StateIdle)
			return nil, fmt.Errorf("orchestrator: execute: %w", err)
		}
		res.ArchivePath = path
		log.Info("archive written", "path", path)
	}

	// --- complete ---
	p.setState(StateComplete)
	log.Info("run complete", "run", manifest.RunID, "files", summary.TotalFiles, "errors", len(res.Errors), "warnings", len(res.Warnings))
	emit(Event{Kind: EventRunComplete, State: StateComplete, Completed: succeeded, Total: total, Manifest: manifest, Summary: &summary})
	return res, nil
}

// runUnit takes one unit from construction to archived output. Warnings
// are returned even when the unit fails.
func (p *Pipeline) runUnit(id string, cfg values.Map, tpl unit.Templates, arch *archive.Archiver) (unit.ManifestEntry, []string, error) {
	var entry unit.ManifestEntry

	// Units get their own copy so one cannot alter what the next sees.
	u, err := p.registry.New(id, cfg.Clone())
	if err != nil {
		var ue *unit.Error
		if errors.As(err, &ue) {
			return entry, nil, err
		}
		return entry, nil, &unit.Error{UnitID: id, Kind: unit.ErrTransformFailed, Cause: err}
	}

	v, err := validate(u)
	if err != nil {
		return entry, nil, &unit.Error{UnitID: id, Kind: unit.ErrValidationFailed, Cause: err}
	}
	if !v.Valid {
		return entry, nil, &unit.Error{UnitID: id, Kind: unit.ErrValidationFailed, Messages: v.Errors}
	}

	out, scripts, err := transform(u, tpl, cfg.Clone())
	if err != nil {
		return entry, nil, &unit.Error{UnitID: id, Kind: unit.ErrTransformFailed, Cause: err}
	}
	if err := checkNames(out, scripts); err != nil {
		return entry, nil, &unit.Error{UnitID: id, Kind: unit.ErrTransformFailed, Cause: err}
	}

	var warnings []string
	warnings = append(warnings, p.checkScripts(id, out.Scripts, scripts)...)
	for _, issue := range CheckCoherence(id, out) {
		warnings = append(warnings, issue.String())
	}

	if err := arch.AddResult(id, out, scripts); err != nil {
		return entry, warnings, &unit.Error{UnitID: id, Kind: unit.ErrTransformFailed, Cause: err}
	}

	entry = u.OutputManifest()
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return entry, warnings, &unit.Error{UnitID: id, Kind: unit.ErrTransformFailed, Cause: err}
	}
	if err := arch.Add(id, unit.CategoryManifests, UnitManifestFile, string(data)); err != nil {
		return entry, warnings, &unit.Error{UnitID: id, Kind: unit.ErrTransformFailed, Cause: err}
	}
	return entry, warnings, nil
}

func validate(u unit.Unit) (v unit.Validation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return u.Validate(), nil
}

func transform(u unit.Unit, tpl unit.Templates, cfg values.Map) (res *unit.Result, scripts []unit.File, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, scripts = nil, nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	res, err = u.Transform(tpl, cfg)
	if err != nil {
		return nil, nil, err
	}
	if res == nil {
		res = &unit.Result{}
	}
	scripts, err = u.GenerateScripts(res)
	if err != nil {
		return nil, nil, fmt.Errorf("generate scripts: %w", err)
	}
	return res, scripts, nil
}

// checkNames rejects results the archiver would only partially accept.
func checkNames(res *unit.Result, scripts []unit.File) error {
	for _, group := range [][]unit.File{res.Configs, res.Docs, res.Scripts, scripts} {
		for _, f := range group {
			if f.Name == "" {
				return fmt.Errorf("output file with empty name")
			}
		}
	}
	return nil
}

func (p *Pipeline) checkScripts(id string, groups ...[]unit.File) []string {
	if p.cfg.Checker == nil {
		return nil
	}
	var warnings []string
	for _, files := range groups {
		for _, f := range files {
			issues, err := p.cfg.Checker.Check(f.Name, []byte(f.Content))
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: script check %s: %v", id, f.Name, err))
				continue
			}
			for _, issue := range issues {
				warnings = append(warnings, fmt.Sprintf("%s: %s", id, issue))
			}
		}
	}
	return warnings
}

// ValidateAll validates every enabled unit against the current
// configuration without transforming. Unknown ids are reported invalid.
func (p *Pipeline) ValidateAll() ValidationReport {
	report := ValidationReport{Valid: true, Units: make(map[string]unit.Validation)}
	if p.source == nil {
		return report
	}
	cfg := p.source.Snapshot()
	for _, id := range cfg.Strings("adapters.enabled") {
		var v unit.Validation
		u, err := p.registry.New(id, cfg.Clone())
		if err == nil {
			v, err = validate(u)
		}
		if err != nil {
			v = unit.Validations([]string{err.Error()})
		}
		report.Units[id] = v
		if !v.Valid {
			report.Valid = false
		}
	}
	return report
}

// Preview reports the units and modules the next run would cover.
func (p *Pipeline) Preview() Preview {
	pv := Preview{Units: []unit.Info{}, Unknown: []string{}, Modules: []string{}, EstimatedOutputs: []string{}}
	if p.source == nil {
		return pv
	}
	cfg := p.source.Snapshot()
	pv.Modules = EffectiveModules(cfg)
	ids := cfg.Strings("adapters.enabled")
	pv.Units = p.registry.Enabled(ids)
	for _, info := range pv.Units {
		pv.EstimatedOutputs = append(pv.EstimatedOutputs, info.ID+": configs, docs, scripts, manifest")
	}
	for _, id := range ids {
		if _, ok := p.registry.Lookup(id); !ok {
			pv.Unknown = append(pv.Unknown, id)
		}
	}
	return pv
}

// Units lists every registered unit.
func (p *Pipeline) Units() []unit.Info {
	return p.registry.Infos()
}
