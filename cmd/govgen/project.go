package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dusk-indust/govgen/internal/assets"
	"github.com/dusk-indust/govgen/internal/builtin"
	"github.com/dusk-indust/govgen/internal/config"
	"github.com/dusk-indust/govgen/internal/history"
	"github.com/dusk-indust/govgen/internal/logging"
	"github.com/dusk-indust/govgen/internal/orchestrator"
	"github.com/dusk-indust/govgen/internal/profile"
	"github.com/dusk-indust/govgen/internal/resolver"
	"github.com/dusk-indust/govgen/internal/scriptcheck"
	"github.com/dusk-indust/govgen/internal/store"
	"github.com/dusk-indust/govgen/internal/unit"
	"github.com/dusk-indust/govgen/internal/values"
)

// project is the working environment of one command: govgen.yml with flag
// overrides applied and every path made absolute.
type project struct {
	dir    string
	cfg    config.ProjectConfig
	logger *slog.Logger
}

func (o *GovgenOptions) loadProject() (*project, error) {
	root := o.ProjectRoot
	if root == "" {
		root = "."
	}
	dir, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	pc, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if o.StorePath != "" {
		abs, err := filepath.Abs(o.StorePath)
		if err != nil {
			return nil, fmt.Errorf("resolving store path: %w", err)
		}
		pc.StorePath = abs
	}
	if o.LogLevel != "" {
		pc.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		pc.LogFormat = o.LogFormat
	}
	resolved := pc.Resolved(dir)
	return &project{
		dir:    dir,
		cfg:    resolved,
		logger: logging.New(resolved.LogLevel, resolved.LogFormat, o.errOut),
	}, nil
}

func (p *project) context(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, p.logger)
}

// openStore opens the configuration store and logs every change to it at
// debug level.
func (p *project) openStore() (*store.Store, error) {
	st, err := store.Open(p.cfg.StorePath)
	if err != nil {
		return nil, err
	}
	st.Subscribe(func(doc values.Map) {
		p.logger.Debug("configuration changed", "path", st.Path(), "keys", len(doc), "client", doc.String("clientName"))
	})
	return st, nil
}

// profiles returns the built-in catalog plus any profiles in profileDir.
func (p *project) profiles() (*profile.Registry, error) {
	reg, err := profile.Builtin()
	if err != nil {
		return nil, err
	}
	if p.cfg.ProfileDir != "" {
		if err := reg.LoadDir(p.cfg.ProfileDir); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (p *project) resolver() (*resolver.Resolver, error) {
	reg, err := p.profiles()
	if err != nil {
		return nil, err
	}
	return resolver.New(reg), nil
}

// units returns the built-in units plus any plugins in pluginDir.
func (p *project) units() (*unit.Registry, error) {
	reg, err := builtin.NewRegistry()
	if err != nil {
		return nil, err
	}
	if p.cfg.PluginDir != "" {
		loaded, err := reg.LoadPlugins(p.cfg.PluginDir)
		if err != nil {
			return nil, err
		}
		for _, m := range loaded {
			p.logger.Debug("plugin loaded", "unit", m.ID, "version", m.Version)
		}
	}
	return reg, nil
}

// sources returns nil when no templateDir is configured, so the pipeline
// uses the embedded templates. Otherwise templates in templateDir replace
// embedded ones of the same module and name.
func (p *project) sources() (orchestrator.Sources, error) {
	if p.cfg.TemplateDir == "" {
		return nil, nil
	}
	sources, err := assets.BuiltinModules(nil)
	if err != nil {
		return nil, err
	}
	custom, err := assets.ModuleSources(os.DirFS(p.cfg.TemplateDir), nil)
	if err != nil {
		return nil, err
	}
	for module, templates := range custom {
		if sources[module] == nil {
			sources[module] = map[string]string{}
		}
		for name, src := range templates {
			sources[module][name] = src
		}
	}
	return sources, nil
}

func (p *project) checker() *scriptcheck.Checker {
	if !p.cfg.ScriptCheckEnabled() {
		return nil
	}
	return scriptcheck.New()
}

func (p *project) openIndex(ctx context.Context) (history.Index, error) {
	idx, err := history.Open(ctx, p.cfg.HistoryDir)
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	return idx, nil
}

// pipelineConfig assembles the orchestrator collaborators. The returned
// index must be closed by the caller.
func (p *project) pipelineConfig(ctx context.Context, st *store.Store) (orchestrator.Config, history.Index, error) {
	idx, err := p.openIndex(ctx)
	if err != nil {
		return orchestrator.Config{}, nil, err
	}
	cfg := p.serviceConfig()
	cfg.History = st
	cfg.HistoryLimit = p.cfg.HistoryLimit
	cfg.Index = idx
	cfg.OutputDir = p.cfg.OutputDir
	return cfg, idx, nil
}

// serviceConfig is the pipeline configuration for callers that neither
// record history nor write archives on their own, such as the MCP server.
func (p *project) serviceConfig() orchestrator.Config {
	var cfg orchestrator.Config
	if c := p.checker(); c != nil {
		cfg.Checker = c
	}
	return cfg
}
