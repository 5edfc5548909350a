package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default locations, relative to the project directory.
const (
	DefaultStorePath  = ".govgen/config.json"
	DefaultOutputDir  = "dist"
	DefaultHistoryDir = ".govgen/history"
)

// ProjectConfig holds project-level settings loaded from govgen.yml.
type ProjectConfig struct {
	StorePath    string `yaml:"storePath,omitempty"`
	OutputDir    string `yaml:"outputDir,omitempty"`
	TemplateDir  string `yaml:"templateDir,omitempty"`
	ProfileDir   string `yaml:"profileDir,omitempty"`
	PluginDir    string `yaml:"pluginDir,omitempty"`
	HistoryDir   string `yaml:"historyDir,omitempty"`
	HistoryLimit int    `yaml:"historyLimit,omitempty"`
	LogLevel     string `yaml:"logLevel,omitempty"`
	LogFormat    string `yaml:"logFormat,omitempty"`
	ScriptCheck  *bool  `yaml:"scriptCheck,omitempty"`
}

// Load attempts to read govgen.yml or govgen.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"govgen.yml", "govgen.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", name, err)
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// ScriptCheckEnabled reports whether generated scripts should be
// syntax-checked. Unset means enabled.
func (c *ProjectConfig) ScriptCheckEnabled() bool {
	return c.ScriptCheck == nil || *c.ScriptCheck
}

// Resolved returns a copy with defaults filled in and every relative path
// anchored at dir. Optional directories stay empty when unset.
func (c *ProjectConfig) Resolved(dir string) ProjectConfig {
	out := *c
	if out.StorePath == "" {
		out.StorePath = DefaultStorePath
	}
	if out.OutputDir == "" {
		out.OutputDir = DefaultOutputDir
	}
	if out.HistoryDir == "" {
		out.HistoryDir = DefaultHistoryDir
	}
	for _, p := range []*string{&out.StorePath, &out.OutputDir, &out.TemplateDir, &out.ProfileDir, &out.PluginDir, &out.HistoryDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return out
}
