package orchestrator

import (
	"time"

	"github.com/dusk-indust/govgen/internal/archive"
	"github.com/dusk-indust/govgen/internal/history"
	"github.com/dusk-indust/govgen/internal/scriptcheck"
	"github.com/dusk-indust/govgen/internal/store"
	"github.com/dusk-indust/govgen/internal/template"
	"github.com/dusk-indust/govgen/internal/values"
)

// Sources maps module id to template name to template source.
type Sources map[string]map[string]string

// ConfigSource supplies the resolved configuration a run works from.
type ConfigSource interface {
	Snapshot() values.Map
}

// HistoryRecorder persists the bounded generation history.
type HistoryRecorder interface {
	AppendHistory(rec store.HistoryRecord, limit int) error
}

// ScriptChecker reports syntax problems in generated scripts.
type ScriptChecker interface {
	Check(name string, source []byte) ([]scriptcheck.Issue, error)
}

var (
	_ ConfigSource    = (*store.Store)(nil)
	_ HistoryRecorder = (*store.Store)(nil)
	_ ScriptChecker   = (*scriptcheck.Checker)(nil)
	_ ConfigSource    = StaticConfig(nil)
)

// StaticConfig is a ConfigSource over a fixed configuration.
type StaticConfig values.Map

// Snapshot returns a deep copy of the configuration.
func (c StaticConfig) Snapshot() values.Map {
	return values.Map(c).Clone()
}

// DefaultConcurrency bounds the template expansion fan-out when Config
// leaves it unset.
const DefaultConcurrency = 8

// Config holds the optional collaborators of a Pipeline. The zero value is
// usable: templates expand with a fresh engine, scripts are not checked,
// history is not recorded and nothing is written to disk.
type Config struct {
	// Engine expands module templates. Nil means template.New().
	Engine *template.Engine

	// Checker syntax-checks generated scripts. Nil disables the check.
	Checker ScriptChecker

	// History receives one record per run, bounded to HistoryLimit.
	History      HistoryRecorder
	HistoryLimit int

	// Index, when set, also records each run in the run-history graph.
	Index history.Index

	// Sinks receive every event in emission order.
	Sinks []Sink

	// Concurrency bounds parallel template expansion.
	Concurrency int

	// ArchiveOptions configure the per-run archiver.
	ArchiveOptions []archive.Option

	// OutputDir, when set, receives the serialized archive.
	OutputDir string

	// Now is the run clock. Nil means time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Engine == nil {
		c.Engine = template.New()
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = store.DefaultHistoryLimit
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
