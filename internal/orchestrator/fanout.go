package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/dusk-indust/govgen/internal/template"
	"github.com/dusk-indust/govgen/internal/values"
	"golang.org/x/sync/errgroup"
)

// ExpandJob is one (module, template) pair to expand.
type ExpandJob struct {
	Module string
	Name   string
	Source string
}

// Expansion is the outcome of one ExpandJob.
type Expansion struct {
	Module string
	Name   string

	// Text is the expanded template on success.
	Text string

	// Err is non-nil if expansion failed.
	Err error
}

// FanOut expands templates in parallel against one configuration snapshot.
type FanOut struct {
	engine *template.Engine
	limit  int
}

// NewFanOut creates a FanOut that runs at most limit expansions at once.
func NewFanOut(engine *template.Engine, limit int) *FanOut {
	if engine == nil {
		engine = template.New()
	}
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &FanOut{engine: engine, limit: limit}
}

// Jobs flattens sources for the given modules into expansion jobs ordered by
// module then template name. Modules absent from sources are skipped.
func Jobs(sources Sources, modules []string) []ExpandJob {
	var jobs []ExpandJob
	for _, mod := range modules {
		byName, ok := sources[mod]
		if !ok {
			continue
		}
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			jobs = append(jobs, ExpandJob{Module: mod, Name: name, Source: byName[name]})
		}
	}
	return jobs
}

// Run expands every job and returns one Expansion per job, in job order.
// A failing job never cancels the others: each failure is reported in its
// Expansion and wraps template.ErrExpansionFailed.
func (f *FanOut) Run(ctx context.Context, cfg values.Map, jobs []ExpandJob) []Expansion {
	results := make([]Expansion, len(jobs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(f.limit)

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = f.expand(cfg, job)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (f *FanOut) expand(cfg values.Map, job ExpandJob) (res Expansion) {
	res = Expansion{Module: job.Module, Name: job.Name}
	defer func() {
		if r := recover(); r != nil {
			res.Text = ""
			res.Err = fmt.Errorf("orchestrator: expand %s/%s: %w: %v", job.Module, job.Name, template.ErrExpansionFailed, r)
		}
	}()

	text, err := f.engine.SafeExpand(job.Source, cfg)
	if err != nil {
		res.Err = fmt.Errorf("orchestrator: expand %s/%s: %w", job.Module, job.Name, err)
		return res
	}
	res.Text = text
	return res
}
