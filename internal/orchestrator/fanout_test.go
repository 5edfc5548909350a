package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dusk-indust/govgen/internal/template"
	"github.com/dusk-indust/govgen/internal/unit"
	"github.com/dusk-indust/govgen/internal/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobs_OrderedAndFiltered(t *testing.T) {
	sources := Sources{
		"ISL-02": {"b": "2b", "a": "2a"},
		"ISL-01": {"z": "1z"},
		"ISL-09": {"x": "skipped"},
	}
	jobs := Jobs(sources, []string{"ISL-02", "ISL-01", "ISL-07"})
	require.Len(t, jobs, 3)
	assert.Equal(t, ExpandJob{Module: "ISL-02", Name: "a", Source: "2a"}, jobs[0])
	assert.Equal(t, ExpandJob{Module: "ISL-02", Name: "b", Source: "2b"}, jobs[1])
	assert.Equal(t, ExpandJob{Module: "ISL-01", Name: "z", Source: "1z"}, jobs[2])
}

func TestFanOut_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	engine := template.New()
	engine.RegisterFilter("slow", func(s string) string {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return s
	})

	var jobs []ExpandJob
	for i := 0; i < 12; i++ {
		jobs = append(jobs, ExpandJob{Module: "ISL-01", Name: string(rune('a' + i)), Source: "{{name|slow}}"})
	}

	results := NewFanOut(engine, 3).Run(context.Background(), values.Map{"name": "x"}, jobs)
	require.Len(t, results, 12)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, jobs[i].Name, r.Name)
		assert.Equal(t, "x", r.Text)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestFanOut_FailureDoesNotCancelOthers(t *testing.T) {
	engine := template.New()
	engine.RegisterFilter("explode", func(string) string { panic("no") })

	jobs := []ExpandJob{
		{Module: "ISL-01", Name: "bad", Source: "{{v|explode}}"},
		{Module: "ISL-01", Name: "good", Source: "v={{v}}"},
	}
	results := NewFanOut(engine, 1).Run(context.Background(), values.Map{"v": 7}, jobs)

	assert.ErrorIs(t, results[0].Err, template.ErrExpansionFailed)
	assert.Empty(t, results[0].Text)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "v=7", results[1].Text)
}

func TestMergeExpansions_Deterministic(t *testing.T) {
	errB := &unit.Error{UnitID: "x", Kind: unit.ErrTransformFailed}
	a := []Expansion{
		{Module: "ISL-02", Name: "b", Err: errB},
		{Module: "ISL-01", Name: "a", Text: "A"},
		{Module: "ISL-02", Name: "a", Text: "2A"},
		{Module: "ISL-01", Name: "c", Err: template.ErrExpansionFailed},
	}
	reversed := []Expansion{a[3], a[2], a[1], a[0]}

	tplA, errsA := MergeExpansions(a)
	tplR, errsR := MergeExpansions(reversed)

	assert.Equal(t, tplA, tplR)
	assert.Equal(t, errsA, errsR)
	assert.Equal(t, unit.Templates{"ISL-01": {"a": "A"}, "ISL-02": {"a": "2A"}}, tplA)
	require.Len(t, errsA, 2)
	assert.ErrorIs(t, errsA[0], template.ErrExpansionFailed)
	assert.Same(t, errB, errsA[1])
}

func TestCheckCoherence(t *testing.T) {
	res := &unit.Result{
		Configs: []unit.File{{Name: "a.json", Content: `{"owner": "{{ owner.name }}", "again": "{{ owner.name }}"}`}},
		Docs: []unit.File{
			{Name: "clean.md", Content: "nothing to see"},
			{Name: "fenced.md", Content: "```\n{{example}}\n```\n{{/each}}"},
		},
		Scripts: []unit.File{{Name: "s.ts", Content: "const x = {{a}}"}},
	}
	issues := CheckCoherence("purview", res)
	require.Len(t, issues, 2)
	assert.Equal(t, CoherenceIssue{Unit: "purview", File: "a.json", Markup: "{{ owner.name }}", Category: unit.CategoryConfigs}, issues[0])
	assert.Equal(t, "purview/docs/fenced.md: unexpanded markup {{/each}}", issues[1].String())

	assert.Nil(t, CheckCoherence("x", nil))
}

func TestProgressReporter_DropsWhenFull(t *testing.T) {
	pr := NewProgressReporter()
	for i := 0; i < 100; i++ {
		pr.Emit(Event{Kind: EventProgress, Completed: i})
	}
	pr.Close()

	var n int
	for ev := range pr.Subscribe() {
		assert.Equal(t, n, ev.Completed)
		n++
	}
	assert.Equal(t, 64, n)
}

func TestProgressReporterFor_HoldsWholeRun(t *testing.T) {
	reg := unit.NewRegistry()
	enabled := make([]any, 0, 40)
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("unit-%02d", i)
		register(t, reg, id, stubUnit{result: goodResult()})
		enabled = append(enabled, id)
	}

	pr := NewProgressReporterFor(len(enabled))
	res, err := NewPipeline(Config{Sinks: []Sink{pr}}, baseConfig(enabled...), reg).Execute(context.Background(), testSources())
	require.NoError(t, err)
	pr.Close()

	require.Len(t, res.Events, EventsPerRun(len(enabled)))
	var n int
	for range pr.Subscribe() {
		n++
	}
	assert.Equal(t, len(res.Events), n)
}

func TestFormatProgress(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{Event{Kind: EventRunStart, Total: 3}, "generating 3 unit(s)"},
		{Event{Kind: EventProgress, Unit: "purview", Status: UnitRunning, Completed: 0, Total: 3}, "  ● purview... [0/3]"},
		{Event{Kind: EventProgress, Unit: "purview", Status: UnitComplete, Completed: 1, Total: 3}, "  ✓ purview complete [1/3]"},
		{Event{Kind: EventProgress, Unit: "fabric", Status: UnitPending}, "  ○ fabric (pending)"},
		{Event{Kind: EventUnitError, Unit: "webhook", Message: "boom"}, "  ✗ webhook failed: boom"},
		{Event{Kind: EventRunComplete, Completed: 2, Total: 3}, "done: 0 file(s), 2/3 unit(s) succeeded"},
		{Event{Kind: "other", Unit: "x"}, "  ? x (unknown event)"},
	}
	for _, tc := range cases {
		t.Run(string(tc.ev.Kind), func(t *testing.T) {
			assert.Equal(t, tc.want, FormatProgress(tc.ev))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "aggregating", StateAggregating.String())
	assert.Equal(t, "complete", StateComplete.String())
	assert.Equal(t, "unknown", State(42).String())
}
