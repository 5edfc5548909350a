package orchestrator

import (
	"sort"

	"github.com/dusk-indust/govgen/internal/unit"
)

// MergeExpansions folds fan-out results into the shared template set. The
// result is independent of completion order: successful expansions are
// keyed by module and name, and failures are returned sorted by module then
// name.
func MergeExpansions(results []Expansion) (unit.Templates, []error) {
	sorted := append([]Expansion(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Module != sorted[j].Module {
			return sorted[i].Module < sorted[j].Module
		}
		return sorted[i].Name < sorted[j].Name
	})

	tpl := make(unit.Templates)
	var errs []error
	for _, r := range sorted {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		byName, ok := tpl[r.Module]
		if !ok {
			byName = make(map[string]string)
			tpl[r.Module] = byName
		}
		byName[r.Name] = r.Text
	}
	return tpl, errs
}
