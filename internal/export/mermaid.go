package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/govgen/internal/archive"
)

// GenerateMermaid produces a Mermaid graph LR diagram of a run: one
// subgraph per executed unit listing its output counts, and an arrow from
// each unit to every deployed module it serves.
func GenerateMermaid(m *archive.RunManifest) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	if m == nil {
		return sb.String()
	}

	// Build node -> ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	deployed := make(map[string]bool, len(m.ModulesDeployed))
	for _, mod := range m.ModulesDeployed {
		deployed[mod] = true
	}

	sb.WriteString(fmt.Sprintf("  %s([\"%s\"])\n", getID("run"), label(m.ClientName)))
	for _, id := range m.UnitsExecuted {
		entry := m.UnitManifests[id]
		name := entry.UnitName
		if name == "" {
			name = id
		}
		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID("unit:"+id+"_group"), label(name)))
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID("unit:"+id), label(id)))
		sb.WriteString(fmt.Sprintf("    %s[\"configs %d / docs %d / scripts %d\"]\n",
			getID("counts:"+id), entry.Counts.Configs, entry.Counts.Docs, entry.Counts.Scripts))
		sb.WriteString("  end\n")
		sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID("run"), getID("unit:"+id)))
	}

	for _, id := range m.UnitsExecuted {
		mods := append([]string(nil), m.UnitManifests[id].Modules...)
		sort.Strings(mods)
		for _, mod := range mods {
			if !deployed[mod] {
				continue
			}
			sb.WriteString(fmt.Sprintf("  %s --> %s{{\"%s\"}}\n", getID("unit:"+id), getID("module:"+mod), label(mod)))
		}
	}
	return sb.String()
}

func label(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
