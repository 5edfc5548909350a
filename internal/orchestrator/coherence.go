package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dusk-indust/govgen/internal/unit"
)

// codeBlockRe matches fenced code blocks (``` ... ```).
var codeBlockRe = regexp.MustCompile("(?s)```.*?```")

// leftoverRe matches template markup that survived expansion.
var leftoverRe = regexp.MustCompile(`\{\{\s*([#/]?[A-Za-z_][\w.|]*)[^}]*\}\}`)

// CoherenceIssue is template markup found in a generated document.
type CoherenceIssue struct {
	Unit     string
	File     string
	Markup   string
	Category string
}

func (c CoherenceIssue) String() string {
	return fmt.Sprintf("%s/%s/%s: unexpanded markup %s", c.Unit, c.Category, c.File, c.Markup)
}

// CheckCoherence scans a unit's configs and docs for markup that was left
// unexpanded, usually an unbalanced block tag or an @ reference outside a
// loop. Fenced code blocks and scripts are not scanned.
func CheckCoherence(unitID string, res *unit.Result) []CoherenceIssue {
	if res == nil {
		return nil
	}
	var issues []CoherenceIssue
	scan := func(category string, files []unit.File) {
		for _, f := range files {
			cleaned := codeBlockRe.ReplaceAllString(f.Content, "")
			// Deduplicate within one file.
			seen := make(map[string]bool)
			for _, m := range leftoverRe.FindAllString(cleaned, -1) {
				m = strings.TrimSpace(m)
				if seen[m] {
					continue
				}
				seen[m] = true
				issues = append(issues, CoherenceIssue{Unit: unitID, File: f.Name, Markup: m, Category: category})
			}
		}
	}
	scan(unit.CategoryConfigs, res.Configs)
	scan(unit.CategoryDocs, res.Docs)
	return issues
}
