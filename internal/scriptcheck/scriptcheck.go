// Package scriptcheck parses generated scripts with tree-sitter grammars and
// reports syntax errors. It never fails a run; callers surface the issues as
// warnings.
package scriptcheck

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language identifies a grammar.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangRust       Language = "rust"
)

var extensions = map[string]Language{
	".go": LangGo,
	".py": LangPython,
	".ts": LangTypeScript,
	".rs": LangRust,
}

// LanguageFor maps a file name to its grammar by extension.
func LanguageFor(name string) (Language, bool) {
	l, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return l, ok
}

// Issue is one syntax problem. Line and Column are 1-based.
type Issue struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", i.File, i.Line, i.Column, i.Message)
}

// Checker holds the registered grammars. A new tree-sitter parser is
// created per Check call, so a Checker is safe for concurrent use.
type Checker struct {
	languages map[Language]*tree_sitter.Language
}

// New returns a Checker with Go, Python, TypeScript and Rust grammars.
func New() *Checker {
	return &Checker{
		languages: map[Language]*tree_sitter.Language{
			LangGo:         tree_sitter.NewLanguage(tree_sitter_go.Language()),
			LangPython:     tree_sitter.NewLanguage(tree_sitter_python.Language()),
			LangTypeScript: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			LangRust:       tree_sitter.NewLanguage(tree_sitter_rust.Language()),
		},
	}
}

// Supported returns the checked languages in name order.
func (c *Checker) Supported() []Language {
	out := make([]Language, 0, len(c.languages))
	for l := range c.languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Check parses source according to name's extension. Files with an
// unsupported extension are skipped and yield no issues.
func (c *Checker) Check(name string, source []byte) ([]Issue, error) {
	lang, ok := LanguageFor(name)
	if !ok {
		return nil, nil
	}
	tsLang, ok := c.languages[lang]
	if !ok {
		return nil, nil
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(tsLang); err != nil {
		return nil, fmt.Errorf("scriptcheck: set language %s: %w", lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("scriptcheck: tree-sitter returned nil tree for %s", name)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	var issues []Issue
	cursor := root.Walk()
	defer cursor.Close()
	collect(cursor, name, &issues)
	if len(issues) == 0 {
		// The root reports an error that no descendant pinpoints.
		issues = append(issues, Issue{File: name, Line: 1, Column: 1, Message: "syntax error"})
	}
	return issues, nil
}

func collect(cursor *tree_sitter.TreeCursor, name string, issues *[]Issue) {
	node := cursor.Node()
	switch {
	case node.IsMissing():
		*issues = append(*issues, issueAt(node, name, fmt.Sprintf("missing %s", node.Kind())))
		return
	case node.IsError():
		*issues = append(*issues, issueAt(node, name, "syntax error"))
		return
	case !node.HasError():
		return
	}

	if cursor.GotoFirstChild() {
		collect(cursor, name, issues)
		for cursor.GotoNextSibling() {
			collect(cursor, name, issues)
		}
		cursor.GotoParent()
	}
}

func issueAt(node *tree_sitter.Node, name, msg string) Issue {
	pos := node.StartPosition()
	return Issue{File: name, Line: int(pos.Row) + 1, Column: int(pos.Column) + 1, Message: msg}
}
