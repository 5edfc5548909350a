package template

import (
	"sort"
	"strings"
)

type tagKind int

const (
	tagPlaceholder tagKind = iota
	tagOpen
	tagElse
	tagClose
	tagLiteral
)

// tag is one {{...}} occurrence in a document.
type tag struct {
	start, end int // byte offsets of "{{" and just past "}}"
	kind       tagKind
	block      string // each, if, unless for open and close tags
	arg        string // path or expression for open tags, raw text for placeholders
}

// scanTags returns every tag in doc in order of appearance. When "{{"
// repeats before the closing "}}" the innermost opener wins, so stray
// braces stay literal.
func scanTags(doc string) []tag {
	var tags []tag
	i := 0
	for {
		j := strings.Index(doc[i:], "{{")
		if j < 0 {
			return tags
		}
		j += i
		k := strings.Index(doc[j+2:], "}}")
		if k < 0 {
			return tags
		}
		k += j + 2
		if inner := strings.LastIndex(doc[j:k], "{{"); inner > 0 {
			j += inner
		}
		tags = append(tags, classify(doc[j+2:k], j, k+2))
		i = k + 2
	}
}

func classify(content string, start, end int) tag {
	t := tag{start: start, end: end}
	c := strings.TrimSpace(content)
	switch {
	case c == "":
		t.kind = tagLiteral
	case c == "else":
		t.kind = tagElse
	case strings.HasPrefix(c, "#"):
		name, arg, _ := strings.Cut(c[1:], " ")
		arg = strings.TrimSpace(arg)
		if !isBlock(name) || arg == "" {
			t.kind = tagLiteral
			break
		}
		t.kind, t.block, t.arg = tagOpen, name, arg
	case strings.HasPrefix(c, "/"):
		name := strings.TrimSpace(c[1:])
		if !isBlock(name) {
			t.kind = tagLiteral
			break
		}
		t.kind, t.block = tagClose, name
	default:
		t.kind, t.arg = tagPlaceholder, c
	}
	return t
}

func isBlock(name string) bool {
	return name == "each" || name == "if" || name == "unless"
}

// block is a matched open/close pair.
type block struct {
	open, close tag
	elseTag     *tag
}

// body returns the text between the open and close tags.
func (b block) body(doc string) string {
	return doc[b.open.end:b.close.start]
}

// branches splits the body at the block's else tag, if any.
func (b block) branches(doc string) (string, string) {
	if b.elseTag == nil {
		return b.body(doc), ""
	}
	return doc[b.open.end:b.elseTag.start], doc[b.elseTag.end:b.close.start]
}

// pairBlocks matches open and close tags of the given block kinds by
// nesting and returns only the outermost pairs, ordered by position. A
// close tag that does not match the innermost open block is ignored, as are
// opens that are never closed. Else tags bind to the innermost open block
// when withElse is set.
func pairBlocks(tags []tag, kinds map[string]bool, withElse bool) []block {
	type frame struct {
		open    tag
		elseTag *tag
	}
	var stack []frame
	var pairs []block
	for i := range tags {
		t := tags[i]
		switch t.kind {
		case tagOpen:
			if kinds[t.block] {
				stack = append(stack, frame{open: t})
			}
		case tagElse:
			if withElse && len(stack) > 0 && stack[len(stack)-1].elseTag == nil {
				stack[len(stack)-1].elseTag = &tags[i]
			}
		case tagClose:
			if !kinds[t.block] || len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if top.open.block != t.block {
				continue
			}
			stack = stack[:len(stack)-1]
			pairs = append(pairs, block{open: top.open, close: t, elseTag: top.elseTag})
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].open.start < pairs[j].open.start })
	var outer []block
	end := -1
	for _, p := range pairs {
		if p.open.start < end {
			continue
		}
		outer = append(outer, p)
		end = p.close.end
	}
	return outer
}

// replaceBlocks rebuilds doc with each outermost block replaced by render's
// result. Text outside the blocks is copied verbatim.
func replaceBlocks(doc string, blocks []block, render func(block) string) string {
	if len(blocks) == 0 {
		return doc
	}
	var sb strings.Builder
	sb.Grow(len(doc))
	last := 0
	for _, b := range blocks {
		sb.WriteString(doc[last:b.open.start])
		sb.WriteString(render(b))
		last = b.close.end
	}
	sb.WriteString(doc[last:])
	return sb.String()
}
