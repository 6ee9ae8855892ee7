package pipeline

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// DefaultTOCTitle is the heading shown above the table of contents.
const DefaultTOCTitle = "Table of Contents"

// TOCOptions configures table of contents generation.
type TOCOptions struct {
	Title    string
	MinDepth int // Minimum heading level (default: 1)
	MaxDepth int // Maximum heading level (default: 3)
}

func (o TOCOptions) withDefaults() TOCOptions {
	if o.Title == "" {
		o.Title = DefaultTOCTitle
	}
	if o.MinDepth < 1 || o.MinDepth > 6 {
		o.MinDepth = 1
	}
	if o.MaxDepth < o.MinDepth || o.MaxDepth > 6 {
		o.MaxDepth = 3
		if o.MaxDepth < o.MinDepth {
			o.MaxDepth = o.MinDepth
		}
	}
	return o
}

// numberingState tracks hierarchical numbering for TOC entries.
// The shallowest first heading becomes level 1 and skipped levels collapse.
type numberingState struct {
	counters     [6]int
	minLevelSeen int
	lastLevel    int
}

// next returns the number string and effective depth for a heading level.
func (n *numberingState) next(level int) (numStr string, effectiveDepth int) {
	if n.minLevelSeen == 0 {
		n.minLevelSeen = level
	}

	effectiveDepth = level - n.minLevelSeen + 1
	if effectiveDepth < 1 {
		effectiveDepth = 1
	}

	// H1 -> H3 becomes depth 1 -> depth 2
	if n.lastLevel > 0 && effectiveDepth > n.lastLevel+1 {
		effectiveDepth = n.lastLevel + 1
	}

	for i := effectiveDepth; i < 6; i++ {
		n.counters[i] = 0
	}
	n.counters[effectiveDepth-1]++
	n.lastLevel = effectiveDepth

	parts := make([]string, 0, effectiveDepth)
	for i := 0; i < effectiveDepth; i++ {
		parts = append(parts, strconv.Itoa(n.counters[i]))
	}
	return strings.Join(parts, ".") + ".", effectiveDepth
}

// buildTOC renders a numbered table of contents for the headings within the
// configured depth range. It returns "" when no heading qualifies.
func buildTOC(headings []heading, opts TOCOptions) string {
	opts = opts.withDefaults()

	var buf strings.Builder
	numbering := &numberingState{}
	entries := 0

	for _, h := range headings {
		if h.Level < opts.MinDepth || h.Level > opts.MaxDepth || h.ID == "" {
			continue
		}
		if entries == 0 {
			buf.WriteString(`<nav class="toc"><h2 class="toc-title">`)
			buf.WriteString(html.EscapeString(opts.Title))
			buf.WriteString(`</h2><div class="toc-list">`)
		}
		entries++

		num, depth := numbering.next(h.Level)
		buf.WriteString(`<div class="toc-item"`)
		if depth > 1 {
			buf.WriteString(fmt.Sprintf(` style="padding-left:%.1fem"`, float64(depth-1)*1.5))
		}
		buf.WriteString(`><a href="#`)
		buf.WriteString(html.EscapeString(h.ID))
		buf.WriteString(`"><span class="toc-number">`)
		buf.WriteString(num)
		buf.WriteString(`</span> `)
		buf.WriteString(html.EscapeString(h.Text))
		buf.WriteString(`</a></div>`)
	}

	if entries == 0 {
		return ""
	}
	buf.WriteString(`</div></nav>`)
	return buf.String()
}
