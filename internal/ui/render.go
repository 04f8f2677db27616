package ui

import (
	"sort"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"pagewise/internal/document"
	"pagewise/internal/domain"
)

const minWrapWidth = 10

// renderedPage is a page laid out for the viewport
type renderedPage struct {
	content     string
	currentLine int // line where the current match's node starts, -1 if not on this page
}

// wrapWidth narrows the text column as the scale grows
func wrapWidth(width int, scale float64) int {
	if scale <= 0 {
		scale = 1
	}
	w := int(float64(width) / scale)
	if w > width {
		w = width
	}
	if w < minWrapWidth {
		w = minWrapWidth
	}
	return w
}

// renderPage styles the highlights on page and wraps every line to width
func renderPage(page document.Page, highlights []domain.Highlight, width int, styles *Styles) renderedPage {
	byNode := make(map[string][]domain.Highlight)
	for _, h := range highlights {
		if h.Page == page.Number {
			byNode[h.NodeID] = append(byNode[h.NodeID], h)
		}
	}

	out := renderedPage{currentLine: -1}
	var b strings.Builder
	lines := 0
	for _, node := range page.Nodes {
		hs := byNode[node.ID]
		for _, h := range hs {
			if h.Current && out.currentLine < 0 {
				out.currentLine = lines
			}
		}
		text := styleLine(node.Text, hs, styles)
		// wordwrap leaves words longer than the limit alone; wrap breaks them
		text = wrap.String(wordwrap.String(text, width), width)
		if lines > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(text)
		lines += strings.Count(text, "\n") + 1
	}
	out.content = b.String()
	return out
}

// styleLine applies highlight styles at rune offsets
func styleLine(text string, hs []domain.Highlight, styles *Styles) string {
	if len(hs) == 0 {
		return text
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].Start < hs[j].Start })

	runes := []rune(text)
	var b strings.Builder
	pos := 0
	for _, h := range hs {
		start, end := h.Start, h.End
		if start < pos || end > len(runes) || start >= end {
			continue
		}
		b.WriteString(string(runes[pos:start]))
		style := styles.Match
		if h.Current {
			style = styles.CurrentMatch
		}
		b.WriteString(style.Render(string(runes[start:end])))
		pos = end
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}
