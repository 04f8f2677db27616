// Package document loads files into pages of text nodes and keeps the open
// document in sync with the file on disk.
package document

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"pagewise/internal/domain"
)

// Page is one page of extracted text, one node per line
type Page struct {
	Number int
	Nodes  []domain.TextNode
}

// Text joins the page's lines
func (p Page) Text() string {
	lines := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		lines[i] = n.Text
	}
	return strings.Join(lines, "\n")
}

// Document is an immutable loaded file
type Document struct {
	Path  string
	pages []Page
	index map[string]domain.TextNode
}

// New builds a document from the lines of each page. Text is normalized to
// NFC so offsets agree with the search engines.
func New(path string, pages [][]string) *Document {
	d := &Document{
		Path:  path,
		pages: make([]Page, 0, len(pages)),
		index: make(map[string]domain.TextNode),
	}
	for i, lines := range pages {
		page := Page{Number: i + 1}
		for j, line := range lines {
			node := domain.TextNode{
				ID:   nodeID(i+1, j),
				Page: i + 1,
				Text: norm.NFC.String(line),
			}
			page.Nodes = append(page.Nodes, node)
			d.index[node.ID] = node
		}
		d.pages = append(d.pages, page)
	}
	return d
}

func nodeID(page, line int) string {
	return fmt.Sprintf("p%d:%d", page, line)
}

// NumPages returns the page count
func (d *Document) NumPages() int {
	if d == nil {
		return 0
	}
	return len(d.pages)
}

// Page returns the 1-based page n
func (d *Document) Page(n int) (Page, bool) {
	if d == nil || n < 1 || n > len(d.pages) {
		return Page{}, false
	}
	return d.pages[n-1], true
}

// Nodes returns every text node in document order
func (d *Document) Nodes() []domain.TextNode {
	if d == nil {
		return nil
	}
	var out []domain.TextNode
	for _, p := range d.pages {
		out = append(out, p.Nodes...)
	}
	return out
}

// Node looks up a node by ID
func (d *Document) Node(id string) (domain.TextNode, bool) {
	if d == nil {
		return domain.TextNode{}, false
	}
	n, ok := d.index[id]
	return n, ok
}
