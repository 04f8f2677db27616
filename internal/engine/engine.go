// Package engine is the in-process search engine behind the document view.
// It matches over the loaded document, tracks the current match and reports
// highlights; Surface exposes it over a channel.
package engine

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"pagewise/internal/document"
	"pagewise/internal/domain"
)

type match struct {
	node  int // index into nodes
	start int // rune offsets into the node text
	end   int
	page  int
}

// Engine finds text in the loaded document
type Engine struct {
	mu    sync.Mutex
	doc   *document.Document
	nodes []domain.TextNode
	page  int
	scale float64

	query   string
	opts    domain.FindOptions
	matches []match
	current int // -1 when none

	onHighlights func([]domain.Highlight)
}

// New creates an engine with no document
func New() *Engine {
	return &Engine{page: 1, scale: 1, current: -1}
}

// OnHighlights registers the function told about every highlight change
func (e *Engine) OnHighlights(fn func([]domain.Highlight)) {
	e.mu.Lock()
	e.onHighlights = fn
	e.mu.Unlock()
}

// SetDocument replaces the document and drops all matches; nil unloads
func (e *Engine) SetDocument(doc *document.Document) {
	e.mu.Lock()
	e.doc = doc
	e.nodes = doc.Nodes()
	e.page = 1
	e.resetLocked()
	fn := e.onHighlights
	e.mu.Unlock()

	if fn != nil {
		fn(nil)
	}
}

// Document returns the loaded document
func (e *Engine) Document() *document.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

// SetPage records the page on screen; new searches start there
func (e *Engine) SetPage(n int) {
	e.mu.Lock()
	e.page = n
	e.mu.Unlock()
}

// Page returns the page on screen
func (e *Engine) Page() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// SetScale records the render scale
func (e *Engine) SetScale(s float64) {
	e.mu.Lock()
	e.scale = s
	e.mu.Unlock()
}

// Scale returns the render scale
func (e *Engine) Scale() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scale
}

// Nodes returns the rendered text nodes in document order
func (e *Engine) Nodes() []domain.TextNode {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.TextNode, len(e.nodes))
	copy(out, e.nodes)
	return out
}

// Node looks up a rendered node
func (e *Engine) Node(id string) (domain.TextNode, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Node(id)
}

// FindText runs a new search. The first match at or after the current page
// becomes current.
func (e *Engine) FindText(query string, opts domain.FindOptions) (domain.MatchCount, error) {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return domain.MatchCount{}, domain.ErrEngineUnavailable
	}
	e.runLocked(query, opts)
	res, hl, fn := e.reportLocked()
	e.mu.Unlock()

	if fn != nil {
		fn(hl)
	}
	return res, nil
}

// Advance moves to the next or previous match, wrapping around. A query or
// option change starts a new search instead.
func (e *Engine) Advance(query string, prev bool, opts domain.FindOptions) (domain.MatchCount, error) {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return domain.MatchCount{}, domain.ErrEngineUnavailable
	}
	if query != e.query || opts != e.opts {
		e.runLocked(query, opts)
	} else if n := len(e.matches); n > 0 {
		if prev {
			e.current = (e.current - 1 + n) % n
		} else {
			e.current = (e.current + 1) % n
		}
	}
	res, hl, fn := e.reportLocked()
	e.mu.Unlock()

	if fn != nil {
		fn(hl)
	}
	return res, nil
}

// ClearMatches forgets the query and removes every highlight
func (e *Engine) ClearMatches() {
	e.mu.Lock()
	e.resetLocked()
	fn := e.onHighlights
	e.mu.Unlock()

	if fn != nil {
		fn(nil)
	}
}

// Highlights returns the current highlight set
func (e *Engine) Highlights() []domain.Highlight {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.highlightsLocked()
}

func (e *Engine) resetLocked() {
	e.query = ""
	e.opts = domain.FindOptions{}
	e.matches = nil
	e.current = -1
}

func (e *Engine) runLocked(query string, opts domain.FindOptions) {
	e.query = query
	e.opts = opts
	e.matches = nil
	e.current = -1

	terms := splitTerms(query, opts)
	if len(terms) == 0 {
		return
	}
	for i, node := range e.nodes {
		text := prepare(node.Text, opts.CaseSensitive)
		for _, term := range terms {
			for _, start := range indexAll(text, term, opts.EntireWord) {
				e.matches = append(e.matches, match{
					node:  i,
					start: start,
					end:   start + len(term),
					page:  node.Page,
				})
			}
		}
	}
	sort.SliceStable(e.matches, func(a, b int) bool {
		ma, mb := e.matches[a], e.matches[b]
		if ma.node != mb.node {
			return ma.node < mb.node
		}
		return ma.start < mb.start
	})

	if len(e.matches) > 0 {
		e.current = 0
		for i, m := range e.matches {
			if m.page >= e.page {
				e.current = i
				break
			}
		}
	}
}

func (e *Engine) reportLocked() (domain.MatchCount, []domain.Highlight, func([]domain.Highlight)) {
	res := domain.MatchCount{Total: len(e.matches)}
	if e.current >= 0 {
		res.Current = e.current + 1
		res.Page = e.matches[e.current].page
	}
	return res, e.highlightsLocked(), e.onHighlights
}

func (e *Engine) highlightsLocked() []domain.Highlight {
	if len(e.matches) == 0 {
		return nil
	}
	out := make([]domain.Highlight, 0, len(e.matches))
	for i, m := range e.matches {
		if !e.opts.HighlightAll && i != e.current {
			continue
		}
		out = append(out, domain.Highlight{
			NodeID:  e.nodes[m.node].ID,
			Page:    m.page,
			Start:   m.start,
			End:     m.end,
			Current: i == e.current,
		})
	}
	return out
}

// splitTerms turns the query into the needles to look for. Phrase search
// looks for the whole query, otherwise each word is matched on its own.
func splitTerms(query string, opts domain.FindOptions) [][]rune {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if opts.PhraseSearch {
		return [][]rune{prepare(query, opts.CaseSensitive)}
	}
	var terms [][]rune
	seen := make(map[string]bool)
	for _, word := range strings.Fields(query) {
		if seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, prepare(word, opts.CaseSensitive))
	}
	return terms
}

func prepare(text string, caseSensitive bool) []rune {
	runes := []rune(norm.NFC.String(text))
	if !caseSensitive {
		for i, r := range runes {
			runes[i] = unicode.ToLower(r)
		}
	}
	return runes
}

// indexAll returns the start of every non-overlapping occurrence of needle.
// With wholeWord set a match must not touch a letter or digit on either side.
func indexAll(haystack, needle []rune, wholeWord bool) []int {
	n := len(needle)
	if n == 0 {
		return nil
	}
	var out []int
	for i := 0; i+n <= len(haystack); {
		if equalRunes(haystack[i:i+n], needle) && (!wholeWord || bounded(haystack, i, i+n)) {
			out = append(out, i)
			i += n
			continue
		}
		i++
	}
	return out
}

func bounded(text []rune, start, end int) bool {
	if start > 0 && isWordRune(text[start-1]) {
		return false
	}
	if end < len(text) && isWordRune(text[end]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
