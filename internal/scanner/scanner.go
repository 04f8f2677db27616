// Package scanner implements the manual fallback search: a case-insensitive
// substring scan over already rendered text nodes, used whenever the primary
// search engine cannot serve a request.
package scanner

import (
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"pagewise/internal/domain"
)

// NodeSource exposes rendered text in document order
type NodeSource interface {
	Nodes() []domain.TextNode
	// Node looks a node up again; false means it disappeared since the scan
	Node(id string) (domain.TextNode, bool)
}

// Highlighter receives the full highlight set after every change
type Highlighter func([]domain.Highlight)

// Location is one match; offsets are rune offsets into the normalized node text
type Location struct {
	NodeID string
	Page   int
	Start  int
	End    int
}

// Result is the scanner's view of the current match
type Result struct {
	Query   string
	Current int // 1-based, 0 when there are no matches
	Total   int
	Page    int // page of the current match, 0 when none
}

// Scanner walks a NodeSource and navigates the matches it found
type Scanner struct {
	mu        sync.Mutex
	source    NodeSource
	highlight Highlighter

	query   string // as given by the caller
	folded  []rune
	matches []Location
	current int // index into matches, -1 when none
}

// New creates a scanner; highlight may be nil
func New(source NodeSource, highlight Highlighter) *Scanner {
	return &Scanner{
		source:    source,
		highlight: highlight,
		current:   -1,
	}
}

// SetSource swaps the scanned text, dropping any previous matches
func (s *Scanner) SetSource(source NodeSource) {
	s.mu.Lock()
	s.source = source
	s.reset()
	s.mu.Unlock()

	s.emit(nil)
}

// Query returns the query of the last scan
func (s *Scanner) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Matches returns a copy of the match list
func (s *Scanner) Matches() []Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Location, len(s.matches))
	copy(out, s.matches)
	return out
}

// Scan finds every occurrence of query and selects the first one
func (s *Scanner) Scan(query string) Result {
	s.mu.Lock()
	s.reset()
	s.query = query
	s.folded = fold(query)
	if len(s.folded) > 0 && s.source != nil {
		for _, node := range s.source.Nodes() {
			text := fold(node.Text)
			for _, start := range indexAll(text, s.folded) {
				s.matches = append(s.matches, Location{
					NodeID: node.ID,
					Page:   node.Page,
					Start:  start,
					End:    start + len(s.folded),
				})
			}
		}
	}
	if len(s.matches) > 0 {
		s.current = 0
	}
	res, hl := s.snapshot()
	s.mu.Unlock()

	s.emit(hl)
	return res
}

// Next selects the following match, wrapping from the last to the first
func (s *Scanner) Next() Result {
	return s.move(1)
}

// Prev selects the preceding match, wrapping from the first to the last
func (s *Scanner) Prev() Result {
	return s.move(-1)
}

// Seek selects the 1-based match i, clamped to the list
func (s *Scanner) Seek(i int) Result {
	s.mu.Lock()
	if len(s.matches) > 0 {
		i--
		if i < 0 {
			i = 0
		}
		if i >= len(s.matches) {
			i = len(s.matches) - 1
		}
		s.current = i
		s.settle(1)
	}
	res, hl := s.snapshot()
	s.mu.Unlock()

	s.emit(hl)
	return res
}

// Clear forgets the query and removes every highlight
func (s *Scanner) Clear() {
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()

	s.emit(nil)
}

func (s *Scanner) move(dir int) Result {
	s.mu.Lock()
	if n := len(s.matches); n > 0 {
		s.current = ((s.current+dir)%n + n) % n
		s.settle(dir)
	}
	res, hl := s.snapshot()
	s.mu.Unlock()

	s.emit(hl)
	return res
}

// settle prunes matches whose node vanished or changed, continuing in
// direction dir until a live match is current or the list is empty.
// Must be called with the lock held.
func (s *Scanner) settle(dir int) {
	for len(s.matches) > 0 {
		if s.alive(s.matches[s.current]) {
			return
		}
		s.matches = append(s.matches[:s.current], s.matches[s.current+1:]...)
		n := len(s.matches)
		if n == 0 {
			s.current = -1
			return
		}
		if dir < 0 {
			s.current--
		}
		s.current = (s.current%n + n) % n
	}
	s.current = -1
}

func (s *Scanner) alive(loc Location) bool {
	if s.source == nil {
		return false
	}
	node, ok := s.source.Node(loc.NodeID)
	if !ok {
		return false
	}
	text := fold(node.Text)
	if loc.End > len(text) {
		return false
	}
	return string(text[loc.Start:loc.End]) == string(s.folded)
}

// snapshot must be called with the lock held
func (s *Scanner) snapshot() (Result, []domain.Highlight) {
	res := Result{Query: s.query, Total: len(s.matches)}
	if s.current >= 0 && s.current < len(s.matches) {
		res.Current = s.current + 1
		res.Page = s.matches[s.current].Page
	}
	hl := make([]domain.Highlight, 0, len(s.matches))
	for i, m := range s.matches {
		hl = append(hl, domain.Highlight{
			NodeID:  m.NodeID,
			Page:    m.Page,
			Start:   m.Start,
			End:     m.End,
			Current: i == s.current,
		})
	}
	return res, hl
}

// reset must be called with the lock held
func (s *Scanner) reset() {
	s.query = ""
	s.folded = nil
	s.matches = nil
	s.current = -1
}

func (s *Scanner) emit(hl []domain.Highlight) {
	if s.highlight != nil {
		s.highlight(hl)
	}
}

// fold normalizes to NFC and lower-cases rune by rune so offsets in the
// folded text line up with the normalized original
func fold(text string) []rune {
	runes := []rune(norm.NFC.String(text))
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

// indexAll returns the start of every non-overlapping occurrence of needle
func indexAll(haystack, needle []rune) []int {
	var out []int
	n := len(needle)
	if n == 0 {
		return nil
	}
	for i := 0; i+n <= len(haystack); {
		if equalRunes(haystack[i:i+n], needle) {
			out = append(out, i)
			i += n
			continue
		}
		i++
	}
	return out
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
