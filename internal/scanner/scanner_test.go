package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagewise/internal/domain"
)

type fakeSource struct {
	nodes []domain.TextNode
	gone  map[string]bool
}

func newSource(pages ...[]string) *fakeSource {
	src := &fakeSource{gone: map[string]bool{}}
	for p, texts := range pages {
		for i, text := range texts {
			src.nodes = append(src.nodes, domain.TextNode{
				ID:   string(rune('a'+p)) + string(rune('0'+i)),
				Page: p + 1,
				Text: text,
			})
		}
	}
	return src
}

func (f *fakeSource) Nodes() []domain.TextNode {
	var out []domain.TextNode
	for _, n := range f.nodes {
		if !f.gone[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeSource) Node(id string) (domain.TextNode, bool) {
	for _, n := range f.nodes {
		if n.ID == id && !f.gone[id] {
			return n, true
		}
	}
	return domain.TextNode{}, false
}

func TestScanIsCaseInsensitiveAndOrdered(t *testing.T) {
	src := newSource(
		[]string{"The Cat sat", "on the mat"},
		[]string{"CATALOG of cats"},
	)
	var highlights []domain.Highlight
	s := New(src, func(h []domain.Highlight) { highlights = h })

	res := s.Scan("cat")

	assert.Equal(t, Result{Query: "cat", Current: 1, Total: 3, Page: 1}, res)
	matches := s.Matches()
	require.Len(t, matches, 3)
	assert.Equal(t, Location{NodeID: "a0", Page: 1, Start: 4, End: 7}, matches[0])
	assert.Equal(t, Location{NodeID: "b0", Page: 2, Start: 0, End: 3}, matches[1])
	assert.Equal(t, Location{NodeID: "b0", Page: 2, Start: 11, End: 14}, matches[2])

	require.Len(t, highlights, 3)
	assert.True(t, highlights[0].Current)
	assert.False(t, highlights[1].Current)
	assert.False(t, highlights[2].Current)
}

func TestNextAndPrevWrap(t *testing.T) {
	s := New(newSource([]string{"cat cat cat"}), nil)
	s.Scan("cat")

	assert.Equal(t, 2, s.Next().Current)
	assert.Equal(t, 3, s.Next().Current)
	assert.Equal(t, 1, s.Next().Current, "next from the last match wraps to the first")
	assert.Equal(t, 3, s.Prev().Current, "prev from the first match wraps to the last")
}

func TestZeroMatches(t *testing.T) {
	var highlights []domain.Highlight
	calls := 0
	s := New(newSource([]string{"nothing here"}), func(h []domain.Highlight) {
		calls++
		highlights = h
	})

	res := s.Scan("xyz")
	assert.Equal(t, Result{Query: "xyz"}, res)
	assert.Equal(t, Result{Query: "xyz"}, s.Next())
	assert.Equal(t, Result{Query: "xyz"}, s.Prev())
	assert.Empty(t, highlights)
	assert.Equal(t, 3, calls)
}

func TestNonOverlappingMatches(t *testing.T) {
	s := New(newSource([]string{"aaaa"}), nil)
	assert.Equal(t, 2, s.Scan("aa").Total)
}

func TestDisappearingNodeIsSkipped(t *testing.T) {
	src := newSource([]string{"cat", "cat", "cat"})
	s := New(src, nil)
	require.Equal(t, 3, s.Scan("cat").Total)

	src.gone["a1"] = true
	res := s.Next()

	assert.Equal(t, 2, res.Total, "vanished node is pruned")
	assert.Equal(t, 2, res.Current)
	assert.Equal(t, "a2", s.Matches()[1].NodeID)

	src.gone["a0"] = true
	src.gone["a2"] = true
	require.NotPanics(t, func() { res = s.Prev() })
	assert.Equal(t, Result{Query: "cat"}, res)
}

func TestChangedNodeTextIsSkipped(t *testing.T) {
	src := newSource([]string{"cat", "cat"})
	s := New(src, nil)
	s.Scan("cat")

	src.nodes[1].Text = "dog"
	res := s.Next()
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 1, res.Current)
}

func TestSeek(t *testing.T) {
	s := New(newSource([]string{"x x x x"}), nil)
	s.Scan("x")

	assert.Equal(t, 3, s.Seek(3).Current)
	assert.Equal(t, 4, s.Seek(40).Current)
	assert.Equal(t, 1, s.Seek(0).Current)
	assert.Equal(t, 2, s.Next().Current)
}

func TestUnicodeNormalization(t *testing.T) {
	// "café" with a combining acute accent
	s := New(newSource([]string{"Cafe\u0301 au lait"}), nil)
	res := s.Scan("CAF\u00c9")
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, Location{NodeID: "a0", Page: 1, Start: 0, End: 4}, s.Matches()[0])
}

func TestClearAndSetSource(t *testing.T) {
	var highlights []domain.Highlight
	s := New(newSource([]string{"cat"}), func(h []domain.Highlight) { highlights = h })
	s.Scan("cat")
	require.Len(t, highlights, 1)

	s.Clear()
	assert.Empty(t, highlights)
	assert.Empty(t, s.Query())

	s.SetSource(newSource([]string{"cat cat"}))
	assert.Equal(t, 2, s.Scan("cat").Total)

	s.SetSource(nil)
	assert.Equal(t, 0, s.Scan("cat").Total)
}
