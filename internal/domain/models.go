package domain

// ViewerState is the navigation state owned by the navigation controller
type ViewerState struct {
	Page       int     // 1-based current page
	TotalPages int     // 0 while the document is not loaded
	Scale      float64 // zoom multiplier, 1.0 == 100%
}

// Percent returns the scale rounded to a whole percentage point
func (s ViewerState) Percent() int {
	return ScalePercent(s.Scale)
}

// ScalePercent converts a zoom multiplier to a display percentage
func ScalePercent(scale float64) int {
	if scale <= 0 {
		return 0
	}
	return int(scale*100 + 0.5)
}

// SearchStatus is the externally observed state of a search
type SearchStatus string

const (
	SearchIdle     SearchStatus = "idle"
	SearchPending  SearchStatus = "pending"
	SearchFound    SearchStatus = "found"
	SearchNotFound SearchStatus = "not_found"
	SearchCleared  SearchStatus = "cleared"
)

// SearchState is owned by the search coordinator
type SearchState struct {
	Query   string
	Status  SearchStatus
	Current int // 1-based, 0 means no match selected
	Total   int
}

// Valid reports whether the state satisfies the search invariants
func (s SearchState) Valid() bool {
	switch s.Status {
	case SearchFound:
		return s.Total > 0 && s.Current >= 1 && s.Current <= s.Total && s.Query != ""
	case SearchNotFound:
		return s.Total == 0 && s.Current == 0
	case SearchIdle, SearchCleared:
		return s.Query == "" && s.Total == 0 && s.Current == 0
	case SearchPending:
		return s.Query != ""
	}
	return false
}

// FindOptions controls how a query is matched
type FindOptions struct {
	HighlightAll  bool `json:"highlightAll" toml:"highlight_all"`
	CaseSensitive bool `json:"caseSensitive" toml:"case_sensitive"`
	EntireWord    bool `json:"entireWord" toml:"entire_word"`
	PhraseSearch  bool `json:"phraseSearch" toml:"phrase_search"`
}

// DefaultFindOptions mirrors the viewer's find bar defaults
func DefaultFindOptions() FindOptions {
	return FindOptions{
		HighlightAll: true,
		PhraseSearch: true,
	}
}

// TextNode is one run of rendered text on a page
type TextNode struct {
	ID   string
	Page int
	Text string
}

// Highlight marks a match inside a text node; offsets are rune offsets
type Highlight struct {
	NodeID  string
	Page    int
	Start   int
	End     int
	Current bool
}

// MatchCount is what a search engine reports after find or advance
type MatchCount struct {
	Current int // 1-based, 0 when there are no matches
	Total   int
	Page    int // page of the current match, 0 when unknown
}
