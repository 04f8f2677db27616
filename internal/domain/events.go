package domain

// EventType is the topic name an event is published under
type EventType string

// Event types
const (
	// navigation intents
	EventGoToPage EventType = "goToPage"
	EventNextPage EventType = "nextPage"
	EventPrevPage EventType = "prevPage"
	EventZoomIn   EventType = "zoomIn"
	EventZoomOut  EventType = "zoomOut"

	// navigation notifications
	EventPageChanged     EventType = "pageChanged"
	EventNumPagesChanged EventType = "numPagesChanged"
	EventScaleChanged    EventType = "scaleChanged"

	// search intents
	EventSearch   EventType = "search"
	EventFindNext EventType = "findNext"
	EventFindPrev EventType = "findPrev"

	// search notifications
	EventSearchResults EventType = "searchResults"
	EventSearchState   EventType = "searchState"
	EventSearchCleared EventType = "searchCleared"

	// document lifecycle
	EventDocumentLoading    EventType = "documentLoading"
	EventDocumentLoaded     EventType = "documentLoaded"
	EventDocumentLoadFailed EventType = "documentLoadFailed"

	EventHighlightsChanged EventType = "highlightsChanged"
)

// Legacy topic names used by older find bar integrations
const (
	EventPDFSearch      EventType = "pdf-search"
	EventPDFFindNext    EventType = "pdf-find-next"
	EventPDFFindPrev    EventType = "pdf-find-prev"
	EventPDFFindMatches EventType = "pdf-find-matches"
	EventPDFFindState   EventType = "pdf-find-state"
)

// Event is the interface for everything published on the bus
type Event interface {
	Type() EventType
}

// GoToPageEvent requests a jump to a page
type GoToPageEvent struct {
	Page int
}

func (e GoToPageEvent) Type() EventType { return EventGoToPage }

// NextPageEvent requests the following page
type NextPageEvent struct{}

func (e NextPageEvent) Type() EventType { return EventNextPage }

// PrevPageEvent requests the preceding page
type PrevPageEvent struct{}

func (e PrevPageEvent) Type() EventType { return EventPrevPage }

// ZoomInEvent requests one zoom step in
type ZoomInEvent struct{}

func (e ZoomInEvent) Type() EventType { return EventZoomIn }

// ZoomOutEvent requests one zoom step out
type ZoomOutEvent struct{}

func (e ZoomOutEvent) Type() EventType { return EventZoomOut }

// PageChangedEvent is emitted after the current page changed
type PageChangedEvent struct {
	Page int
}

func (e PageChangedEvent) Type() EventType { return EventPageChanged }

// NumPagesChangedEvent is emitted when the page count becomes known
type NumPagesChangedEvent struct {
	NumPages int
}

func (e NumPagesChangedEvent) Type() EventType { return EventNumPagesChanged }

// ScaleChangedEvent is emitted after a zoom change
type ScaleChangedEvent struct {
	Scale   float64
	Percent int // Scale rounded to a whole percentage point
}

func (e ScaleChangedEvent) Type() EventType { return EventScaleChanged }

// SearchEvent starts a search; an empty query clears it
type SearchEvent struct {
	Query string
}

func (e SearchEvent) Type() EventType { return EventSearch }

// FindNextEvent moves to the next match
type FindNextEvent struct{}

func (e FindNextEvent) Type() EventType { return EventFindNext }

// FindPrevEvent moves to the previous match
type FindPrevEvent struct{}

func (e FindPrevEvent) Type() EventType { return EventFindPrev }

// SearchResultsEvent carries match counts for the active query
type SearchResultsEvent struct {
	Current int
	Total   int
}

func (e SearchResultsEvent) Type() EventType { return EventSearchResults }

// SearchStateEvent is the full search state after every transition
type SearchStateEvent struct {
	State   SearchStatus
	Query   string
	Current int
	Total   int
}

func (e SearchStateEvent) Type() EventType { return EventSearchState }

// SearchClearedEvent is emitted when the search was cleared
type SearchClearedEvent struct{}

func (e SearchClearedEvent) Type() EventType { return EventSearchCleared }

// DocumentLoadingEvent is emitted when a document load starts
type DocumentLoadingEvent struct {
	Path string
}

func (e DocumentLoadingEvent) Type() EventType { return EventDocumentLoading }

// DocumentLoadedEvent is emitted once page metadata is available
type DocumentLoadedEvent struct {
	Path     string
	NumPages int
}

func (e DocumentLoadedEvent) Type() EventType { return EventDocumentLoaded }

// DocumentLoadFailedEvent is emitted when a document could not be loaded
type DocumentLoadFailedEvent struct {
	Path string
	Err  error
}

func (e DocumentLoadFailedEvent) Type() EventType { return EventDocumentLoadFailed }

// HighlightsChangedEvent replaces the set of rendered match highlights
type HighlightsChangedEvent struct {
	Highlights []Highlight
}

func (e HighlightsChangedEvent) Type() EventType { return EventHighlightsChanged }

// PDFSearchEvent is the legacy form of SearchEvent
type PDFSearchEvent struct {
	Query string
}

func (e PDFSearchEvent) Type() EventType { return EventPDFSearch }

// PDFFindNextEvent is the legacy form of FindNextEvent
type PDFFindNextEvent struct{}

func (e PDFFindNextEvent) Type() EventType { return EventPDFFindNext }

// PDFFindPrevEvent is the legacy form of FindPrevEvent
type PDFFindPrevEvent struct{}

func (e PDFFindPrevEvent) Type() EventType { return EventPDFFindPrev }

// PDFFindMatchesEvent mirrors SearchResultsEvent for legacy listeners
type PDFFindMatchesEvent struct {
	Total int
}

func (e PDFFindMatchesEvent) Type() EventType { return EventPDFFindMatches }

// PDFFindStateEvent mirrors SearchStateEvent for legacy listeners
type PDFFindStateEvent struct {
	Current int
	Total   int
	State   SearchStatus
}

func (e PDFFindStateEvent) Type() EventType { return EventPDFFindState }
