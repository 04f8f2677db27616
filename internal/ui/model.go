package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/time/rate"

	"pagewise/internal/config"
	"pagewise/internal/document"
	"pagewise/internal/domain"
	"pagewise/internal/eventbus"
)

// DocumentSource gives the view access to the loaded document
type DocumentSource interface {
	Document() *document.Document
}

// searchTickMsg retries a rate limited incremental search
type searchTickMsg struct{}

// Model is the viewer's Bubble Tea model. It only mirrors state owned by the
// controllers; every change goes out as an intent on the bus.
type Model struct {
	bus    eventbus.EventBus
	config *config.Config
	docs   DocumentSource
	styles *Styles

	width  int
	height int

	path    string
	loading bool
	loadErr error

	viewer     domain.ViewerState
	search     domain.SearchState
	highlights []domain.Highlight

	input      textinput.Model
	searching  bool // input has focus
	sentQuery  string
	limiter    *rate.Limiter
	retryAfter time.Duration

	viewport   viewport.Model
	help       help.Model
	keys       keyMap
	searchKeys searchKeys
	showHelp   bool

	pager *PagerOps
}

// NewModel creates a new UI model
func NewModel(bus eventbus.EventBus, cfg *config.Config, docs DocumentSource) *Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "Enter search term"
	input.CharLimit = 256

	limit := rate.Inf
	retry := 50 * time.Millisecond
	if r := cfg.Search.RateLimit; r > 0 {
		limit = rate.Limit(r)
		retry = time.Duration(float64(time.Second) / r)
	}

	m := &Model{
		bus:        bus,
		config:     cfg,
		docs:       docs,
		styles:     NewStyles(),
		viewer:     domain.ViewerState{Page: 1, Scale: cfg.Viewer.DefaultScale},
		search:     domain.SearchState{Status: domain.SearchIdle},
		input:      input,
		limiter:    rate.NewLimiter(limit, 1),
		retryAfter: retry,
		viewport:   viewport.New(80, 20),
		help:       help.New(),
		keys:       defaultKeyMap(),
		searchKeys: defaultSearchKeys(),
		pager:      NewPagerOps(),
	}
	return m
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	m.pager.SetProgram(p)
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = msg.Width / 2
		m.layout()
		m.refresh(false)
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearchInput(msg)
		}
		return m, m.handleKey(msg)

	case EventMsg:
		m.handleEvent(msg.Event)
		return m, nil

	case searchTickMsg:
		return m, m.flushSearch()

	case pagerMsg:
		if msg.err != nil {
			m.loadErr = fmt.Errorf("pager: %w", msg.err)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()
	case key.Matches(msg, m.keys.NextPage):
		m.bus.Publish(domain.NextPageEvent{})
	case key.Matches(msg, m.keys.PrevPage):
		m.bus.Publish(domain.PrevPageEvent{})
	case key.Matches(msg, m.keys.FirstPage):
		m.bus.Publish(domain.GoToPageEvent{Page: 1})
	case key.Matches(msg, m.keys.LastPage):
		if m.viewer.TotalPages > 0 {
			m.bus.Publish(domain.GoToPageEvent{Page: m.viewer.TotalPages})
		}
	case key.Matches(msg, m.keys.ZoomIn):
		m.bus.Publish(domain.ZoomInEvent{})
	case key.Matches(msg, m.keys.ZoomOut):
		m.bus.Publish(domain.ZoomOutEvent{})
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m.input.Focus()
	case key.Matches(msg, m.keys.FindNext):
		m.bus.Publish(domain.FindNextEvent{})
	case key.Matches(msg, m.keys.FindPrev):
		m.bus.Publish(domain.FindPrevEvent{})
	case key.Matches(msg, m.keys.Clear):
		m.input.SetValue("")
		m.publishSearch("")
	case key.Matches(msg, m.keys.Pager):
		return m.openPager()
	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.LineUp(1)
	case key.Matches(msg, m.keys.ScrollDn):
		m.viewport.LineDown(1)
	}
	return nil
}

func (m *Model) updateSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.searchKeys.Leave):
		m.searching = false
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.searchKeys.Submit):
		query := strings.TrimSpace(m.input.Value())
		if query != "" && query == m.search.Query && m.search.Status == domain.SearchFound {
			// Enter on an unchanged query moves on, like a browser find bar
			m.bus.Publish(domain.FindNextEvent{})
			return m, nil
		}
		m.publishSearch(m.input.Value())
		return m, nil
	case key.Matches(msg, m.searchKeys.Next):
		m.bus.Publish(domain.FindNextEvent{})
		return m, nil
	case key.Matches(msg, m.searchKeys.Prev):
		m.bus.Publish(domain.FindPrevEvent{})
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.config.Search.Incremental && m.input.Value() != before {
		return m, tea.Batch(cmd, m.flushSearch())
	}
	return m, cmd
}

// flushSearch sends the typed query when the rate limit allows it and
// otherwise tries again shortly
func (m *Model) flushSearch() tea.Cmd {
	query := strings.TrimSpace(m.input.Value())
	if query == m.sentQuery {
		return nil
	}
	if !m.limiter.Allow() {
		return tea.Tick(m.retryAfter, func(time.Time) tea.Msg { return searchTickMsg{} })
	}
	m.publishSearch(query)
	return nil
}

func (m *Model) publishSearch(query string) {
	m.sentQuery = strings.TrimSpace(query)
	m.bus.Publish(domain.SearchEvent{Query: query})
}

func (m *Model) openPager() tea.Cmd {
	page, ok := m.currentPage()
	if !ok {
		return nil
	}
	title := fmt.Sprintf("%s - page %d", filepath.Base(m.path), page.Number)
	return m.pager.showCmd(title, page.Text())
}

func (m *Model) handleEvent(e domain.Event) {
	switch ev := e.(type) {
	case domain.PageChangedEvent:
		m.viewer.Page = ev.Page
		m.refresh(true)
	case domain.NumPagesChangedEvent:
		m.viewer.TotalPages = ev.NumPages
	case domain.ScaleChangedEvent:
		m.viewer.Scale = ev.Scale
		m.refresh(false)
	case domain.SearchStateEvent:
		m.search = domain.SearchState{
			Query:   ev.Query,
			Status:  ev.State,
			Current: ev.Current,
			Total:   ev.Total,
		}
	case domain.SearchClearedEvent:
		m.highlights = nil
		m.refresh(false)
	case domain.HighlightsChangedEvent:
		m.highlights = ev.Highlights
		m.refresh(true)
	case domain.DocumentLoadingEvent:
		m.path = ev.Path
		m.loading = true
		m.loadErr = nil
		m.highlights = nil
	case domain.DocumentLoadedEvent:
		m.path = ev.Path
		m.loading = false
		m.loadErr = nil
		m.refresh(false)
	case domain.DocumentLoadFailedEvent:
		m.loading = false
		m.loadErr = ev.Err
		m.viewport.SetContent("")
	}
}

func (m *Model) currentPage() (document.Page, bool) {
	if m.docs == nil {
		return document.Page{}, false
	}
	return m.docs.Document().Page(m.viewer.Page)
}

// refresh re-renders the current page; follow scrolls to the current match
func (m *Model) refresh(follow bool) {
	page, ok := m.currentPage()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	width := wrapWidth(m.viewport.Width-2, m.viewer.Scale)
	r := renderPage(page, m.highlights, width, m.styles)
	m.viewport.SetContent(m.styles.Page.Render(r.content))
	if follow {
		if r.currentLine >= 0 {
			m.viewport.SetYOffset(r.currentLine)
		} else {
			m.viewport.GotoTop()
		}
	}
}

// layout sizes the viewport to what the bars leave free
func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	chrome := lipgloss.Height(m.toolbarView()) + lipgloss.Height(m.searchView()) + lipgloss.Height(m.helpView())
	h := m.height - chrome
	if h < 1 {
		h = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// View renders the UI
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.toolbarView(),
		m.viewport.View(),
		m.searchView(),
		m.helpView(),
	)
}

func (m *Model) toolbarView() string {
	total := "?"
	if m.viewer.TotalPages > 0 {
		total = fmt.Sprintf("%d", m.viewer.TotalPages)
	}
	name := "no document"
	if m.path != "" {
		name = filepath.Base(m.path)
	}

	left := m.styles.Title.Render(name)
	right := fmt.Sprintf("Page %d / %s   %d%%", m.viewer.Page, total, m.viewer.Percent())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.styles.Toolbar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) searchView() string {
	status := m.statusText()
	if m.searching || m.search.Query != "" {
		return m.input.View() + "  " + status
	}
	return status
}

// statusText is the line under the document
func (m *Model) statusText() string {
	switch {
	case m.loadErr != nil:
		return m.styles.StatusError.Render("Error: " + m.loadErr.Error())
	case m.loading:
		return m.styles.StatusLoading.Render("Loading " + filepath.Base(m.path) + "...")
	}

	switch m.search.Status {
	case domain.SearchPending:
		return m.styles.StatusLoading.Render("Searching...")
	case domain.SearchNotFound:
		return m.styles.StatusError.Render("No matches found")
	case domain.SearchFound:
		return m.styles.StatusSuccess.Render(fmt.Sprintf("Match %d of %d", m.search.Current, m.search.Total)) +
			m.styles.Dim.Render("  n/N next/prev")
	}
	return m.styles.Status.Render("Enter search term")
}

func (m *Model) helpView() string {
	if m.searching {
		return m.help.View(m.searchKeys)
	}
	if m.showHelp {
		return m.styles.HelpBox.Render(m.help.View(m.keys))
	}
	return m.help.View(m.keys)
}

// State returns the mirrored viewer and search state
func (m *Model) State() (domain.ViewerState, domain.SearchState) {
	return m.viewer, m.search
}
