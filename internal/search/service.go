package search

import (
	"errors"
	"log"
	"strings"
	"sync"

	"pagewise/internal/domain"
	"pagewise/internal/eventbus"
)

// Coordinator owns SearchState. It turns search intents into backend
// requests and backend results into state transitions, dropping results for
// queries that were superseded in the meantime.
type Coordinator struct {
	mu      sync.Mutex
	state   domain.SearchState
	serving Backend // backend asked for the active query
	lastOp  operation
	lastReq Request

	primary  Backend
	fallback Backend
	opts     Options

	bus    eventbus.EventBus
	subs   []eventbus.Subscription
	unbind []func()
}

// NewCoordinator creates a coordinator. primary may be nil, in which case
// every request goes straight to fallback.
func NewCoordinator(bus eventbus.EventBus, primary, fallback Backend, opts Options) *Coordinator {
	return &Coordinator{
		state:    domain.SearchState{Status: domain.SearchIdle},
		primary:  primary,
		fallback: fallback,
		opts:     opts,
		bus:      bus,
	}
}

// Activate binds the backends and subscribes to search intents
func (c *Coordinator) Activate() {
	c.mu.Lock()
	if len(c.subs) > 0 {
		c.mu.Unlock()
		return
	}
	report := func(r Result) { _ = c.HandleResult(r) }
	for _, b := range c.backends() {
		c.unbind = append(c.unbind, b.Bind(report))
	}

	c.subs = append(c.subs,
		c.bus.Subscribe(domain.EventSearch, eventbus.Func(func(e eventbus.Event) {
			if ev, ok := e.(domain.SearchEvent); ok {
				c.Search(ev.Query)
			}
		})),
		c.bus.Subscribe(domain.EventFindNext, eventbus.Func(func(eventbus.Event) { c.FindNext() })),
		c.bus.Subscribe(domain.EventFindPrev, eventbus.Func(func(eventbus.Event) { c.FindPrev() })),
		c.bus.Subscribe(domain.EventDocumentLoading, eventbus.Func(func(eventbus.Event) { c.Reset() })),
	)
	if c.opts.Legacy {
		c.subs = append(c.subs,
			c.bus.Subscribe(domain.EventPDFSearch, eventbus.Func(func(e eventbus.Event) {
				if ev, ok := e.(domain.PDFSearchEvent); ok {
					c.Search(ev.Query)
				}
			})),
			c.bus.Subscribe(domain.EventPDFFindNext, eventbus.Func(func(eventbus.Event) { c.FindNext() })),
			c.bus.Subscribe(domain.EventPDFFindPrev, eventbus.Func(func(eventbus.Event) { c.FindPrev() })),
		)
	}
	c.mu.Unlock()
}

// Deactivate undoes Activate
func (c *Coordinator) Deactivate() {
	c.mu.Lock()
	subs, unbind := c.subs, c.unbind
	c.subs, c.unbind = nil, nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.Unsubscribe(sub)
	}
	for _, fn := range unbind {
		fn()
	}
}

// State returns a copy of the current search state
func (c *Coordinator) State() domain.SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Serving returns the name of the backend serving the active query
func (c *Coordinator) Serving() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.serving == nil {
		return ""
	}
	return c.serving.Name()
}

// Search starts a new search, superseding any in-flight one. An empty
// query clears synchronously without touching the engine.
func (c *Coordinator) Search(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		c.Clear()
		return
	}

	c.mu.Lock()
	c.state = domain.SearchState{Query: query, Status: domain.SearchPending}
	req := Request{Query: query, Options: c.opts.Find}
	c.lastOp, c.lastReq = opFind, req
	st := c.state
	c.mu.Unlock()

	log.Printf("Search: searching for %q", query)
	c.publishState(st)
	c.dispatch(opFind, req)
}

// FindNext advances to the next match; only meaningful while found
func (c *Coordinator) FindNext() {
	c.advance(opNext)
}

// FindPrev moves to the previous match; only meaningful while found
func (c *Coordinator) FindPrev() {
	c.advance(opPrev)
}

func (c *Coordinator) advance(op operation) {
	c.mu.Lock()
	if c.state.Status != domain.SearchFound {
		c.mu.Unlock()
		return
	}
	req := Request{
		Query:   c.state.Query,
		Prev:    op == opPrev,
		Current: c.state.Current,
		Total:   c.state.Total,
		Options: c.opts.Find,
	}
	c.lastOp, c.lastReq = op, req
	c.mu.Unlock()

	c.dispatch(op, req)
}

// Clear resets to cleared from any state and removes all highlights
func (c *Coordinator) Clear() {
	c.reset(domain.SearchCleared)
}

// Reset returns to idle; used when the document changes
func (c *Coordinator) Reset() {
	c.reset(domain.SearchIdle)
}

func (c *Coordinator) reset(status domain.SearchStatus) {
	c.mu.Lock()
	c.state = domain.SearchState{Status: status}
	c.serving = nil
	st := c.state
	c.mu.Unlock()

	for _, b := range c.backends() {
		if err := b.Clear(); err != nil && !errors.Is(err, domain.ErrEngineUnavailable) {
			log.Printf("Search: clear on %s backend: %v", b.Name(), err)
		}
	}

	if status == domain.SearchCleared {
		c.bus.Publish(domain.SearchClearedEvent{})
	}
	c.publishState(st)
}

// HandleResult applies a backend report. Reports for a query other than the
// active one return ErrStaleResult and leave the state untouched.
func (c *Coordinator) HandleResult(r Result) error {
	c.mu.Lock()
	if !c.acceptsLocked(r.Query) {
		c.mu.Unlock()
		log.Printf("Search: dropping result for %q: %v", r.Query, domain.ErrStaleResult)
		return domain.ErrStaleResult
	}

	if r.Err != nil {
		served := c.serving
		op, req := c.lastOp, c.lastReq
		c.mu.Unlock()

		log.Printf("Search: %s backend failed for %q: %v", backendName(served), r.Query, r.Err)
		if served == c.fallback || req.Query != r.Query {
			c.apply(Result{Query: r.Query})
			return nil
		}
		c.runFallback(op, req)
		return nil
	}
	c.mu.Unlock()

	c.apply(r)
	return nil
}

// apply moves to found or not_found and publishes the outcome
func (c *Coordinator) apply(r Result) {
	c.mu.Lock()
	if !c.acceptsLocked(r.Query) {
		c.mu.Unlock()
		return
	}
	if r.Total > 0 {
		c.state.Status = domain.SearchFound
		c.state.Total = r.Total
		c.state.Current = wrap(r.Current, r.Total)
	} else {
		c.state.Status = domain.SearchNotFound
		c.state.Total = 0
		c.state.Current = 0
	}
	st := c.state
	c.mu.Unlock()

	c.bus.Publish(domain.SearchResultsEvent{Current: st.Current, Total: st.Total})
	if c.opts.Legacy {
		c.bus.Publish(domain.PDFFindMatchesEvent{Total: st.Total})
	}
	c.publishState(st)

	if st.Status == domain.SearchFound && r.Page > 0 {
		c.bus.Publish(domain.GoToPageEvent{Page: r.Page})
	}
}

// acceptsLocked reports whether a result for query may change the state
func (c *Coordinator) acceptsLocked(query string) bool {
	if query == "" || query != c.state.Query {
		return false
	}
	switch c.state.Status {
	case domain.SearchPending, domain.SearchFound, domain.SearchNotFound:
		return true
	}
	return false
}

// dispatch sends a request to the backend serving the query, falling back
// to the scanner when that backend is unavailable or fails
func (c *Coordinator) dispatch(op operation, req Request) {
	b := c.pick(op)
	if b != nil && b != c.fallback {
		if b.Available() {
			c.setServing(req.Query, b)
			err := run(b, op, req)
			if err == nil {
				return
			}
			log.Printf("Search: %s on %s backend failed: %v", op, b.Name(), err)
		} else {
			log.Printf("Search: %s backend unavailable for %s", b.Name(), op)
		}
	}
	c.runFallback(op, req)
}

func (c *Coordinator) runFallback(op operation, req Request) {
	if c.fallback == nil || !c.fallback.Available() {
		if op == opFind {
			// Nothing can search: no matches shown
			c.apply(Result{Query: req.Query})
		}
		return
	}
	c.setServing(req.Query, c.fallback)
	if err := run(c.fallback, op, req); err != nil {
		log.Printf("Search: %s on fallback failed: %v", op, err)
		if op == opFind {
			c.apply(Result{Query: req.Query})
		}
	}
}

func (c *Coordinator) pick(op operation) Backend {
	if op == opFind {
		return c.primary
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.serving != nil {
		return c.serving
	}
	return c.primary
}

func (c *Coordinator) setServing(query string, b Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Query == query {
		c.serving = b
	}
}

func (c *Coordinator) backends() []Backend {
	var out []Backend
	if c.primary != nil {
		out = append(out, c.primary)
	}
	if c.fallback != nil && c.fallback != c.primary {
		out = append(out, c.fallback)
	}
	return out
}

func (c *Coordinator) publishState(st domain.SearchState) {
	c.bus.Publish(domain.SearchStateEvent{
		State:   st.Status,
		Query:   st.Query,
		Current: st.Current,
		Total:   st.Total,
	})
	if c.opts.Legacy {
		c.bus.Publish(domain.PDFFindStateEvent{Current: st.Current, Total: st.Total, State: st.Status})
	}
}

func run(b Backend, op operation, req Request) error {
	if op == opFind {
		return b.Find(req)
	}
	return b.Advance(req)
}

// wrap maps any reported position onto [1, total]
func wrap(current, total int) int {
	if current <= 0 {
		return 1
	}
	return (current-1)%total + 1
}

func backendName(b Backend) string {
	if b == nil {
		return "no"
	}
	return b.Name()
}
