package navigation

import (
	"log"
	"sync"

	"pagewise/internal/domain"
	"pagewise/internal/eventbus"
)

// Controller is the single owner of ViewerState
type Controller struct {
	mu      sync.Mutex
	state   domain.ViewerState
	pending int    // deferred page request while TotalPages == 0
	path    string // document the state belongs to
	opts    Options

	bus  eventbus.EventBus
	subs []eventbus.Subscription
}

// NewController creates a controller for a document that is not loaded yet
func NewController(bus eventbus.EventBus, opts Options) *Controller {
	opts = opts.normalized()
	return &Controller{
		state: domain.ViewerState{
			Page:       1,
			TotalPages: 0,
			Scale:      opts.DefaultScale,
		},
		opts: opts,
		bus:  bus,
	}
}

// Activate subscribes the controller to navigation intents
func (c *Controller) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) > 0 {
		return
	}

	c.subs = []eventbus.Subscription{
		c.bus.Subscribe(domain.EventGoToPage, eventbus.Func(func(e eventbus.Event) {
			if ev, ok := e.(domain.GoToPageEvent); ok {
				c.GoToPage(ev.Page)
			}
		})),
		c.bus.Subscribe(domain.EventNextPage, eventbus.Func(func(eventbus.Event) { c.NextPage() })),
		c.bus.Subscribe(domain.EventPrevPage, eventbus.Func(func(eventbus.Event) { c.PrevPage() })),
		c.bus.Subscribe(domain.EventZoomIn, eventbus.Func(func(eventbus.Event) { c.ZoomIn() })),
		c.bus.Subscribe(domain.EventZoomOut, eventbus.Func(func(eventbus.Event) { c.ZoomOut() })),
		c.bus.Subscribe(domain.EventDocumentLoading, eventbus.Func(func(e eventbus.Event) {
			if ev, ok := e.(domain.DocumentLoadingEvent); ok {
				c.documentLoading(ev.Path)
			}
		})),
		c.bus.Subscribe(domain.EventDocumentLoaded, eventbus.Func(func(e eventbus.Event) {
			if ev, ok := e.(domain.DocumentLoadedEvent); ok {
				c.SetTotalPages(ev.NumPages)
			}
		})),
	}
}

// Deactivate removes every subscription made by Activate
func (c *Controller) Deactivate() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.Unsubscribe(sub)
	}
}

// State returns a copy of the current state
func (c *Controller) State() domain.ViewerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the deferred page request, 0 if none
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// GoToPage moves to page n, clamped to the document. Before the page count
// is known the request is remembered and replayed by SetTotalPages.
func (c *Controller) GoToPage(n int) {
	c.mu.Lock()
	if c.state.TotalPages == 0 {
		c.pending = n
		c.mu.Unlock()
		return
	}
	events := c.setPage(n)
	c.mu.Unlock()

	c.publish(events...)
}

// NextPage moves forward one page; no-op on the last page
func (c *Controller) NextPage() {
	c.step(1)
}

// PrevPage moves back one page; no-op on the first page
func (c *Controller) PrevPage() {
	c.step(-1)
}

func (c *Controller) step(delta int) {
	c.mu.Lock()
	total := c.state.TotalPages
	target := c.state.Page + delta
	if total == 0 || target < 1 || target > total {
		c.mu.Unlock()
		return
	}
	events := c.setPage(target)
	c.mu.Unlock()

	c.publish(events...)
}

// SetTotalPages records the page count and replays a deferred request
func (c *Controller) SetTotalPages(n int) {
	if n < 0 {
		n = 0
	}

	c.mu.Lock()
	c.state.TotalPages = n
	events := []domain.Event{domain.NumPagesChangedEvent{NumPages: n}}
	if n > 0 {
		target := c.state.Page
		if c.pending != 0 {
			target = c.pending
			c.pending = 0
		}
		events = append(events, c.setPage(target)...)
	}
	c.mu.Unlock()

	c.publish(events...)
}

// ZoomIn multiplies the scale by the zoom step, up to MaxScale
func (c *Controller) ZoomIn() {
	c.setScale(func(s float64) float64 { return s * c.opts.ZoomStep })
}

// ZoomOut divides the scale by the zoom step, down to MinScale
func (c *Controller) ZoomOut() {
	c.setScale(func(s float64) float64 { return s / c.opts.ZoomStep })
}

// SetScale sets an absolute scale, clamped to the configured range
func (c *Controller) SetScale(s float64) {
	c.setScale(func(float64) float64 { return s })
}

func (c *Controller) setScale(next func(float64) float64) {
	c.mu.Lock()
	old := c.state.Scale
	c.state.Scale = clampScale(next(old), c.opts.MinScale, c.opts.MaxScale)
	scale := c.state.Scale
	c.mu.Unlock()

	if scale != old {
		c.publish(domain.ScaleChangedEvent{Scale: scale, Percent: domain.ScalePercent(scale)})
	}
}

// Reset returns to the state of a document that has started loading
func (c *Controller) Reset() {
	c.mu.Lock()
	events := c.reset()
	c.mu.Unlock()

	c.publish(events...)
}

func (c *Controller) documentLoading(path string) {
	c.mu.Lock()
	keep := 0
	if path != "" && path == c.path && c.state.Page > 1 {
		// Reloading the same file keeps the reader's position
		keep = c.state.Page
	}
	c.path = path
	events := c.reset()
	c.pending = keep
	c.mu.Unlock()

	c.publish(events...)
}

// reset must be called with the lock held
func (c *Controller) reset() []domain.Event {
	var events []domain.Event
	if c.state.Page != 1 {
		events = append(events, domain.PageChangedEvent{Page: 1})
	}
	if c.state.TotalPages != 0 {
		events = append(events, domain.NumPagesChangedEvent{NumPages: 0})
	}
	if c.state.Scale != c.opts.DefaultScale {
		events = append(events, domain.ScaleChangedEvent{
			Scale:   c.opts.DefaultScale,
			Percent: domain.ScalePercent(c.opts.DefaultScale),
		})
	}
	c.state = domain.ViewerState{Page: 1, Scale: c.opts.DefaultScale}
	c.pending = 0
	return events
}

// setPage must be called with the lock held and TotalPages > 0
func (c *Controller) setPage(n int) []domain.Event {
	old := c.state.Page
	c.state.Page = c.clampPage(n)
	if c.state.Page == old {
		return nil
	}
	return []domain.Event{domain.PageChangedEvent{Page: c.state.Page}}
}

func (c *Controller) clampPage(n int) int {
	if n < 1 {
		return 1
	}
	if n > c.state.TotalPages {
		return c.state.TotalPages
	}
	return n
}

// publish runs outside the lock so handlers may call back into the controller
func (c *Controller) publish(events ...domain.Event) {
	for _, e := range events {
		if e.Type() == domain.EventNumPagesChanged {
			log.Printf("Navigation: page count is %d", e.(domain.NumPagesChangedEvent).NumPages)
		}
		c.bus.Publish(e)
	}
}
