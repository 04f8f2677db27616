package engine

import (
	"log"
	"sync"

	"pagewise/internal/channel"
	"pagewise/internal/domain"
	"pagewise/internal/eventbus"
)

// Surface is the rendering side of the channel. It answers find commands
// with the engine and keeps the engine in step with the view.
type Surface struct {
	engine *Engine
	ep     channel.Endpoint
	bus    eventbus.EventBus

	mu     sync.Mutex
	subs   []eventbus.Subscription
	unbind func()
}

// NewSurface binds engine to ep and bus; either may be nil
func NewSurface(engine *Engine, ep channel.Endpoint, bus eventbus.EventBus) *Surface {
	return &Surface{engine: engine, ep: ep, bus: bus}
}

// Activate starts answering commands and following the view
func (s *Surface) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unbind != nil || len(s.subs) > 0 {
		return
	}

	if s.ep != nil {
		s.unbind = s.ep.OnMessage(s.handle)
	}
	if s.bus == nil {
		return
	}
	s.engine.OnHighlights(func(h []domain.Highlight) {
		s.bus.Publish(domain.HighlightsChangedEvent{Highlights: h})
	})
	s.subs = []eventbus.Subscription{
		s.bus.Subscribe(domain.EventPageChanged, eventbus.Func(func(e eventbus.Event) {
			if ev, ok := e.(domain.PageChangedEvent); ok {
				s.engine.SetPage(ev.Page)
			}
		})),
		s.bus.Subscribe(domain.EventScaleChanged, eventbus.Func(func(e eventbus.Event) {
			if ev, ok := e.(domain.ScaleChangedEvent); ok {
				s.engine.SetScale(ev.Scale)
			}
		})),
	}
}

// Deactivate stops answering and unsubscribes
func (s *Surface) Deactivate() {
	s.mu.Lock()
	subs, unbind := s.subs, s.unbind
	s.subs, s.unbind = nil, nil
	s.mu.Unlock()

	if unbind != nil {
		unbind()
	}
	if s.bus != nil {
		s.engine.OnHighlights(nil)
		for _, sub := range subs {
			s.bus.Unsubscribe(sub)
		}
	}
}

func (s *Surface) handle(msg channel.Message) {
	msg = msg.Normalize()
	p := msg.Payload

	switch msg.Cmd {
	case channel.CmdFindNew:
		s.reply(p.Query, func() (domain.MatchCount, error) {
			return s.engine.FindText(p.Query, p.FindOptions)
		})
	case channel.CmdFindNext:
		s.reply(p.Query, func() (domain.MatchCount, error) {
			return s.engine.Advance(p.Query, p.Prev, p.FindOptions)
		})
	case channel.CmdClearHighlights:
		s.engine.ClearMatches()
		s.send(channel.SearchCleared())
	case channel.CmdSearchResults, channel.CmdSearchCleared:
		// Our own kind of message from another surface
	default:
		log.Printf("Surface: ignoring %s", msg.Cmd)
	}
}

func (s *Surface) reply(query string, find func() (domain.MatchCount, error)) {
	m, err := find()
	if err != nil {
		log.Printf("Surface: search for %q failed: %v", query, err)
		s.send(channel.SearchFailed(query, err))
		return
	}
	s.send(channel.SearchResultsOnPage(query, m.Current, m.Total, m.Page))
}

func (s *Surface) send(msg channel.Message) {
	if err := s.ep.Send(msg); err != nil {
		log.Printf("Surface: send %s: %v", msg.Cmd, err)
	}
}
