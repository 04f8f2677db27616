package search

import (
	"fmt"

	"pagewise/internal/channel"
	"pagewise/internal/domain"
	"pagewise/internal/scanner"
)

// Backend is one strategy for serving searches. Results are delivered to the
// bound Reporter, either while the call is running or later.
type Backend interface {
	Name() string
	Available() bool
	// Bind starts delivering results to report and returns a function that stops it
	Bind(report Reporter) func()
	Find(req Request) error
	Advance(req Request) error
	Clear() error
}

// ChannelBackend drives a rendering surface over a channel endpoint
type ChannelBackend struct {
	ep channel.Endpoint
}

// NewChannelBackend creates a backend that talks to ep
func NewChannelBackend(ep channel.Endpoint) *ChannelBackend {
	return &ChannelBackend{ep: ep}
}

func (b *ChannelBackend) Name() string { return "channel" }

// Available is false once the endpoint closed or, when the transport can
// tell, while nobody is listening on the other side
func (b *ChannelBackend) Available() bool {
	if b.ep == nil || b.ep.Closed() {
		return false
	}
	if pc, ok := b.ep.(channel.PeerCounter); ok {
		return pc.Peers() > 0
	}
	return true
}

func (b *ChannelBackend) Bind(report Reporter) func() {
	if b.ep == nil {
		return func() {}
	}
	return b.ep.OnMessage(func(msg channel.Message) {
		if msg.Cmd != channel.CmdSearchResults {
			return
		}
		res := Result{
			Query:   msg.Payload.Query,
			Current: msg.Payload.Current,
			Total:   msg.Payload.Total,
			Page:    msg.Payload.Page,
		}
		if msg.Payload.Error != "" {
			res.Err = fmt.Errorf("%w: %s", domain.ErrEngineUnavailable, msg.Payload.Error)
		}
		report(res)
	})
}

func (b *ChannelBackend) Find(req Request) error {
	return b.send(channel.FindNew(req.Query, req.Options))
}

func (b *ChannelBackend) Advance(req Request) error {
	return b.send(channel.FindAgain(req.Query, req.Prev, req.Options))
}

func (b *ChannelBackend) Clear() error {
	return b.send(channel.ClearHighlights())
}

func (b *ChannelBackend) send(msg channel.Message) error {
	if !b.Available() {
		return domain.ErrEngineUnavailable
	}
	return b.ep.Send(msg)
}

// Finder is an in-process search engine
type Finder interface {
	FindText(query string, opts domain.FindOptions) (domain.MatchCount, error)
	Advance(query string, prev bool, opts domain.FindOptions) (domain.MatchCount, error)
	ClearMatches()
}

// DirectBackend calls an engine in the same process
type DirectBackend struct {
	finder Finder
	report Reporter
}

// NewDirectBackend creates a backend over finder; a nil finder is unavailable
func NewDirectBackend(finder Finder) *DirectBackend {
	return &DirectBackend{finder: finder}
}

func (b *DirectBackend) Name() string { return "direct" }

func (b *DirectBackend) Available() bool { return b.finder != nil }

func (b *DirectBackend) Bind(report Reporter) func() {
	b.report = report
	return func() { b.report = nil }
}

func (b *DirectBackend) Find(req Request) error {
	if b.finder == nil {
		return domain.ErrEngineUnavailable
	}
	m, err := b.finder.FindText(req.Query, req.Options)
	if err != nil {
		return err
	}
	b.deliver(req.Query, m)
	return nil
}

func (b *DirectBackend) Advance(req Request) error {
	if b.finder == nil {
		return domain.ErrEngineUnavailable
	}
	m, err := b.finder.Advance(req.Query, req.Prev, req.Options)
	if err != nil {
		return err
	}
	b.deliver(req.Query, m)
	return nil
}

func (b *DirectBackend) Clear() error {
	if b.finder != nil {
		b.finder.ClearMatches()
	}
	return nil
}

func (b *DirectBackend) deliver(query string, m domain.MatchCount) {
	if b.report != nil {
		b.report(Result{Query: query, Current: m.Current, Total: m.Total, Page: m.Page})
	}
}

// ScanBackend serves searches with the manual fallback scanner
type ScanBackend struct {
	scanner *scanner.Scanner
	report  Reporter
}

// NewScanBackend wraps s
func NewScanBackend(s *scanner.Scanner) *ScanBackend {
	return &ScanBackend{scanner: s}
}

func (b *ScanBackend) Name() string { return "scan" }

func (b *ScanBackend) Available() bool { return b.scanner != nil }

func (b *ScanBackend) Bind(report Reporter) func() {
	b.report = report
	return func() { b.report = nil }
}

func (b *ScanBackend) Find(req Request) error {
	if b.scanner == nil {
		return domain.ErrEngineUnavailable
	}
	b.deliver(b.scanner.Scan(req.Query))
	return nil
}

// Advance continues from req.Current, rescanning first when the query was
// last served by another backend
func (b *ScanBackend) Advance(req Request) error {
	if b.scanner == nil {
		return domain.ErrEngineUnavailable
	}
	if b.scanner.Query() != req.Query {
		b.scanner.Scan(req.Query)
		if req.Current > 0 {
			b.scanner.Seek(req.Current)
		}
	}
	if req.Prev {
		b.deliver(b.scanner.Prev())
	} else {
		b.deliver(b.scanner.Next())
	}
	return nil
}

func (b *ScanBackend) Clear() error {
	if b.scanner != nil {
		b.scanner.Clear()
	}
	return nil
}

func (b *ScanBackend) deliver(r scanner.Result) {
	if b.report != nil {
		b.report(Result{Query: r.Query, Current: r.Current, Total: r.Total, Page: r.Page})
	}
}
