package main

import (
	"context"
	"log"
	"time"

	"pagewise/internal/channel"
	"pagewise/internal/config"
	"pagewise/internal/document"
	"pagewise/internal/domain"
	"pagewise/internal/engine"
	"pagewise/internal/eventbus"
	"pagewise/internal/navigation"
	"pagewise/internal/scanner"
	"pagewise/internal/search"
)

// app holds the viewer's controllers, all talking over one bus
type app struct {
	cfg *config.Config
	bus *eventbus.Bus

	nav     *navigation.Controller
	engine  *engine.Engine
	docs    document.Service
	surface *engine.Surface
	search  *search.Coordinator
	watcher *document.Watcher

	closers []func() error
}

// newApp wires the controllers for cfg. Nothing is subscribed until start.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg: cfg,
		bus: eventbus.New(eventbus.WithVerbose(cfg.Log.Verbose)),
	}

	a.nav = navigation.NewController(a.bus, navigation.Options{
		DefaultScale: cfg.Viewer.DefaultScale,
		MinScale:     cfg.Viewer.MinScale,
		MaxScale:     cfg.Viewer.MaxScale,
		ZoomStep:     cfg.Viewer.ZoomStep,
	})
	a.engine = engine.New()
	a.docs = document.NewService(a.bus, document.LoadOptions{LinesPerPage: cfg.Viewer.LinesPerPage}, a.engine)

	primary, side, err := a.primaryBackend(ctx)
	if err != nil {
		return nil, err
	}
	// side is nil unless the engine answers on an in-process channel;
	// the surface still keeps the engine on the viewer's page and scale
	a.surface = engine.NewSurface(a.engine, side, a.bus)

	scan := scanner.New(a.engine, func(h []domain.Highlight) {
		a.bus.Publish(domain.HighlightsChangedEvent{Highlights: h})
	})
	a.search = search.NewCoordinator(a.bus, primary, search.NewScanBackend(scan), search.Options{
		Find:   cfg.Search.Find,
		Legacy: cfg.Search.Legacy,
	})
	return a, nil
}

// primaryBackend picks the configured search backend. For the channel
// backend it also returns the engine's side of an in-process channel.
func (a *app) primaryBackend(ctx context.Context) (search.Backend, channel.Endpoint, error) {
	switch a.cfg.Search.Backend {
	case config.BackendDirect:
		return search.NewDirectBackend(a.engine), nil, nil
	case config.BackendScan:
		return nil, nil, nil
	}

	name := a.cfg.Channel.Name
	if url := a.cfg.Channel.URL; url != "" {
		conn, err := channel.Dial(ctx, url, name)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, conn.Close)
		log.Printf("Joined channel %s at %s", name, url)
		return search.NewChannelBackend(conn), nil, nil
	}

	broker := channel.NewBroker(channel.WithInboxSize(a.cfg.Channel.InboxSize))
	side := broker.Open(name)
	viewer := broker.Open(name)
	a.closers = append(a.closers, side.Close, viewer.Close)
	return search.NewChannelBackend(viewer), side, nil
}

// start activates every controller
func (a *app) start() {
	a.nav.Activate()
	a.surface.Activate()
	a.search.Activate()
}

// open loads path and, when enabled, reloads it whenever it changes on disk
func (a *app) open(ctx context.Context, path string) error {
	if err := a.docs.Open(ctx, path); err != nil {
		return err
	}
	if !a.cfg.Watch.Enabled {
		return nil
	}

	debounce := time.Duration(a.cfg.Watch.DebounceMS) * time.Millisecond
	w, err := document.Watch(path, debounce, func() {
		log.Printf("Document changed on disk, reloading")
		if err := a.docs.Reload(ctx); err != nil {
			log.Printf("Reload failed: %v", err)
		}
	})
	if err != nil {
		// Viewing still works without reloads
		log.Printf("Could not watch %s: %v", path, err)
		return nil
	}
	a.watcher = w
	return nil
}

// close tears the controllers down in reverse order
func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.search.Deactivate()
	a.surface.Deactivate()
	a.nav.Deactivate()
	a.docs.Stop()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Error closing channel: %v", err)
		}
	}
	a.bus.Close()
}
