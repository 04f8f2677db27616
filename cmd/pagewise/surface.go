package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"pagewise/internal/channel"
	"pagewise/internal/config"
	"pagewise/internal/document"
	"pagewise/internal/domain"
	"pagewise/internal/engine"
	"pagewise/internal/eventbus"
)

func newSurfaceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surface file",
		Short: "Answer search commands for a document over a relay",
		Long: `Load a document and answer find commands arriving on the relay channel.
Start a relay first, then a viewer with the same --channel-url.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.Channel.URL == "" {
				cfg.Channel.URL = "ws://" + defaultRelayAddr
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			s, err := startSurface(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			defer s.close()
			<-ctx.Done()
			return nil
		},
	}
	return cmd
}

// surfaceProcess is an engine answering on a relay channel
type surfaceProcess struct {
	bus     *eventbus.Bus
	conn    *channel.Conn
	docs    document.Service
	surface *engine.Surface
	watcher *document.Watcher
}

func startSurface(ctx context.Context, cfg *config.Config, path string) (*surfaceProcess, error) {
	conn, err := channel.Dial(ctx, cfg.Channel.URL, cfg.Channel.Name)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New(eventbus.WithVerbose(cfg.Log.Verbose))
	eng := engine.New()
	s := &surfaceProcess{
		bus:     bus,
		conn:    conn,
		docs:    document.NewService(bus, document.LoadOptions{LinesPerPage: cfg.Viewer.LinesPerPage}, eng),
		surface: engine.NewSurface(eng, conn, bus),
	}
	bus.Subscribe(domain.EventHighlightsChanged, eventbus.Func(func(e eventbus.Event) {
		if ev, ok := e.(domain.HighlightsChangedEvent); ok {
			log.Printf("Surface highlights %d matches", len(ev.Highlights))
		}
	}))
	s.surface.Activate()

	if err := s.docs.Open(ctx, path); err != nil {
		s.close()
		return nil, err
	}
	if cfg.Watch.Enabled {
		debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
		if w, err := document.Watch(path, debounce, func() {
			if err := s.docs.Reload(ctx); err != nil {
				log.Printf("Reload failed: %v", err)
			}
		}); err == nil {
			s.watcher = w
		} else {
			log.Printf("Could not watch %s: %v", path, err)
		}
	}
	log.Printf("Surface for %s joined channel %s", path, cfg.Channel.Name)
	return s, nil
}

func (s *surfaceProcess) close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.surface.Deactivate()
	s.docs.Stop()
	if err := s.conn.Close(); err != nil {
		log.Printf("Error closing channel: %v", err)
	}
	s.bus.Close()
}
