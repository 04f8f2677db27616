package document

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync"

	"pagewise/internal/domain"
	"pagewise/internal/eventbus"
)

// Consumer receives every successfully loaded document before
// documentLoaded is published
type Consumer interface {
	SetDocument(doc *Document)
}

// Service opens documents and publishes their load lifecycle
type Service interface {
	Open(ctx context.Context, path string) error
	Reload(ctx context.Context) error
	Current() *Document
	Wait()
	Stop()
}

// loaderService is the concrete implementation
type loaderService struct {
	bus       eventbus.EventBus
	opts      LoadOptions
	consumers []Consumer

	mu         sync.Mutex
	path       string
	current    *Document
	generation int
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewService creates a new document service
func NewService(bus eventbus.EventBus, opts LoadOptions, consumers ...Consumer) Service {
	return &loaderService{
		bus:       bus,
		opts:      opts,
		consumers: consumers,
	}
}

// Open starts loading path in the background, superseding any load in
// progress. documentLoading is published before Open returns.
func (s *loaderService) Open(ctx context.Context, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	s.mu.Lock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.generation++
	gen := s.generation
	s.path = path
	s.mu.Unlock()

	s.bus.Publish(domain.DocumentLoadingEvent{Path: path})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		doc, err := Load(loadCtx, path, s.opts)

		s.mu.Lock()
		if gen != s.generation {
			// Superseded by a later Open
			s.mu.Unlock()
			return
		}
		if err == nil {
			s.current = doc
		} else {
			s.current = nil
		}
		s.mu.Unlock()

		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			for _, c := range s.consumers {
				c.SetDocument(nil)
			}
			log.Printf("Document: failed to load %s: %v", path, err)
			s.bus.Publish(domain.DocumentLoadFailedEvent{Path: path, Err: err})
			return
		}

		for _, c := range s.consumers {
			c.SetDocument(doc)
		}
		log.Printf("Document: loaded %s (%d pages)", path, doc.NumPages())
		s.bus.Publish(domain.DocumentLoadedEvent{Path: path, NumPages: doc.NumPages()})
	}()

	return nil
}

// Reload opens the current path again
func (s *loaderService) Reload(ctx context.Context) error {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	if path == "" {
		return nil
	}
	return s.Open(ctx, path)
}

// Current returns the last successfully loaded document, nil after a failure
func (s *loaderService) Current() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Wait blocks until no load is running
func (s *loaderService) Wait() {
	s.wg.Wait()
}

// Stop cancels any load in progress and waits for it
func (s *loaderService) Stop() {
	s.mu.Lock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.mu.Unlock()

	s.wg.Wait()
}
