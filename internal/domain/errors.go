package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentLoad is the sentinel wrapped by DocumentLoadError
	ErrDocumentLoad = errors.New("document load failed")
	// ErrEngineUnavailable means the primary search engine cannot serve a request
	ErrEngineUnavailable = errors.New("search engine unavailable")
	// ErrStaleResult marks a result for a superseded query. It is control flow, not a failure.
	ErrStaleResult = errors.New("stale search result")
	// ErrUnknownCommand is returned for channel messages outside the protocol
	ErrUnknownCommand = errors.New("unknown channel command")
)

// DocumentLoadError is fatal for one document and nothing else
type DocumentLoadError struct {
	Path string
	Err  error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *DocumentLoadError) Unwrap() []error {
	return []error{ErrDocumentLoad, e.Err}
}

// HandlerError reports a bus subscriber that failed or panicked
type HandlerError struct {
	Type  EventType
	Err   error
	Panic any
	Stack []byte
}

func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("handler for %s panicked: %v", e.Type, e.Panic)
	}
	return fmt.Sprintf("handler for %s failed: %v", e.Type, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
