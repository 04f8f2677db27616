package search

import (
	"pagewise/internal/domain"
)

// Result is a match report from any backend
type Result struct {
	Query   string
	Current int
	Total   int
	Page    int   // page of the current match, 0 when unknown
	Err     error // set when the engine failed to serve the request
}

// Reporter receives results; backends may call it from any goroutine
type Reporter func(Result)

// Request describes one find or advance
type Request struct {
	Query   string
	Prev    bool
	Current int // position before an advance
	Total   int
	Options domain.FindOptions
}

// Options configures the coordinator
type Options struct {
	Find   domain.FindOptions
	Legacy bool // also accept and mirror the pdf-* topic names
}

type operation int

const (
	opFind operation = iota
	opNext
	opPrev
)

func (o operation) String() string {
	switch o {
	case opNext:
		return "find-next"
	case opPrev:
		return "find-prev"
	}
	return "find-new"
}
