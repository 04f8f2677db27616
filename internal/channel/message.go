package channel

import (
	"encoding/json"
	"fmt"

	"pagewise/internal/domain"
)

// Command is one of the fixed protocol commands
type Command string

const (
	CmdFindNew         Command = "find-new"
	CmdFindNext        Command = "find-next"
	CmdFindPrev        Command = "find-prev"
	CmdClearHighlights Command = "clear-highlights"
	CmdSearchResults   Command = "search-results"
	CmdSearchCleared   Command = "search-cleared"
)

// Valid reports whether c is part of the protocol
func (c Command) Valid() bool {
	switch c {
	case CmdFindNew, CmdFindNext, CmdFindPrev, CmdClearHighlights, CmdSearchResults, CmdSearchCleared:
		return true
	}
	return false
}

// Payload carries the command-specific fields. Unused fields stay zero.
type Payload struct {
	Query string `json:"query,omitempty"`
	Prev  bool   `json:"prev,omitempty"`
	domain.FindOptions
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	Page    int    `json:"page,omitempty"` // page of the current match
	Error   string `json:"error,omitempty"`
}

// Message is an immutable value sent over a channel
type Message struct {
	Cmd     Command `json:"cmd"`
	Payload Payload `json:"payload"`
}

// Validate rejects commands outside the protocol
func (m Message) Validate() error {
	if !m.Cmd.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownCommand, m.Cmd)
	}
	return nil
}

// Normalize folds find-prev into find-next with the prev flag set
func (m Message) Normalize() Message {
	if m.Cmd == CmdFindPrev {
		m.Cmd = CmdFindNext
		m.Payload.Prev = true
	}
	return m
}

// FindNew builds a find-new command
func FindNew(query string, opts domain.FindOptions) Message {
	return Message{Cmd: CmdFindNew, Payload: Payload{Query: query, FindOptions: opts}}
}

// FindAgain builds a find-next command, moving backwards when prev is set
func FindAgain(query string, prev bool, opts domain.FindOptions) Message {
	return Message{Cmd: CmdFindNext, Payload: Payload{Query: query, Prev: prev, FindOptions: opts}}
}

// ClearHighlights builds a clear-highlights command
func ClearHighlights() Message {
	return Message{Cmd: CmdClearHighlights}
}

// SearchResults builds a search-results report
func SearchResults(query string, current, total int) Message {
	return Message{Cmd: CmdSearchResults, Payload: Payload{Query: query, Current: current, Total: total}}
}

// SearchResultsOnPage is SearchResults with the page of the current match
func SearchResultsOnPage(query string, current, total, page int) Message {
	m := SearchResults(query, current, total)
	m.Payload.Page = page
	return m
}

// SearchFailed reports an engine error for query
func SearchFailed(query string, err error) Message {
	return Message{Cmd: CmdSearchResults, Payload: Payload{Query: query, Error: err.Error()}}
}

// SearchCleared builds a search-cleared report
func SearchCleared() Message {
	return Message{Cmd: CmdSearchCleared}
}

// Encode returns the JSON wire form
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Decode parses and validates the JSON wire form
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
