package document

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"pagewise/internal/domain"
)

// DefaultLinesPerPage splits plain text that has no form feeds
const DefaultLinesPerPage = 50

// LoadOptions tunes the loaders
type LoadOptions struct {
	LinesPerPage int
}

func (o LoadOptions) linesPerPage() int {
	if o.LinesPerPage <= 0 {
		return DefaultLinesPerPage
	}
	return o.LinesPerPage
}

// Load reads path into a Document, choosing the loader by extension.
// Every failure is a *domain.DocumentLoadError.
func Load(ctx context.Context, path string, opts LoadOptions) (*Document, error) {
	var (
		pages [][]string
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err = loadPDF(ctx, path)
	default:
		pages, err = loadText(ctx, path, opts.linesPerPage())
	}
	if err != nil {
		return nil, &domain.DocumentLoadError{Path: path, Err: err}
	}
	if len(pages) == 0 {
		return nil, &domain.DocumentLoadError{Path: path, Err: fmt.Errorf("no pages")}
	}
	return New(path, pages), nil
}

func loadPDF(ctx context.Context, path string) (pages [][]string, err error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	// The pdf reader panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("failed to extract pdf text: %v", r)
		}
	}()

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := reader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("failed to extract text of page %d: %w", i, err)
		}
		var lines []string
		for _, row := range rows {
			var b strings.Builder
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, lines)
	}
	return pages, nil
}

func loadText(ctx context.Context, path string, perPage int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		pages   [][]string
		current []string
		paged   bool // saw a form feed
	)
	flush := func() {
		pages = append(pages, current)
		current = nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		parts := strings.Split(line, "\f")
		for i, part := range parts {
			if i > 0 {
				paged = true
				flush()
			}
			if part != "" || len(parts) == 1 {
				current = append(current, part)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}
	if len(current) > 0 || len(pages) == 0 {
		flush()
	}
	if paged {
		return pages, nil
	}
	return chunk(pages[0], perPage), nil
}

func chunk(lines []string, size int) [][]string {
	if len(lines) == 0 {
		return [][]string{nil}
	}
	var out [][]string
	for len(lines) > size {
		out = append(out, lines[:size])
		lines = lines[size:]
	}
	return append(out, lines)
}
