// Package document rebuilds readable prose from the raw text lines of a
// paginated document: it drops running headers and footers, folds table rows
// into markdown blocks and merges wrapped lines into paragraphs.
package document

import (
	"context"
	"fmt"
	"strings"
)

// PageSource provides the raw lines and detected tables of each page
type PageSource interface {
	// PageCount returns the number of pages in the document
	PageCount() int

	// Lines returns the raw text lines of a 0-indexed page in reading order
	Lines(ctx context.Context, page int) ([]string, error)

	// Tables returns the markdown rendering of every table found on a page, in page order
	Tables(ctx context.Context, page int) ([]string, error)
}

// TableLookup maps a page index to the markdown of the tables found on it
type TableLookup map[int][]string

// Lookup returns the markdown for a table occurrence
func (t TableLookup) Lookup(page, table int) (string, bool) {
	tables, ok := t[page]
	if !ok || table < 0 || table >= len(tables) {
		return "", false
	}
	return tables[table], true
}

// MemorySource is a PageSource backed by in-memory pages
type MemorySource struct {
	Pages      [][]string
	PageTables TableLookup
}

// NewTextSource splits plain text into pages on form feeds and pages into lines
func NewTextSource(text string) *MemorySource {
	src := &MemorySource{PageTables: TableLookup{}}
	for _, page := range strings.Split(text, "\f") {
		src.Pages = append(src.Pages, strings.Split(strings.ReplaceAll(page, "\r\n", "\n"), "\n"))
	}
	return src
}

func (m *MemorySource) PageCount() int { return len(m.Pages) }

func (m *MemorySource) Lines(ctx context.Context, page int) ([]string, error) {
	if page < 0 || page >= len(m.Pages) {
		return nil, fmt.Errorf("page %d out of range [0, %d)", page, len(m.Pages))
	}
	return append([]string(nil), m.Pages[page]...), nil
}

func (m *MemorySource) Tables(ctx context.Context, page int) ([]string, error) {
	if page < 0 || page >= len(m.Pages) {
		return nil, fmt.Errorf("page %d out of range [0, %d)", page, len(m.Pages))
	}
	return m.PageTables[page], nil
}
