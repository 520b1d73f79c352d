// Package pdfsource reads the text and tables of PDF pages for the document
// extractor.
package pdfsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNotPDF is returned when the data does not carry a PDF header
	ErrNotPDF = errors.New("data is not a PDF document")

	// ErrUnreadable is returned when the PDF structure cannot be parsed
	ErrUnreadable = errors.New("unreadable PDF document")
)

var pdfMagic = []byte("%PDF-")

type pageLayout struct {
	lines  []string
	tables []string
}

// Document is a parsed PDF exposing its pages as document.PageSource
type Document struct {
	reader *pdf.Reader
	layout Layout

	// The underlying reader is not safe for concurrent use
	mu    sync.Mutex
	pages map[int]*pageLayout
}

// Open parses a PDF held in memory using the default layout
func Open(data []byte) (*Document, error) {
	return OpenWithLayout(data, DefaultLayout())
}

// OpenWithLayout parses a PDF held in memory
func OpenWithLayout(data []byte, layout Layout) (doc *Document, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return nil, ErrNotPDF
	}

	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	return &Document{
		reader: reader,
		layout: layout,
		pages:  make(map[int]*pageLayout),
	}, nil
}

// PageCount returns the number of pages in the document
func (d *Document) PageCount() int {
	return d.reader.NumPage()
}

// Lines returns the text rows of a 0-indexed page from top to bottom
func (d *Document) Lines(ctx context.Context, page int) ([]string, error) {
	p, err := d.load(ctx, page)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), p.lines...), nil
}

// Tables returns the markdown of each table detected on a 0-indexed page
func (d *Document) Tables(ctx context.Context, page int) ([]string, error) {
	p, err := d.load(ctx, page)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), p.tables...), nil
}

func (d *Document) load(ctx context.Context, page int) (*pageLayout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pages[page]; ok {
		return p, nil
	}
	if page < 0 || page >= d.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range [0, %d)", page, d.reader.NumPage())
	}

	texts, err := pageTexts(d.reader, page+1)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	rows := d.layout.Rows(texts)
	p := &pageLayout{lines: make([]string, 0, len(rows))}
	for _, r := range rows {
		p.lines = append(p.lines, r.Text())
	}
	for _, grid := range d.layout.Tables(rows) {
		p.tables = append(p.tables, Markdown(grid))
	}

	d.pages[page] = p
	return p, nil
}

// pageTexts returns the positioned glyphs of a 1-indexed page. Malformed
// content streams make the reader panic, so that is turned into an error.
func pageTexts(reader *pdf.Reader, num int) (texts []pdf.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			texts, err = nil, fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	p := reader.Page(num)
	if p.V.IsNull() {
		return nil, nil
	}
	return p.Content().Text, nil
}
