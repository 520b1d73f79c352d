package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexiqai/doc-narrator/internal/observability"
	"github.com/rs/zerolog"
)

// Options configures an Extractor
type Options struct {
	IgnoreBoilerplate bool
	Boilerplate       BoilerplateConfig
	PageSeparator     string // Used by ExtractText between pages
}

// DefaultOptions returns the default extraction options
func DefaultOptions() Options {
	return Options{
		IgnoreBoilerplate: true,
		Boilerplate:       DefaultBoilerplateConfig(),
		PageSeparator:     "\n",
	}
}

// Extractor turns the pages of a PageSource into cleaned text
type Extractor struct {
	opts   Options
	logger zerolog.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(opts Options, logger zerolog.Logger) *Extractor {
	return &Extractor{opts: opts, logger: logger}
}

// Extract returns one cleaned string per selected page, in order. A nil
// selection means every page. Boilerplate is learned from the whole document
// even when only some pages are selected. A page that cannot be rebuilt
// comes back empty instead of failing the document.
func (e *Extractor) Extract(ctx context.Context, src PageSource, pages []int) ([]string, error) {
	count := src.PageCount()
	if pages == nil {
		pages = make([]int, count)
		for i := range pages {
			pages[i] = i
		}
	}
	for _, p := range pages {
		if p < 0 || p >= count {
			return nil, fmt.Errorf("%w: page %d requested, document has %d", ErrPageOutOfRange, p+1, count)
		}
	}

	raw := make([][]string, count)
	loadErrs := make(map[int]error)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines, err := src.Lines(ctx, i)
		if err != nil {
			loadErrs[i] = err
			e.logger.Warn().Err(err).Int("page", i).Msg("Failed to read page text")
			continue
		}
		raw[i] = lines
	}

	boilerplate := BoilerplateSet{}
	if e.opts.IgnoreBoilerplate {
		set, err := DetectBoilerplate(raw, e.opts.Boilerplate)
		if err != nil {
			return nil, err
		}
		boilerplate = set
		e.logger.Debug().Strs("lines", set.Lines()).Msg("Detected headers and footers")
	}

	tables := TableLookup{}
	for _, p := range pages {
		found, err := src.Tables(ctx, p)
		if err != nil {
			e.logger.Warn().Err(err).Int("page", p).Msg("Table detection failed, continuing without tables")
			continue
		}
		tables[p] = found
	}

	out := make([]string, len(pages))
	for i, p := range pages {
		if err, failed := loadErrs[p]; failed {
			e.logger.Warn().Err(err).Int("page", p).Msg("Page degraded to empty text")
			observability.RecordPageExtracted(true)
			continue
		}
		text, err := e.rebuildPage(p, raw[p], boilerplate, tables)
		if err != nil {
			e.logger.Warn().Err(err).Int("page", p).Msg("Page degraded to empty text")
			observability.RecordPageExtracted(true)
			continue
		}
		out[i] = text
		observability.RecordPageExtracted(false)
	}
	return out, nil
}

// ExtractText joins the cleaned pages with the configured separator
func (e *Extractor) ExtractText(ctx context.Context, src PageSource, pages []int) (string, error) {
	texts, err := e.Extract(ctx, src, pages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(texts, e.opts.PageSeparator)), nil
}

func (e *Extractor) rebuildPage(page int, lines []string, boilerplate BoilerplateSet, tables TableLookup) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("rebuilding page %d: %v", page, r)
		}
	}()

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if boilerplate.Contains(line) {
			continue
		}
		kept = append(kept, line)
	}

	resolved := ResolveTables(page, kept, tables)
	return Reconstruct(strings.Join(resolved, "\n"), tables), nil
}
