// Package narration turns cleaned page text into a single narration string by
// reformatting each page with a language model, strictly in page order.
package narration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lexiqai/doc-narrator/internal/llm"
	"github.com/lexiqai/doc-narrator/internal/observability"
	"github.com/lexiqai/doc-narrator/internal/resilience"
	"github.com/rs/zerolog"
)

// DefaultTailChars is how much of the narration so far is sent back as context
const DefaultTailChars = 100

// Fragment is the narration produced for one page
type Fragment struct {
	Page int
	Text string
}

// Progress is reported after every formatted page
type Progress struct {
	Page     int // 0-indexed
	Total    int
	Attempts int
	Elapsed  time.Duration
}

// Orchestrator feeds pages to a Reformatter one at a time with rolling context
type Orchestrator struct {
	reformatter llm.Reformatter
	executor    *resilience.Executor
	tailChars   int
	onProgress  func(Progress)
	logger      zerolog.Logger
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithTailChars sets how many trailing characters of narration are passed as context
func WithTailChars(n int) Option {
	return func(o *Orchestrator) { o.tailChars = n }
}

// WithProgress registers a callback fired after each page
func WithProgress(fn func(Progress)) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// WithLogger sets the orchestrator logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an orchestrator that calls r through executor
func New(r llm.Reformatter, executor *resilience.Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reformatter: r,
		executor:    executor,
		tailChars:   DefaultTailChars,
		logger:      observability.Component("narration"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Format returns the narration for all pages
func (o *Orchestrator) Format(ctx context.Context, pages []string) (string, error) {
	fragments, err := o.FormatFragments(ctx, pages)
	if err != nil {
		return "", err
	}
	return Join(fragments), nil
}

// FormatFragments reformats each page in order. Any page error aborts the
// run; there is no partial result.
func (o *Orchestrator) FormatFragments(ctx context.Context, pages []string) ([]Fragment, error) {
	fragments := make([]Fragment, 0, len(pages))
	var narration strings.Builder

	for i, page := range pages {
		in := llm.PageContext{
			Page:             i,
			Total:            len(pages),
			PreviousFragment: previousFragment(narration.String(), o.tailChars),
			CurrentPage:      page,
		}
		if i+1 < len(pages) {
			in.NextPreview = pages[i+1]
		}

		o.logger.Info().Int("page", i+1).Int("total", len(pages)).Msg("Formatting page")
		text, stats, err := resilience.Do(ctx, o.executor, func(ctx context.Context) (string, error) {
			return o.reformatter.Reformat(ctx, in)
		})
		if err != nil {
			o.logger.Error().Err(err).Int("page", i+1).Int("attempts", stats.Attempts).Msg("Failed to format page")
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		observability.RecordPageFormatted(stats.Elapsed)
		o.logger.Info().
			Int("page", i+1).
			Int("attempts", stats.Attempts).
			Dur("elapsed", stats.Elapsed).
			Msg("Page formatted")

		narration.WriteString(" ")
		narration.WriteString(text)
		fragments = append(fragments, Fragment{Page: i, Text: text})

		if o.onProgress != nil {
			o.onProgress(Progress{Page: i, Total: len(pages), Attempts: stats.Attempts, Elapsed: stats.Elapsed})
		}
	}
	return fragments, nil
}

// Join concatenates fragments the way the narration is accumulated: each
// fragment is preceded by one space
func Join(fragments []Fragment) string {
	var sb strings.Builder
	for _, f := range fragments {
		sb.WriteString(" ")
		sb.WriteString(f.Text)
	}
	return sb.String()
}

// previousFragment returns the last n characters of the narration so far,
// marked as a continuation, or "" before the first page
func previousFragment(narration string, n int) string {
	if narration == "" {
		return ""
	}
	runes := []rune(narration)
	if n >= 0 && len(runes) > n {
		runes = runes[len(runes)-n:]
	}
	return "... " + string(runes)
}
