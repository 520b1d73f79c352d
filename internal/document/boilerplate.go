package document

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidWindow is returned for a negative sampling window
var ErrInvalidWindow = errors.New("boilerplate window must not be negative")

// minBoilerplatePages is the smallest document on which repetition means anything
const minBoilerplatePages = 3

var (
	digitRuns = regexp.MustCompile(`\d+`)

	// Literal escape sequences and C0/C1 control characters left over by text layers
	escapeChars = regexp.MustCompile(`\\[abfnrtv'"\\]|[\x00-\x1f\x7f-\x9f]`)
)

// BoilerplateConfig controls header and footer detection
type BoilerplateConfig struct {
	Window    int     // Non-blank lines sampled from the top and from the bottom of each page
	Threshold float64 // A line is boilerplate when it repeats on more than this fraction of pages
}

// DefaultBoilerplateConfig returns the default detection settings
func DefaultBoilerplateConfig() BoilerplateConfig {
	return BoilerplateConfig{Window: 5, Threshold: 0.6}
}

// BoilerplateSet holds the lines judged to be running headers or footers
type BoilerplateSet map[string]struct{}

// Contains reports whether a line is boilerplate
func (s BoilerplateSet) Contains(line string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[normalizeLine(line)]
	return ok
}

// Lines returns the boilerplate lines in sorted order
func (s BoilerplateSet) Lines() []string {
	lines := make([]string, 0, len(s))
	for line := range s {
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}

// DetectBoilerplate finds lines that repeat across the edges of most pages.
// Page numbers are tolerated by comparing lines with their digits removed.
func DetectBoilerplate(pages [][]string, cfg BoilerplateConfig) (BoilerplateSet, error) {
	if cfg.Window < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, cfg.Window)
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("boilerplate threshold must be in (0, 1], got %v", cfg.Threshold)
	}

	set := BoilerplateSet{}
	if len(pages) < minBoilerplatePages || cfg.Window == 0 {
		return set, nil
	}

	var sample []string
	for _, page := range pages {
		var content []string
		for _, line := range page {
			if isBlank(line) {
				continue
			}
			content = append(content, normalizeLine(line))
		}
		// Head and tail windows overlap on short pages; each position counts once
		for i, line := range content {
			if i < cfg.Window || i >= len(content)-cfg.Window {
				sample = append(sample, line)
			}
		}
	}

	counts := make(map[string]int, len(sample))
	for _, line := range sample {
		counts[stripDigits(line)]++
	}

	limit := float64(len(pages)) * cfg.Threshold
	for _, line := range sample {
		if float64(counts[stripDigits(line)]) > limit {
			set[line] = struct{}{}
		}
	}
	return set, nil
}

func isBlank(line string) bool {
	return strings.TrimSpace(escapeChars.ReplaceAllString(line, "")) == ""
}

func normalizeLine(line string) string {
	return norm.NFKC.String(strings.TrimSpace(line))
}

func stripDigits(line string) string {
	return digitRuns.ReplaceAllString(line, "")
}
