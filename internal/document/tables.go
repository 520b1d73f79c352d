package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	placeholderPattern = regexp.MustCompile(`^\[PAGE_(\d+)_TABLE_(\d+)\]$`)
	numericEntity      = regexp.MustCompile(`&#(\d+);`)
)

// Placeholder returns the marker that stands in for a table occurrence
func Placeholder(page, table int) string {
	return fmt.Sprintf("[PAGE_%d_TABLE_%d]", page, table)
}

// ParsePlaceholder extracts the page and table index from a marker line
func ParsePlaceholder(line string) (page, table int, ok bool) {
	m := placeholderPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	page, errPage := strconv.Atoi(m[1])
	table, errTable := strconv.Atoi(m[2])
	if errPage != nil || errTable != nil {
		return 0, 0, false
	}
	return page, table, true
}

// IsPlaceholder reports whether a line is a table marker
func IsPlaceholder(line string) bool {
	return placeholderPattern.MatchString(line)
}

// DecodeEntities resolves named and numeric HTML entities, including
// numeric entities that were themselves escaped (&amp;#39;)
func DecodeEntities(s string) string {
	s = html.UnescapeString(s)
	return numericEntity.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.Atoi(m[2 : len(m)-1])
		if err != nil || n > 0x10FFFF {
			return m
		}
		return string(rune(n))
	})
}

// ResolveTables replaces the lines of a page that belong to a detected table
// with that table's placeholder, so each table ends up as exactly one marker.
//
// A line belongs to a table when every whitespace-separated word of the line
// occurs in the decoded table text; the first matching table wins. Short
// lines can match several tables, so a line whose table was already closed
// by an earlier transition inherits the table of the line above it. Repeats
// of an emitted marker are dropped.
func ResolveTables(page int, lines []string, tables TableLookup) []string {
	pageTables := tables[page]
	out := append([]string(nil), lines...)
	if len(pageTables) == 0 {
		return out
	}

	decoded := make([]string, len(pageTables))
	for i, t := range pageTables {
		decoded[i] = DecodeEntities(t)
	}

	var tagged []int
	for i, line := range out {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		for t, text := range decoded {
			if containsAllWords(text, words) {
				out[i] = Placeholder(page, t)
				tagged = append(tagged, i)
				break
			}
		}
	}

	completed := make(map[string]bool)
	for _, i := range tagged {
		if i == 0 {
			continue
		}
		prev, current := out[i-1], out[i]
		if !IsPlaceholder(prev) || prev == current {
			continue
		}
		if !completed[current] {
			completed[prev] = true
		} else {
			out[i] = prev
		}
	}

	emitted := make(map[string]bool)
	drop := make(map[int]bool)
	for _, i := range tagged {
		if emitted[out[i]] {
			drop[i] = true
			continue
		}
		emitted[out[i]] = true
	}

	resolved := make([]string, 0, len(out)-len(drop))
	for i, line := range out {
		if !drop[i] {
			resolved = append(resolved, line)
		}
	}
	return resolved
}

func containsAllWords(text string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
