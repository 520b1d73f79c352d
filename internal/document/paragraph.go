package document

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// BlockSeparator separates paragraphs and table blocks in reconstructed text
const BlockSeparator = "\n\n"

var (
	numberedItem = regexp.MustCompile(`^\d+[.)-]`)
	letteredItem = regexp.MustCompile(`^[a-z][.)-]`)
)

// IsListItem reports whether a line opens a bulleted, numbered or lettered item
func IsListItem(line string) bool {
	return strings.HasPrefix(line, "- ") || numberedItem.MatchString(line) || letteredItem.MatchString(line)
}

// IsParagraphEnd reports whether the paragraph closes after lines[i]
func IsParagraphEnd(lines []string, i int) bool {
	if i >= len(lines)-1 {
		return true
	}
	current, next := lines[i], lines[i+1]
	if strings.TrimSpace(next) == "" {
		return true
	}

	first, _ := utf8.DecodeRuneInString(next)
	last, _ := utf8.DecodeLastRuneInString(current)
	nextUpper := unicode.IsUpper(first)

	switch {
	case nextUpper && (last == '.' || last == ':'):
		return true
	case !unicode.IsLetter(first) && !unicode.IsNumber(first):
		return true
	case numberedItem.MatchString(next) || letteredItem.MatchString(next):
		return true
	case IsListItem(current) && nextUpper:
		return true
	}
	return false
}

// Reconstruct turns placeholder-tagged page text into paragraphs. Wrapped
// lines are joined with a space, table placeholders expand to their markdown
// and blocks are separated by a blank line. Placeholders whose table cannot
// be found are dropped.
func Reconstruct(text string, tables TableLookup) string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	var blocks, paragraph, tableRows []string
	flushParagraph := func() {
		if len(paragraph) > 0 {
			blocks = append(blocks, strings.Join(paragraph, " "))
			paragraph = nil
		}
	}

	for i, line := range lines {
		if page, table, ok := ParsePlaceholder(line); ok {
			if md, found := tables.Lookup(page, table); found {
				if md = strings.Trim(md, "\n"); md != "" {
					blocks = append(blocks, md)
				}
			}
			continue
		}

		// Markdown table rows pass through untouched so clean text stays stable
		if strings.HasPrefix(line, "|") {
			flushParagraph()
			tableRows = append(tableRows, line)
			if i == len(lines)-1 || !strings.HasPrefix(lines[i+1], "|") {
				blocks = append(blocks, strings.Join(tableRows, "\n"))
				tableRows = nil
			}
			continue
		}

		paragraph = append(paragraph, line)
		if IsParagraphEnd(lines, i) {
			flushParagraph()
		}
	}
	flushParagraph()

	return strings.Join(blocks, BlockSeparator)
}
