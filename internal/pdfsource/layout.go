package pdfsource

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Layout holds the geometry thresholds used to rebuild lines and tables
// from positioned glyphs
type Layout struct {
	RowTolerance    float64 // Y distance under which glyphs share a row
	WordSpaceFactor float64 // Fraction of the font size that still joins glyphs into a word
	ColumnGap       float64 // Horizontal gap that separates two table cells
	MinTableRows    int     // Consecutive aligned rows needed to call it a table
}

// DefaultLayout returns thresholds tuned for ordinary text PDFs
func DefaultLayout() Layout {
	return Layout{
		RowTolerance:    2.0,
		WordSpaceFactor: 0.3,
		ColumnGap:       15.0,
		MinTableRows:    2,
	}
}

type word struct {
	X, W     float64
	FontSize float64
	Text     string
}

func (w word) right() float64 { return w.X + w.W }

type row struct {
	Y     float64
	Words []word
}

// Text joins the words of the row with single spaces
func (r row) Text() string {
	parts := make([]string, len(r.Words))
	for i, w := range r.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// filterTexts drops glyph runs that carry no visible text
func filterTexts(texts []pdf.Text) []pdf.Text {
	out := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.S) != "" {
			out = append(out, t)
		}
	}
	return out
}

// Rows groups glyphs into rows from the top of the page down, each row
// holding its words from left to right
func (l Layout) Rows(texts []pdf.Text) []row {
	texts = filterTexts(texts)
	if len(texts) == 0 {
		return nil
	}

	type bucket struct {
		yMin, yMax float64
		texts      []pdf.Text
	}
	var buckets []*bucket
	for _, t := range texts {
		var found *bucket
		for _, b := range buckets {
			if t.Y >= b.yMin-l.RowTolerance && t.Y <= b.yMax+l.RowTolerance {
				found = b
				break
			}
		}
		if found == nil {
			buckets = append(buckets, &bucket{yMin: t.Y, yMax: t.Y, texts: []pdf.Text{t}})
			continue
		}
		found.texts = append(found.texts, t)
		found.yMin = math.Min(found.yMin, t.Y)
		found.yMax = math.Max(found.yMax, t.Y)
	}

	// PDF space grows upwards, so the top row has the largest Y
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].yMax > buckets[j].yMax
	})

	rows := make([]row, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, row{Y: b.yMax, Words: l.words(b.texts)})
	}
	return rows
}

// words merges the glyphs of one row into words by horizontal proximity
func (l Layout) words(texts []pdf.Text) []word {
	sort.SliceStable(texts, func(i, j int) bool {
		return texts[i].X < texts[j].X
	})

	var words []word
	var cur *word
	for _, t := range texts {
		s := strings.TrimSpace(t.S)
		if cur == nil {
			cur = &word{X: t.X, W: t.W, FontSize: t.FontSize, Text: s}
			continue
		}

		threshold := l.WordSpaceFactor * cur.FontSize
		if cur.FontSize == 0 {
			threshold = 3.0
		}
		if t.X-cur.right() <= threshold {
			cur.W = t.X + t.W - cur.X
			cur.Text += s
			continue
		}

		words = append(words, *cur)
		cur = &word{X: t.X, W: t.W, FontSize: t.FontSize, Text: s}
	}
	if cur != nil {
		words = append(words, *cur)
	}
	return words
}

// Cells splits a row into cells wherever two words are further apart than
// the column gap
func (l Layout) Cells(r row) []string {
	if len(r.Words) == 0 {
		return nil
	}

	var cells []string
	current := []string{r.Words[0].Text}
	for i := 1; i < len(r.Words); i++ {
		if r.Words[i].X-r.Words[i-1].right() >= l.ColumnGap {
			cells = append(cells, strings.Join(current, " "))
			current = nil
		}
		current = append(current, r.Words[i].Text)
	}
	return append(cells, strings.Join(current, " "))
}

// Tables finds runs of consecutive rows that split into the same number of
// cells (at least two) and returns each run as a grid of cell text
func (l Layout) Tables(rows []row) [][][]string {
	minRows := l.MinTableRows
	if minRows < 2 {
		minRows = 2
	}

	var tables [][][]string
	var run [][]string
	flush := func() {
		if len(run) >= minRows {
			tables = append(tables, run)
		}
		run = nil
	}

	for _, r := range rows {
		cells := l.Cells(r)
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(run) > 0 && len(run[0]) != len(cells) {
			flush()
		}
		run = append(run, cells)
	}
	flush()
	return tables
}

// Markdown renders a grid as a markdown table with the first row as header
func Markdown(grid [][]string) string {
	if len(grid) == 0 {
		return ""
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for _, c := range cells {
			sb.WriteString(" ")
			sb.WriteString(strings.ReplaceAll(c, "|", "/"))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(grid[0])
	for range grid[0] {
		sb.WriteString("|---")
	}
	sb.WriteString("|\n")
	for _, cells := range grid[1:] {
		writeRow(cells)
	}
	return sb.String()
}
