package document

import (
	"testing"
)

func TestIsParagraphEnd(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  bool
	}{
		{"last line", []string{"Only line"}, true},
		{"next blank", []string{"Some text", ""}, true},
		{"sentence then capital", []string{"Ends here.", "Next one"}, true},
		{"colon then capital", []string{"As follows:", "First point"}, true},
		{"wrapped line", []string{"The quick brown", "fox jumps"}, false},
		{"capital without period", []string{"Title Case", "Body text"}, false},
		{"next starts with symbol", []string{"Intro", "• bullet"}, true},
		{"next starts with quote", []string{"He said", "\"hello\""}, true},
		{"next numbered item", []string{"steps", "2) mix"}, true},
		{"next lettered item", []string{"options", "b. second"}, true},
		{"list item then capital", []string{"- first item", "Then prose"}, true},
		{"numbered item then capital", []string{"1. install", "Configure it"}, true},
		{"list item then lowercase", []string{"- first item", "continues"}, false},
		{"next starts with digit", []string{"in", "2024 results"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsParagraphEnd(tt.lines, 0); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func assertReconstruct(t *testing.T, in string, tables TableLookup, want string) {
	t.Helper()
	if got := Reconstruct(in, tables); got != want {
		t.Errorf("Reconstruct(%q): expected %q, got %q", in, want, got)
	}
}

func TestReconstruct_SeparatesSentences(t *testing.T) {
	assertReconstruct(t, "Foo bar.\nBaz.\nQux", nil, "Foo bar.\n\nBaz.\n\nQux")
}

func TestReconstruct_JoinsWrappedLines(t *testing.T) {
	assertReconstruct(t, "Foo\nbar", nil, "Foo bar")
}

func TestReconstruct_ExpandsTables(t *testing.T) {
	text := "Prices are listed\nbelow.\n[PAGE_0_TABLE_0]\nPrices include tax."
	tables := TableLookup{0: {"\n" + fruitTable}}

	assertReconstruct(t, text, tables,
		"Prices are listed below.\n\n"+
			"| Fruit | Price |\n|---|---|\n| Apple | 1.20 |\n| Pear | 0.90 |\n\n"+
			"Prices include tax.")
}

func TestReconstruct_DropsStalePlaceholders(t *testing.T) {
	text := "Before.\n[PAGE_3_TABLE_7]\nAfter."
	assertReconstruct(t, text, TableLookup{3: {fruitTable}}, "Before.\n\nAfter.")
}

func TestReconstruct_Lists(t *testing.T) {
	text := "Steps:\n1. Download the file\n2. Open it\nThen read"
	assertReconstruct(t, text, nil, "Steps:\n\n1. Download the file\n\n2. Open it\n\nThen read")
}

func TestReconstruct_BlankAndWhitespaceLines(t *testing.T) {
	assertReconstruct(t, "\n   \n\t\n", nil, "")
	assertReconstruct(t, "  One  \r\n\r\n", nil, "One")
}

func TestReconstruct_Idempotent(t *testing.T) {
	inputs := []string{
		"Foo bar.\nBaz.\nQux",
		"The quick brown\nfox jumps over\nthe lazy dog.\nA new paragraph\nstarts here:\n- item one\n- item two\nClosing words.",
		"Intro text\n[PAGE_0_TABLE_0]\nafter the table",
		"a) first\nb) second\nc) third",
	}
	tables := TableLookup{0: {fruitTable}}

	for _, in := range inputs {
		once := Reconstruct(in, tables)
		if twice := Reconstruct(once, tables); twice != once {
			t.Errorf("Expected %q to be stable, got %q (input %q)", once, twice, in)
		}
	}
}
