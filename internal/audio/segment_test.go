package audio

import (
	"reflect"
	"strings"
	"testing"
)

func words(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestSplitPauses(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"no marker", "Just one part.", []string{"Just one part."}},
		{"two parts", "A. [SILENCE] B.", []string{"A.", "B."}},
		{"empty segments dropped", "[SILENCE] A. [SILENCE][SILENCE]  [SILENCE] B.", []string{"A.", "B."}},
		{"only markers", " [SILENCE] [SILENCE] ", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPauses(tt.text, DefaultPauseMarker)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestChunkText_SentencesAreRepunctuated(t *testing.T) {
	got := ChunkText("First one. Second one. Third one.", 50)
	want := []string{"First one. Second one. Third one."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}

	got = ChunkText("No final stop", 50)
	want = []string{"No final stop."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestChunkText_OversizedSentenceIsKept(t *testing.T) {
	sentence := words(120, "word")

	got := ChunkText(sentence, 50)
	if len(got) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(got))
	}
	if n := len(strings.Fields(got[0])); n != 120 {
		t.Errorf("Expected 120 words, got %d", n)
	}
}

func TestChunkText_ClosesBeforeOverflow(t *testing.T) {
	text := words(30, "alpha") + ". " + words(30, "beta") + "."

	got := ChunkText(text, 50)
	if len(got) != 2 {
		t.Fatalf("Expected 2 chunks, got %d: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "alpha") || !strings.HasPrefix(got[1], "beta") {
		t.Errorf("Expected chunks in source order, got %q", got)
	}
	for i, c := range got {
		if n := len(strings.Fields(c)); n != 30 {
			t.Errorf("Chunk %d: expected 30 words, got %d", i, n)
		}
	}
}

func TestChunkText_ExactBudgetFits(t *testing.T) {
	text := words(25, "a") + ". " + words(25, "b")

	if got := ChunkText(text, 50); len(got) != 1 {
		t.Errorf("Expected 1 chunk at exactly the budget, got %d", len(got))
	}
}

func TestChunkText_NeverExceedsBudgetWithShortSentences(t *testing.T) {
	var sentences []string
	for i := 0; i < 40; i++ {
		sentences = append(sentences, words(7, "w"))
	}

	for i, c := range ChunkText(strings.Join(sentences, ". "), 50) {
		if n := len(strings.Fields(c)); n > 50 {
			t.Errorf("Chunk %d has %d words", i, n)
		}
	}
}

func TestChunkText_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "  .  "} {
		if got := ChunkText(text, 50); got != nil {
			t.Errorf("Expected no chunks for %q, got %q", text, got)
		}
	}
}
