package audio

import "strings"

// DefaultPauseMarker separates segments that get a pause between them
const DefaultPauseMarker = "[SILENCE]"

// DefaultMaxWords is the word budget of one synthesis chunk
const DefaultMaxWords = 50

// SplitPauses splits narration on the pause marker, trimming segments and
// dropping empty ones
func SplitPauses(text, marker string) []string {
	var segments []string
	for _, s := range strings.Split(text, marker) {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// ChunkText packs sentences into chunks of at most maxWords words. A chunk is
// closed before the sentence that would overflow it; a single sentence longer
// than the budget becomes its own chunk and is never cut.
func ChunkText(text string, maxWords int) []string {
	var chunks []string
	var current strings.Builder
	currentWords := 0

	for _, sentence := range strings.Split(text, ". ") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		words := len(strings.Fields(sentence))
		if current.Len() > 0 && currentWords+words > maxWords {
			chunks = append(chunks, strings.TrimRight(current.String(), " "))
			current.Reset()
			currentWords = 0
		}

		current.WriteString(sentence)
		if strings.HasSuffix(sentence, ".") {
			current.WriteString(" ")
		} else {
			current.WriteString(". ")
		}
		currentWords += words
	}

	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimRight(current.String(), " "))
	}
	return chunks
}
