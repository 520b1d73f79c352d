package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidResponse is returned when a completion does not have the expected shape
var ErrInvalidResponse = errors.New("invalid response format from language model")

type formattedPage struct {
	Text *string `json:"text"`
}

// ParseFormattedPage validates a {"text": "..."} completion and returns the text.
// Markdown code fences around the object are tolerated.
func ParseFormattedPage(raw string) (string, error) {
	body := stripCodeFence(raw)

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var page formattedPage
	if err := dec.Decode(&page); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: trailing data after object", ErrInvalidResponse)
	}
	if page.Text == nil {
		return "", fmt.Errorf("%w: missing \"text\" field", ErrInvalidResponse)
	}
	return *page.Text, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
