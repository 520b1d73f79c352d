package llm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOutputSpec_Kind(t *testing.T) {
	tests := []struct {
		name string
		spec OutputSpec
		want OutputKind
	}{
		{"none", OutputSpec{}, OutputUnset},
		{"text", OutputSpec{Text: true}, OutputText},
		{"regex", OutputSpec{Regex: `(.*)`}, OutputRegex},
		{"json", OutputSpec{JSON: SchemaFormattedPage}, OutputJSON},
		{"two kinds", OutputSpec{Text: true, JSON: SchemaFormattedPage}, OutputUnset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.Kind(); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPrompt_Validate(t *testing.T) {
	if err := FormatForSpeech.Validate(); err != nil {
		t.Fatalf("Expected the default prompt to be valid, got %v", err)
	}

	tests := []struct {
		name   string
		prompt Prompt
	}{
		{"empty user", Prompt{Output: OutputSpec{Text: true}}},
		{"no output", Prompt{User: "hi"}},
		{"several outputs", Prompt{User: "hi", Output: OutputSpec{Text: true, Regex: "x"}}},
		{"bad regex", Prompt{User: "hi", Output: OutputSpec{Regex: "("}}},
		{"unknown schema", Prompt{User: "hi", Output: OutputSpec{JSON: "invoice"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.prompt.Validate(); !errors.Is(err, ErrInvalidPrompt) {
				t.Errorf("Expected ErrInvalidPrompt, got %v", err)
			}
		})
	}
}

func TestPrompt_Render(t *testing.T) {
	p := Prompt{
		System: "Pause with {marker}. Reply as {\"text\": ...}",
		User:   "Page: {page} / {page}",
		Inputs: []string{"marker", "page"},
		Output: OutputSpec{Text: true},
	}

	system, user, err := p.Render(map[string]string{"marker": "[SILENCE]", "page": "{marker}"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if system != "Pause with [SILENCE]. Reply as {\"text\": ...}" {
		t.Errorf("Unexpected system message %q", system)
	}
	// Substituted values are not expanded again
	if user != "Page: {marker} / {marker}" {
		t.Errorf("Unexpected user message %q", user)
	}

	if _, _, err := p.Render(map[string]string{"marker": "x"}); !errors.Is(err, ErrInvalidPrompt) {
		t.Errorf("Expected ErrInvalidPrompt for missing input, got %v", err)
	}
}

func TestPrompt_ParseOutput(t *testing.T) {
	text := Prompt{User: "u", Output: OutputSpec{Text: true}}
	got, err := text.ParseOutput("  plain answer \n")
	if err != nil || got != "plain answer" {
		t.Errorf("Expected 'plain answer', got %q, %v", got, err)
	}

	if _, err := text.ParseOutput("   "); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("Expected ErrInvalidResponse for blank output, got %v", err)
	}

	re := Prompt{User: "u", Output: OutputSpec{Regex: `<answer>(.*)</answer>`}}
	got, err = re.ParseOutput("noise <answer>kept</answer> noise")
	if err != nil || got != "kept" {
		t.Errorf("Expected 'kept', got %q, %v", got, err)
	}

	if _, err := re.ParseOutput("no tags"); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("Expected ErrInvalidResponse without a match, got %v", err)
	}
}

func TestLoadPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yaml")
	content := `system: |
  Read it like a radio host. Pause with {silence_keyword}.
user: "{current_page}"
inputs: [current_page, silence_keyword]
output:
  json: formatted_page
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPrompt(path)
	if err != nil {
		t.Fatalf("LoadPrompt failed: %v", err)
	}
	if p.Output.Kind() != OutputJSON {
		t.Errorf("Expected JSON output, got %s", p.Output.Kind())
	}
	if len(p.Inputs) != 2 || p.Inputs[0] != "current_page" || p.Inputs[1] != "silence_keyword" {
		t.Errorf("Expected inputs [current_page silence_keyword], got %v", p.Inputs)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("user: hi\noutput:\n  text: true\n  regex: x\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPrompt(bad); !errors.Is(err, ErrInvalidPrompt) {
		t.Errorf("Expected ErrInvalidPrompt, got %v", err)
	}

	if _, err := LoadPrompt(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
