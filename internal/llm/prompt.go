package llm

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Input variable names understood by the page formatting prompt
const (
	VarPreviousFragment = "previous_fragment"
	VarCurrentPage      = "current_page"
	VarNextPreview      = "next_preview"
	VarSilenceKeyword   = "silence_keyword"
)

// OutputKind selects how a completion is turned into text
type OutputKind int

const (
	OutputUnset OutputKind = iota
	OutputText
	OutputRegex
	OutputJSON
)

func (k OutputKind) String() string {
	switch k {
	case OutputText:
		return "text"
	case OutputRegex:
		return "regex"
	case OutputJSON:
		return "json"
	default:
		return "unset"
	}
}

// OutputSpec describes the expected completion. Exactly one field must be set.
type OutputSpec struct {
	Text  bool   `yaml:"text,omitempty"`
	Regex string `yaml:"regex,omitempty"` // First capture group (or whole match) is the result
	JSON  string `yaml:"json,omitempty"`  // Schema name; only "formatted_page" is known
}

// Kind returns the configured output kind, or OutputUnset when zero or
// several are configured
func (o OutputSpec) Kind() OutputKind {
	kind, count := OutputUnset, 0
	if o.Text {
		kind, count = OutputText, count+1
	}
	if o.Regex != "" {
		kind, count = OutputRegex, count+1
	}
	if o.JSON != "" {
		kind, count = OutputJSON, count+1
	}
	if count != 1 {
		return OutputUnset
	}
	return kind
}

// SchemaFormattedPage is the JSON object {"text": "..."} returned per page
const SchemaFormattedPage = "formatted_page"

// ErrInvalidPrompt is returned for prompts that cannot be used
var ErrInvalidPrompt = errors.New("invalid prompt")

// Prompt is a system and user message pair with {name} placeholders
type Prompt struct {
	System string     `yaml:"system"`
	User   string     `yaml:"user"`
	Inputs []string   `yaml:"inputs"`
	Output OutputSpec `yaml:"output"`
}

// Validate checks that the prompt has a user message and exactly one output kind
func (p Prompt) Validate() error {
	if strings.TrimSpace(p.User) == "" {
		return fmt.Errorf("%w: user message is empty", ErrInvalidPrompt)
	}
	switch p.Output.Kind() {
	case OutputUnset:
		return fmt.Errorf("%w: exactly one of output text, regex or json must be set", ErrInvalidPrompt)
	case OutputRegex:
		if _, err := regexp.Compile(p.Output.Regex); err != nil {
			return fmt.Errorf("%w: output regex: %v", ErrInvalidPrompt, err)
		}
	case OutputJSON:
		if p.Output.JSON != SchemaFormattedPage {
			return fmt.Errorf("%w: unknown output schema %q", ErrInvalidPrompt, p.Output.JSON)
		}
	}
	return nil
}

// Render fills the {name} placeholders of both messages. Every declared
// input must be present in vars.
func (p Prompt) Render(vars map[string]string) (system, user string, err error) {
	pairs := make([]string, 0, 2*len(p.Inputs))
	for _, name := range p.Inputs {
		value, ok := vars[name]
		if !ok {
			return "", "", fmt.Errorf("%w: missing input variable %q", ErrInvalidPrompt, name)
		}
		pairs = append(pairs, "{"+name+"}", value)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(p.System), r.Replace(p.User), nil
}

// ParseOutput extracts the result from a raw completion according to the
// output kind. Anything unusable is ErrInvalidResponse.
func (p Prompt) ParseOutput(raw string) (string, error) {
	switch p.Output.Kind() {
	case OutputText:
		text := strings.TrimSpace(raw)
		if text == "" {
			return "", fmt.Errorf("%w: empty completion", ErrInvalidResponse)
		}
		return text, nil
	case OutputRegex:
		m := regexp.MustCompile(p.Output.Regex).FindStringSubmatch(raw)
		if m == nil {
			return "", fmt.Errorf("%w: completion does not match %q", ErrInvalidResponse, p.Output.Regex)
		}
		if len(m) > 1 {
			return m[1], nil
		}
		return m[0], nil
	case OutputJSON:
		return ParseFormattedPage(raw)
	default:
		return "", fmt.Errorf("%w: no output kind configured", ErrInvalidPrompt)
	}
}

// LoadPrompt reads a prompt override from a YAML file
func LoadPrompt(path string) (Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to read prompt file: %w", err)
	}
	var p Prompt
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prompt{}, fmt.Errorf("failed to parse prompt file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Prompt{}, fmt.Errorf("prompt file %s: %w", path, err)
	}
	return p, nil
}

// FormatForSpeech is the default page formatting prompt
var FormatForSpeech = Prompt{
	System: `You turn raw, line-broken text extracted from PDF pages into clean prose that will be read aloud by a text-to-speech engine, like a well-edited audiobook narration.

For every request you receive three inputs:
1. current_page: the raw text of the page to format.
2. previous_fragment: the end of the narration produced so far.
3. next_preview: the raw text of the following page, so sections that continue across pages stay intact.

Instructions:
- Continue naturally from previous_fragment without repeating it, and anticipate next_preview without narrating it.
- Merge broken lines into full paragraphs and keep the original order of the content.
- Leave out code, formulas, tables, references, page numbers, headers and footers.
- Rewrite headings and bullet lists as spoken transitions, for example "Let's now look at the background" or "There are three factors. First... Second... Finally...".
- Do not add or invent anything that is not in the page.
- Insert the marker {silence_keyword} between paragraphs and wherever the topic shifts, so the narrator can pause.

Return only a JSON object with a single key "text" holding the formatted narration.`,
	User: "previous_fragment:\n```\n{previous_fragment}\n```\n\n" +
		"current_page:\n```\n{current_page}\n```\n\n" +
		"next_preview:\n```\n{next_preview}\n```\n\n" +
		"Format the current_page into narration-ready text that continues from the previous_fragment. " +
		"Output only the newly formatted portion.",
	Inputs: []string{VarPreviousFragment, VarCurrentPage, VarNextPreview, VarSilenceKeyword},
	Output: OutputSpec{JSON: SchemaFormattedPage},
}
