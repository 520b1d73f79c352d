package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexiqai/doc-narrator/internal/document"
	"github.com/lexiqai/doc-narrator/internal/llm"
	"github.com/lexiqai/doc-narrator/internal/pdfsource"
	"github.com/lexiqai/doc-narrator/internal/resilience"
	"github.com/lexiqai/doc-narrator/internal/tts"
)

// ErrUnsupportedFormat is returned for input that is not a PDF document
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Kind tells the caller what sort of problem stopped a run
type Kind string

const (
	KindConfig      Kind = "config"      // Credentials, settings or request parameters
	KindContent     Kind = "content"     // The document or a model response could not be used
	KindTransient   Kind = "transient"   // Network trouble that outlasted the retry budget
	KindUnsupported Kind = "unsupported" // Input type outside the supported set
)

// Stage names the step of a run
type Stage string

const (
	StageValidate   Stage = "validate"
	StageExtract    Stage = "extract"
	StageFormat     Stage = "format"
	StageSynthesize Stage = "synthesize"
)

// Error is the single failure a run reports
type Error struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a run error, or "" when err did not come from a run
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func newError(stage Stage, err error) *Error {
	return &Error{Stage: stage, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, pdfsource.ErrNotPDF):
		return KindUnsupported

	case errors.Is(err, llm.ErrMissingCredentials),
		errors.Is(err, llm.ErrInvalidPrompt),
		errors.Is(err, tts.ErrUnknownVoice),
		errors.Is(err, errInvalidParams),
		errors.Is(err, document.ErrInvalidPageSelection):
		return KindConfig

	case errors.Is(err, pdfsource.ErrUnreadable),
		errors.Is(err, document.ErrPageOutOfRange),
		errors.Is(err, llm.ErrInvalidResponse):
		return KindContent

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindTransient

	case resilience.IsFatal(err):
		if resilience.IsAuthMessage(err) {
			return KindConfig
		}
		return KindContent
	}
	return KindTransient
}
