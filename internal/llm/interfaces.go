package llm

import (
	"context"
	"errors"
)

// ErrEmptyGeneration is returned when the backend answered successfully but
// produced no text. Callers treat this the same as a backend failure.
var ErrEmptyGeneration = errors.New("generation backend returned no text")

// TextGenerator is the interface for LLM text generation. All chapter and
// analysis prompts use single-string completion style (not chat history).
//
// Implementations perform exactly one backend call per Complete invocation;
// retry policy, if any, belongs to the caller's environment, not here.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}
