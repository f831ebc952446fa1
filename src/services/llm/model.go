// Package llm abstracts language-model backends behind small capability
// interfaces. Backends differ in how they are invoked and in the shape
// of what they return; the invocation order and the response-text
// extraction are both explicit ordered lists rather than runtime
// probing.
package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrModelInit is returned when every configured model tier fails
	// to initialize.
	ErrModelInit = errors.New("failed to initialise model")

	// ErrNoGenerateMethod is returned when an acquired model handle
	// supports neither generation capability.
	ErrNoGenerateMethod = errors.New("model does not support content generation")

	// ErrEmptyResponse is returned when no extractor finds any text in
	// the model's result.
	ErrEmptyResponse = errors.New("received empty response from LLM")
)

// GenerateRequest is the structured argument for prompt-style backends.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// ContentGenerator is the preferred invocation shape: one call with the
// fully formatted prompt.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (any, error)
}

// PromptGenerator is the compatibility shape. Backends receive either a
// GenerateRequest or, on retry, the raw prompt string.
type PromptGenerator interface {
	Generate(ctx context.Context, req any) (any, error)
}

// Factory constructs a model handle. Construction may fail (bad key,
// unreachable backend); tiers are tried in order.
type Factory func(ctx context.Context) (any, error)

// Acquire returns the first model handle whose factory succeeds. All
// factories failing is fatal for the current utterance only.
func Acquire(ctx context.Context, factories ...Factory) (any, error) {
	var lastErr error
	for _, f := range factories {
		model, err := f(ctx)
		if err == nil {
			return model, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelInit, lastErr)
	}
	return nil, ErrModelInit
}

// Invoke runs the model with the documented method order: a
// ContentGenerator gets the full prompt directly; otherwise a
// PromptGenerator is tried with the structured request and retried once
// with the raw prompt string. Handles with neither capability yield
// ErrNoGenerateMethod.
func Invoke(ctx context.Context, model any, prompt string) (any, error) {
	if cg, ok := model.(ContentGenerator); ok {
		return cg.GenerateContent(ctx, prompt)
	}
	if pg, ok := model.(PromptGenerator); ok {
		result, err := pg.Generate(ctx, GenerateRequest{Prompt: prompt})
		if err == nil {
			return result, nil
		}
		return pg.Generate(ctx, prompt)
	}
	return nil, ErrNoGenerateMethod
}
