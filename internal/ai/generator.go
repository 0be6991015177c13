// Package ai consumes text generation providers: it routes requests across
// providers, fills the derived-content cache, answers chat messages and
// composes notifications.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// TextGenerator produces text for a prompt. Implementations return a
// *ProviderError on failure.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Options tunes a single generation request.
type Options struct {
	// MaxTokens bounds the response length; zero uses the provider default.
	MaxTokens int

	// Temperature is sent only when positive.
	Temperature float64

	// System is the instruction preceding the conversation.
	System string

	// History is the prior conversation, oldest first.
	History []Message
}

// ErrNoProvider is returned when no provider is configured.
var ErrNoProvider = errors.New("no AI provider configured")

// ProviderError reports a failed generation. Callers substitute a static
// fallback message.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// recoverable reports whether repeating the request may help.
func (e *ProviderError) recoverable() bool {
	return e.Status == 0 || e.Status >= 500 || e.Status == 429
}

// IsProviderError reports whether err (or any error in its chain) is a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
