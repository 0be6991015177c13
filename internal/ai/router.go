package ai

import (
	"context"
	"errors"
	"slices"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/metrics"
)

// Router tries the preferred provider first and falls back to the others in
// registration order.
type Router struct {
	names     []string
	providers map[string]TextGenerator
	preferred func() string
	log       zerolog.Logger
}

// NewRouter creates a router. preferred is consulted on every request, so
// a provider switch takes effect immediately; it may be nil.
func NewRouter(preferred func() string, log zerolog.Logger) *Router {
	return &Router{
		providers: make(map[string]TextGenerator),
		preferred: preferred,
		log:       log.With().Str("component", "ai").Logger(),
	}
}

// Register adds or replaces a provider.
func (r *Router) Register(name string, g TextGenerator) {
	if _, ok := r.providers[name]; !ok {
		r.names = append(r.names, name)
	}
	r.providers[name] = g
}

// Providers lists the registered provider names in registration order.
func (r *Router) Providers() []string {
	return slices.Clone(r.names)
}

// order returns the provider names to try for one request.
func (r *Router) order() []string {
	names := slices.Clone(r.names)
	if r.preferred == nil {
		return names
	}
	want := r.preferred()
	if i := slices.Index(names, want); i > 0 {
		names = append([]string{want}, slices.Delete(names, i, i+1)...)
	}
	return names
}

// Generate implements TextGenerator.
func (r *Router) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	names := r.order()
	if len(names) == 0 {
		return "", &ProviderError{Provider: "router", Err: ErrNoProvider}
	}

	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		text, err := r.providers[name].Generate(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}
		metrics.GenerationFailures.WithLabelValues(name).Inc()
		r.log.Warn().Err(err).Str("provider", name).Msg("generation failed")
		errs = append(errs, err)
	}
	return "", &ProviderError{Provider: "router", Err: errors.Join(errs...)}
}
