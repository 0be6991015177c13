package state

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// Renderer turns AI markdown into display text.
type Renderer interface {
	Render(markdown string) (string, error)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(markdown string) (string, error)

// Render implements Renderer.
func (f RenderFunc) Render(markdown string) (string, error) {
	return f(markdown)
}

// PlainRenderer returns markdown unchanged.
var PlainRenderer = RenderFunc(func(markdown string) (string, error) {
	return markdown, nil
})

// TerminalRenderer renders markdown for a terminal using glamour.
type TerminalRenderer struct {
	mu sync.Mutex
	tr *glamour.TermRenderer
}

// NewTerminalRenderer creates a renderer wrapping lines at width columns.
func NewTerminalRenderer(width int) (*TerminalRenderer, error) {
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("ascii"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &TerminalRenderer{tr: tr}, nil
}

// Render implements Renderer.
func (r *TerminalRenderer) Render(markdown string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tr.Render(markdown)
}
