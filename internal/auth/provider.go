// Package auth connects an identity provider to the state container and
// looks up user profiles.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/credential"
	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
)

// Provider reports the signed-in identity and its changes.
type Provider interface {
	// CurrentIdentity returns the signed-in identity, or nil.
	CurrentIdentity() *model.Identity

	// OnIdentityChanged registers fn for every later change and returns a
	// function that removes it.
	OnIdentityChanged(fn func(*model.Identity)) (cancel func())
}

// LocalProvider keeps the session in the credential store. Signing in
// only records who the user is; there is no password exchange.
type LocalProvider struct {
	creds *credential.Store
	log   zerolog.Logger

	mu        sync.Mutex
	current   *model.Identity
	nextID    int
	listeners map[int]func(*model.Identity)
}

// NewLocalProvider restores any saved session from creds.
func NewLocalProvider(creds *credential.Store, log zerolog.Logger) *LocalProvider {
	p := &LocalProvider{
		creds:     creds,
		log:       log.With().Str("component", "auth").Logger(),
		listeners: make(map[int]func(*model.Identity)),
	}

	raw, err := creds.Get(credential.KeySession)
	switch {
	case errors.Is(err, credential.ErrNotFound):
	case err != nil:
		p.log.Warn().Err(err).Msg("reading saved session")
	default:
		var id model.Identity
		if err := json.Unmarshal([]byte(raw), &id); err != nil || id.ID == "" {
			p.log.Warn().Msg("discarding malformed saved session")
		} else {
			p.current = &id
		}
	}
	return p
}

// CurrentIdentity implements Provider.
func (p *LocalProvider) CurrentIdentity() *model.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	id := *p.current
	return &id
}

// OnIdentityChanged implements Provider.
func (p *LocalProvider) OnIdentityChanged(fn func(*model.Identity)) (cancel func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	key := p.nextID
	p.listeners[key] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, key)
			p.mu.Unlock()
		})
	}
}

// SignIn saves id as the session and notifies listeners.
func (p *LocalProvider) SignIn(id model.Identity) error {
	id.ID = strings.TrimSpace(id.ID)
	if id.ID == "" {
		return &model.ValidationError{Entity: "identity", Field: "uid", Reason: "must not be empty"}
	}

	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := p.creds.Set(credential.KeySession, string(raw)); err != nil {
		return err
	}

	p.mu.Lock()
	p.current = &id
	p.mu.Unlock()

	p.notify(&id)
	return nil
}

// SignOut forgets the session and notifies listeners.
func (p *LocalProvider) SignOut() error {
	if err := p.creds.Delete(credential.KeySession); err != nil {
		return err
	}

	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()

	p.notify(nil)
	return nil
}

func (p *LocalProvider) notify(id *model.Identity) {
	p.mu.Lock()
	fns := make([]func(*model.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		if id == nil {
			fn(nil)
			continue
		}
		cp := *id
		fn(&cp)
	}
}

// Bind applies the provider's current identity to the container and keeps
// the two in step until the returned function is called.
func Bind(ctx context.Context, p Provider, c *state.Container, log zerolog.Logger) (unbind func(), err error) {
	apply := func(id *model.Identity) error {
		if err := c.SetUser(ctx, id); err != nil {
			log.Error().Err(err).Msg("applying identity change")
			return err
		}
		return nil
	}

	cancel := p.OnIdentityChanged(func(id *model.Identity) { _ = apply(id) })
	if err := apply(p.CurrentIdentity()); err != nil {
		cancel()
		return nil, err
	}
	return cancel, nil
}
