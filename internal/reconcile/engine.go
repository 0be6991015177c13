// Package reconcile merges a user's local and remote synchronized fields at
// sign-in using last-writer-wins on the envelope timestamp.
package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/metrics"
	"github.com/nhle/theora/internal/remote"
	"github.com/nhle/theora/internal/store"
)

// Source records where a field's chosen value came from.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceLocal   Source = "local"
	SourceDefault Source = "default"
)

// Result is the outcome of one reconciliation pass.
type Result struct {
	// Fields holds the chosen envelope per field. Fields resolved to
	// SourceDefault are absent.
	Fields map[string]store.Envelope

	// Sources records the decision per requested field.
	Sources map[string]Source

	// RemoteErr is set when the remote document could not be fetched and
	// the pass fell back to local values only.
	RemoteErr error
}

// Decode unmarshals field into dst and reports whether a value was present
// and decodable.
func (r Result) Decode(field string, dst any) bool {
	env, ok := r.Fields[field]
	if !ok {
		return false
	}
	return env.Decode(dst) == nil
}

// Validator reports whether env holds a usable value for field. An envelope
// that fails validation is treated as absent.
type Validator func(field string, env store.Envelope) bool

// ValidJSON accepts any envelope whose data is well-formed JSON.
func ValidJSON(_ string, env store.Envelope) bool {
	return len(env.Data) > 0 && json.Valid(env.Data)
}

// Engine reconciles local and remote envelopes.
type Engine struct {
	local  store.Store
	remote *remote.Adapter
	log    zerolog.Logger
}

// NewEngine creates an engine. A nil or unavailable adapter makes every pass
// local-only.
func NewEngine(local store.Store, adapter *remote.Adapter, log zerolog.Logger) *Engine {
	return &Engine{
		local:  local,
		remote: adapter,
		log:    log.With().Str("component", "reconcile").Logger(),
	}
}

// Reconcile chooses a value for each of fields of userID. For every field
// independently, the remote envelope wins when the local one is absent or
// strictly older, and is then written back locally; otherwise the local
// envelope is kept. Envelopes rejected by valid count as absent, so an
// unusable remote copy never replaces a usable local one. A nil valid uses
// ValidJSON. The remote is never written here.
func (e *Engine) Reconcile(ctx context.Context, userID string, fields []string, valid Validator) Result {
	if valid == nil {
		valid = ValidJSON
	}
	res := Result{
		Fields:  make(map[string]store.Envelope, len(fields)),
		Sources: make(map[string]Source, len(fields)),
	}

	remoteFields := map[string]store.Envelope{}
	if e.remote.Available() {
		got, err := e.remote.GetFields(ctx, userID)
		if err != nil {
			e.log.Warn().Err(err).Str("user", userID).Msg("remote fetch failed, using local data")
			res.RemoteErr = err
		} else {
			remoteFields = got
		}
	}

	for _, field := range fields {
		key := store.UserKey(userID, field)

		var local store.Envelope
		hasLocal := e.local.ReadInto(key, &local) && valid(field, local)
		rem, hasRemote := remoteFields[field]
		if hasRemote && !valid(field, rem) {
			e.log.Warn().Str("user", userID).Str("field", field).Msg("ignoring undecodable remote value")
			hasRemote = false
		}

		switch {
		case hasRemote && (!hasLocal || newer(rem.Timestamp(), local.Timestamp())):
			res.Fields[field] = rem
			res.Sources[field] = SourceRemote
			if err := e.local.Write(key, rem); err != nil {
				e.log.Warn().Err(err).Str("field", field).Msg("write-back of remote value failed")
			}
		case hasLocal:
			res.Fields[field] = local
			res.Sources[field] = SourceLocal
		default:
			res.Sources[field] = SourceDefault
		}
		metrics.ReconciledFields.WithLabelValues(string(res.Sources[field])).Inc()
	}

	return res
}

func newer(a, b time.Time) bool {
	return a.After(b)
}
