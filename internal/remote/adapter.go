package remote

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/metrics"
	"github.com/nhle/theora/internal/store"
)

// Adapter exposes the per-user synchronized fields of a DocumentStore.
// A nil DocumentStore makes every operation a successful no-op.
type Adapter struct {
	docs DocumentStore
	log  zerolog.Logger
}

// NewAdapter wraps docs, which may be nil for local-only operation.
func NewAdapter(docs DocumentStore, log zerolog.Logger) *Adapter {
	return &Adapter{
		docs: docs,
		log:  log.With().Str("component", "remote").Logger(),
	}
}

// Available reports whether a remote store is configured.
func (a *Adapter) Available() bool {
	return a != nil && a.docs != nil
}

// GetFields returns every synchronized field of userID's document. Fields
// whose value is not a valid envelope are skipped so that one corrupt field
// does not hide the others.
func (a *Adapter) GetFields(ctx context.Context, userID string) (map[string]store.Envelope, error) {
	out := make(map[string]store.Envelope)
	if !a.Available() {
		return out, nil
	}

	doc, err := a.Document(ctx, UserDataID(userID))
	if err != nil {
		return out, err
	}

	for field, raw := range doc {
		var env store.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			a.log.Warn().Err(err).Str("field", field).Msg("skipping malformed remote field")
			continue
		}
		out[field] = env
	}
	return out, nil
}

// SetField writes one envelope into userID's document with merge semantics,
// leaving sibling fields untouched.
func (a *Adapter) SetField(ctx context.Context, userID, field string, env store.Envelope) error {
	if !a.Available() {
		return nil
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return &RemoteError{Op: "set", Doc: UserDataID(userID), Err: err}
	}
	return a.MergeDocument(ctx, UserDataID(userID), map[string]json.RawMessage{field: raw})
}

// Document fetches a whole document by id.
func (a *Adapter) Document(ctx context.Context, id string) (map[string]json.RawMessage, error) {
	if !a.Available() {
		return map[string]json.RawMessage{}, nil
	}

	doc, err := a.docs.GetDocument(ctx, id)
	if err != nil {
		metrics.RemoteFailures.WithLabelValues("get").Inc()
		return nil, &RemoteError{Op: "get", Doc: id, Err: err}
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}
	return doc, nil
}

// MergeDocument merges fields into document id.
func (a *Adapter) MergeDocument(ctx context.Context, id string, fields map[string]json.RawMessage) error {
	if !a.Available() {
		return nil
	}

	if err := a.docs.SetDocument(ctx, id, fields, true); err != nil {
		metrics.RemoteFailures.WithLabelValues("set").Inc()
		return &RemoteError{Op: "set", Doc: id, Err: err}
	}
	return nil
}
