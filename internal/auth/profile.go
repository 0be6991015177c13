package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/remote"
	"github.com/nhle/theora/internal/store"
)

// profileKey is the local cache key of a user's profile.
func profileKey(userID string) string {
	return "userinfo/" + userID
}

// ProfileStore reads extended user profiles from the remote user info
// document and caches them locally for offline sign-in.
type ProfileStore struct {
	local   store.Store
	adapter *remote.Adapter
	log     zerolog.Logger
}

// NewProfileStore creates a profile store. adapter may wrap a nil document
// store, in which case only the local cache is consulted.
func NewProfileStore(local store.Store, adapter *remote.Adapter, log zerolog.Logger) *ProfileStore {
	return &ProfileStore{
		local:   local,
		adapter: adapter,
		log:     log.With().Str("component", "profiles").Logger(),
	}
}

// Get returns the profile of userID, or nil when none is known. Remote
// failures fall back to the cached copy.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*model.Profile, error) {
	cached := func() *model.Profile {
		var p model.Profile
		if s.local.ReadInto(profileKey(userID), &p) {
			return &p
		}
		return nil
	}

	if !s.adapter.Available() {
		return cached(), nil
	}

	doc, err := s.adapter.Document(ctx, remote.UserInfoID(userID))
	if err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("fetching profile, using cache")
		return cached(), nil
	}
	if len(doc) == 0 {
		return cached(), nil
	}

	var p model.Profile
	if raw, ok := doc["displayName"]; ok {
		_ = json.Unmarshal(raw, &p.DisplayName)
	}
	if raw, ok := doc["email"]; ok {
		_ = json.Unmarshal(raw, &p.Email)
	}
	if err := s.local.Write(profileKey(userID), p); err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("caching profile")
	}
	return &p, nil
}

// Set writes p locally and merges it into the remote user info document.
func (s *ProfileStore) Set(ctx context.Context, userID string, p model.Profile) error {
	if err := s.local.Write(profileKey(userID), p); err != nil {
		return err
	}

	fields := make(map[string]json.RawMessage, 2)
	for name, v := range map[string]string{"displayName": p.DisplayName, "email": p.Email} {
		if v == "" {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		fields[name] = raw
	}
	if len(fields) == 0 {
		return nil
	}
	return s.adapter.MergeDocument(ctx, remote.UserInfoID(userID), fields)
}
