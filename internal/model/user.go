package model

// DefaultUserName is shown when the signed-in user has no display name.
const DefaultUserName = "User"

// Identity is the signed-in user as reported by the authentication provider,
// merged with the stored profile.
type Identity struct {
	ID          string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Profile is the extended user information kept in the profile store.
type Profile struct {
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Merge overlays the non-empty profile fields onto the identity.
func (i Identity) Merge(p *Profile) Identity {
	if p == nil {
		return i
	}
	if p.DisplayName != "" {
		i.DisplayName = p.DisplayName
	}
	if p.Email != "" {
		i.Email = p.Email
	}
	return i
}

// Name returns the display name, or DefaultUserName.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return DefaultUserName
}
