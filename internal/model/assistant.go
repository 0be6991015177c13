package model

import "strings"

// AISlot names one entry of the derived-content cache.
type AISlot string

// Cached AI message slots.
const (
	SlotDailyBrief           AISlot = "dailyBrief"
	SlotBudgetInsight        AISlot = "budgetInsight"
	SlotTimeManagementAdvice AISlot = "timeManagementAdvice"
)

// AISlots lists every cache slot.
var AISlots = []AISlot{SlotDailyBrief, SlotBudgetInsight, SlotTimeManagementAdvice}

// Valid reports whether s names a known slot.
func (s AISlot) Valid() bool {
	for _, known := range AISlots {
		if s == known {
			return true
		}
	}
	return false
}

// AIMessages is the derived-content cache: rendered AI text per slot, or nil
// when the slot must be regenerated.
type AIMessages struct {
	DailyBrief           *string `json:"dailyBrief"`
	BudgetInsight        *string `json:"budgetInsight"`
	TimeManagementAdvice *string `json:"timeManagementAdvice"`
}

func (m *AIMessages) ptr(slot AISlot) **string {
	switch slot {
	case SlotDailyBrief:
		return &m.DailyBrief
	case SlotBudgetInsight:
		return &m.BudgetInsight
	case SlotTimeManagementAdvice:
		return &m.TimeManagementAdvice
	}
	return nil
}

// Get returns the cached text for slot, if any.
func (m AIMessages) Get(slot AISlot) (string, bool) {
	p := m.ptr(slot)
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

// Set stores text in slot; nil clears it. Unknown slots are ignored.
func (m *AIMessages) Set(slot AISlot, text *string) {
	if p := m.ptr(slot); p != nil {
		*p = text
	}
}

// Built-in response styles.
const (
	StyleNormal     = "normal"
	StyleConcise    = "concise"
	StyleSupportive = "supportive"
	StyleDirect     = "direct"
	StyleSapa       = "sapa"
	StyleHustle     = "hustle"
)

// DefaultStyle is used whenever the selected style cannot be resolved.
const DefaultStyle = StyleNormal

// BuiltinStyles lists the response styles that ship with the client.
var BuiltinStyles = []string{
	StyleNormal, StyleConcise, StyleSupportive, StyleDirect, StyleSapa, StyleHustle,
}

// IsBuiltinStyle reports whether name matches a built-in style, ignoring case.
func IsBuiltinStyle(name string) bool {
	for _, s := range BuiltinStyles {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// AI provider identifiers.
const (
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// DefaultProvider is selected for new users.
const DefaultProvider = ProviderClaude

// Providers lists the selectable AI providers.
var Providers = []string{ProviderClaude, ProviderGemini}

// CustomAIMode is a user-defined response style.
type CustomAIMode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
}

// Validate checks that both name and instruction are present.
func (m CustomAIMode) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return invalid("customAiMode", "name", "must not be empty")
	}
	if strings.TrimSpace(m.Instruction) == "" {
		return invalid("customAiMode", "instruction", "must not be empty")
	}
	if IsBuiltinStyle(m.Name) {
		return invalid("customAiMode", "name", "clashes with a built-in style")
	}
	return nil
}

// Settings holds feature toggles.
type Settings struct {
	HustleMode    bool `json:"hustleMode"`
	SapaMode      bool `json:"sapaMode"`
	Notifications bool `json:"notifications"`
}

// SettingsPatch is a partial update for Settings.
type SettingsPatch struct {
	HustleMode    *bool
	SapaMode      *bool
	Notifications *bool
}

// DefaultSettings returns the toggles a new user starts with.
func DefaultSettings() Settings {
	return Settings{Notifications: true}
}

// Apply returns a copy of s with the patch merged in.
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.HustleMode != nil {
		s.HustleMode = *p.HustleMode
	}
	if p.SapaMode != nil {
		s.SapaMode = *p.SapaMode
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	return s
}
