package state

import (
	"slices"
	"strings"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/store"
)

// invalidateLocked clears the given cache slots. Every slot's version is
// bumped even when already empty so an in-flight fill of it is discarded.
func (c *Container) invalidateLocked(b *batch, slots ...model.AISlot) {
	changed := false
	for _, s := range slots {
		c.aiVersions[s]++
		if _, ok := c.aiMessages.Get(s); ok {
			c.aiMessages.Set(s, nil)
			changed = true
		}
	}
	if changed {
		c.persistLocked(store.FieldAIMessages, c.aiMessages)
		b.add(AIMessagesChanged, c.aiMessages)
	}
}

// renderMarkdown renders text for display, falling back to the raw text.
func (c *Container) renderMarkdown(text string) *string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	out, err := c.render.Render(text)
	if err != nil {
		c.log.Warn().Err(err).Msg("rendering AI message, storing raw text")
		out = text
	}
	return &out
}

func (c *Container) storeAIMessageLocked(b *batch, slot model.AISlot, rendered *string) {
	c.aiVersions[slot]++
	c.aiMessages.Set(slot, rendered)
	c.persistLocked(store.FieldAIMessages, c.aiMessages)
	b.add(AIMessagesChanged, c.aiMessages)
}

// SetAIMessage renders markdown into slot. Empty text clears the slot and
// an unknown slot is ignored.
func (c *Container) SetAIMessage(slot model.AISlot, markdown string) {
	if !slot.Valid() {
		return
	}
	rendered := c.renderMarkdown(markdown)
	_ = c.update(func(b *batch) error {
		c.storeAIMessageLocked(b, slot, rendered)
		return nil
	})
}

// AIMessageVersion returns the current version of slot. Pass it back to
// CacheAIMessage after generating content for the slot.
func (c *Container) AIMessageVersion(slot model.AISlot) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aiVersions[slot]
}

// CacheAIMessage stores generated markdown in slot only if the slot has not
// been invalidated or written since version was read. It reports whether the
// content was stored.
func (c *Container) CacheAIMessage(slot model.AISlot, markdown string, version uint64) bool {
	if !slot.Valid() {
		return false
	}
	rendered := c.renderMarkdown(markdown)

	stored := false
	_ = c.update(func(b *batch) error {
		if c.aiVersions[slot] != version {
			return nil
		}
		c.storeAIMessageLocked(b, slot, rendered)
		stored = true
		return nil
	})
	return stored
}

// AIMessages returns the cached AI content.
func (c *Container) AIMessages() model.AIMessages {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aiMessages
}

// UpdateSettings merges p into the settings.
func (c *Container) UpdateSettings(p model.SettingsPatch) {
	_ = c.update(func(b *batch) error {
		c.settings = c.settings.Apply(p)
		c.persistLocked(store.FieldSettings, c.settings)
		b.add(SettingsChanged, c.settings)
		return nil
	})
}

// Settings returns the feature toggles.
func (c *Container) Settings() model.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// SetAIProvider selects the preferred AI provider.
func (c *Container) SetAIProvider(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !isProvider(name) {
		return &model.ValidationError{Entity: "settings", Field: "aiProvider", Reason: "unknown provider " + name}
	}
	return c.update(func(b *batch) error {
		c.aiProvider = name
		c.persistLocked(store.FieldAIProvider, c.aiProvider)
		b.add(AIProviderChanged, name)
		return nil
	})
}

// AIProvider returns the preferred AI provider.
func (c *Container) AIProvider() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aiProvider
}

// SetAIResponseStyle selects a built-in style or a custom mode by name.
// Anything else selects the default style.
func (c *Container) SetAIResponseStyle(style string) {
	_ = c.update(func(b *batch) error {
		resolved, _ := c.resolveStyleLocked(strings.TrimSpace(style))
		c.aiResponseStyle = resolved
		c.persistLocked(store.FieldAIResponseStyle, c.aiResponseStyle)
		b.add(AIResponseStyleChanged, resolved)
		return nil
	})
}

// AIResponseStyle returns the stored style selector.
func (c *Container) AIResponseStyle() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aiResponseStyle
}

// ResolvedStyle resolves the selected style. It returns the style name and,
// when the name refers to a custom mode, that mode. A selector that matches
// neither a built-in style nor a custom mode resolves to the default style.
func (c *Container) ResolvedStyle() (string, *model.CustomAIMode) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolveStyleLocked(c.aiResponseStyle)
}

func (c *Container) resolveStyleLocked(style string) (string, *model.CustomAIMode) {
	if i := c.customModeIndexLocked(style); i >= 0 {
		m := c.customModes[i]
		return m.Name, &m
	}
	for _, s := range model.BuiltinStyles {
		if strings.EqualFold(s, style) {
			return s, nil
		}
	}
	return model.DefaultStyle, nil
}

func (c *Container) customModeIndexLocked(name string) int {
	return slices.IndexFunc(c.customModes, func(m model.CustomAIMode) bool {
		return strings.EqualFold(m.Name, name)
	})
}

// AddCustomAIMode adds a user-defined response style. A missing field, a
// name clashing with a built-in style, or a name already taken (ignoring
// case) is rejected with a ValidationError and an error notification.
func (c *Container) AddCustomAIMode(name, instruction string) (model.CustomAIMode, error) {
	mode := model.CustomAIMode{
		ID:          c.newID(),
		Name:        strings.TrimSpace(name),
		Instruction: strings.TrimSpace(instruction),
	}

	var err error
	_ = c.update(func(b *batch) error {
		if err = mode.Validate(); err != nil {
			msg := "Please fill in both mode name and instruction."
			if mode.Name != "" && mode.Instruction != "" {
				msg = "Custom mode '" + mode.Name + "' clashes with a built-in style."
			}
			c.addNotificationLocked(b, msg, model.NotificationError)
			return nil
		}
		if c.customModeIndexLocked(mode.Name) >= 0 {
			err = &model.ValidationError{Entity: "customAiMode", Field: "name", Reason: "already exists"}
			c.addNotificationLocked(b, "Custom mode '"+mode.Name+"' already exists.", model.NotificationError)
			return nil
		}

		c.customModes = append(c.customModes, mode)
		c.persistLocked(store.FieldCustomAIModes, c.customModes)
		b.add(CustomAIModesChanged, slices.Clone(c.customModes))
		c.addNotificationLocked(b, "Custom mode '"+mode.Name+"' added!", model.NotificationSuccess)
		return nil
	})
	if err != nil {
		return model.CustomAIMode{}, err
	}
	return mode, nil
}

// RemoveCustomAIMode deletes the custom mode called name. If it was the
// selected style, the selection reverts to the default style.
func (c *Container) RemoveCustomAIMode(name string) {
	_ = c.update(func(b *batch) error {
		i := c.customModeIndexLocked(name)
		if i < 0 {
			return nil
		}
		removed := c.customModes[i]
		c.customModes = slices.Delete(c.customModes, i, i+1)
		c.persistLocked(store.FieldCustomAIModes, c.customModes)
		b.add(CustomAIModesChanged, slices.Clone(c.customModes))

		if strings.EqualFold(c.aiResponseStyle, removed.Name) {
			c.aiResponseStyle = model.DefaultStyle
			c.persistLocked(store.FieldAIResponseStyle, c.aiResponseStyle)
			b.add(AIResponseStyleChanged, c.aiResponseStyle)
			c.addNotificationLocked(b, "Deleted custom mode was active. Reverted to Normal.", model.NotificationInfo)
		}
		c.addNotificationLocked(b, "Custom mode '"+removed.Name+"' deleted!", model.NotificationSuccess)
		return nil
	})
}

// CustomAIModes returns a copy of the custom modes.
func (c *Container) CustomAIModes() []model.CustomAIMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.customModes)
}
