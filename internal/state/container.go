// Package state holds the signed-in user's authoritative in-memory model.
//
// Every mutation follows the same path: update memory under the lock, write
// the field envelope to the local store, queue the remote write, clear the
// AI cache slots derived from the field, release the lock, then emit events.
// Emitted payloads are copies, so observers may hold on to them and may call
// back into the container.
package state

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/events"
	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/reconcile"
	"github.com/nhle/theora/internal/remote"
	"github.com/nhle/theora/internal/store"
)

// ProfileStore looks up the extended profile of a user at sign-in.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
}

// Container owns the in-memory copy of every per-user entity.
type Container struct {
	mu sync.RWMutex

	bus      *events.Bus
	local    store.Store
	writer   *remote.Writer
	engine   *reconcile.Engine
	profiles ProfileStore
	render   Renderer
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
	currency string

	user     *model.Identity
	userName string

	todos        []model.Todo
	events       []model.Event
	transactions []model.Transaction
	budget       model.Budget
	settings     model.Settings

	aiMessages model.AIMessages
	aiVersions map[model.AISlot]uint64

	chatSessions  []model.ChatSession
	currentChatID string

	aiProvider      string
	aiResponseStyle string
	customModes     []model.CustomAIMode
	notifications   []model.Notification

	// writes counts persisted changes per field; Init keeps a field whose
	// count moved while it was reconciling.
	writes map[string]uint64
}

// Option configures a Container.
type Option func(*Container)

// WithRemote mirrors every persisted field through w.
func WithRemote(w *remote.Writer) Option {
	return func(c *Container) { c.writer = w }
}

// WithEngine sets the reconciliation engine used by Init.
func WithEngine(e *reconcile.Engine) Option {
	return func(c *Container) { c.engine = e }
}

// WithProfiles sets where extended user profiles are looked up.
func WithProfiles(p ProfileStore) Option {
	return func(c *Container) { c.profiles = p }
}

// WithRenderer sets how AI markdown is rendered for display.
func WithRenderer(r Renderer) Option {
	return func(c *Container) { c.render = r }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Container) { c.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Container) { c.now = now }
}

// WithIDGenerator overrides how entity ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(c *Container) { c.newID = gen }
}

// WithCurrency sets the symbol used in budget summaries.
func WithCurrency(symbol string) Option {
	return func(c *Container) { c.currency = symbol }
}

// DefaultCurrency prefixes amounts in budget summaries.
const DefaultCurrency = "₦"

// New creates a container with default collections. The last signed-in
// identity, if any, is restored from local; call Init to load its data.
func New(bus *events.Bus, local store.Store, opts ...Option) *Container {
	c := &Container{
		bus:      bus,
		local:    local,
		render:   PlainRenderer,
		log:      zerolog.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,
		currency: DefaultCurrency,
		writes:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "state").Logger()

	if c.engine == nil {
		adapter := remote.NewAdapter(nil, c.log)
		if c.writer != nil {
			adapter = c.writer.Adapter()
		}
		c.engine = reconcile.NewEngine(local, adapter, c.log)
	}

	c.resetLocked()

	var saved model.Identity
	if local.ReadInto(store.KeyUser, &saved) && saved.ID != "" {
		c.user = &saved
		c.userName = saved.Name()
	}
	return c
}

// resetLocked restores every per-user field to its default.
func (c *Container) resetLocked() {
	c.user = nil
	c.userName = model.DefaultUserName
	c.todos = []model.Todo{}
	c.events = []model.Event{}
	c.transactions = []model.Transaction{}
	c.budget = model.DefaultBudget()
	c.settings = model.DefaultSettings()
	c.aiMessages = model.AIMessages{}
	c.bumpAllVersionsLocked()
	c.chatSessions = []model.ChatSession{}
	c.currentChatID = ""
	c.aiProvider = model.DefaultProvider
	c.aiResponseStyle = model.DefaultStyle
	c.customModes = []model.CustomAIMode{}
	c.notifications = []model.Notification{}
}

func (c *Container) bumpAllVersionsLocked() {
	if c.aiVersions == nil {
		c.aiVersions = make(map[model.AISlot]uint64, len(model.AISlots))
	}
	for _, s := range model.AISlots {
		c.aiVersions[s]++
	}
}

// update runs fn under the write lock and emits the collected events once
// the lock is released. Nothing is emitted when fn fails.
func (c *Container) update(fn func(b *batch) error) error {
	var b batch

	c.mu.Lock()
	err := fn(&b)
	c.mu.Unlock()

	for _, e := range b.emissions {
		c.bus.Emit(e.name, e.payload)
	}
	return err
}

// persistLocked writes field for the signed-in user locally and queues the
// remote write. Signed out, the change stays in memory.
func (c *Container) persistLocked(field string, data any) {
	if c.user == nil {
		c.log.Warn().Str("field", field).Msg("not signed in, change kept in memory only")
		return
	}
	c.writes[field]++

	env, err := store.NewEnvelope(data, c.now())
	if err != nil {
		c.log.Error().Err(err).Str("field", field).Msg("encoding field")
		return
	}
	// Local write failures are logged by the store; memory stays authoritative.
	_ = c.local.Write(store.UserKey(c.user.ID, field), env)
	if c.writer != nil {
		c.writer.Enqueue(c.user.ID, field, env)
	}
}

// SetUser signs id in, or signs out when id is nil. Sign-in merges the stored
// profile, persists the identity, emits userChanged and loads the user's
// data via Init. Sign-out resets every per-user field at once and emits a
// single userChanged(nil) after the reset.
func (c *Container) SetUser(ctx context.Context, id *model.Identity) error {
	if id == nil || id.ID == "" {
		c.signOut()
		return nil
	}

	var profile *model.Profile
	if c.profiles != nil {
		p, err := c.profiles.Get(ctx, id.ID)
		if err != nil {
			c.log.Warn().Err(err).Str("user", id.ID).Msg("profile lookup failed")
		}
		profile = p
	}
	merged := id.Merge(profile)

	_ = c.update(func(b *batch) error {
		if c.user != nil && c.user.ID != merged.ID {
			c.resetLocked()
		}
		c.user = &merged
		c.userName = merged.Name()
		_ = c.local.Write(store.KeyUser, merged)

		u := merged
		b.add(UserChanged, &u)
		return nil
	})

	return c.Init(ctx)
}

func (c *Container) signOut() {
	_ = c.update(func(b *batch) error {
		prev := c.user
		c.resetLocked()
		_ = c.local.Remove(store.KeyUser)
		if prev != nil {
			c.log.Info().Str("user", prev.ID).Msg("signed out")
		}
		b.add(UserChanged, (*model.Identity)(nil))
		return nil
	})
}

// Init reconciles every synchronized field of the signed-in user, replaces
// the in-memory collections with the result and emits stateLoaded. Without
// a signed-in user it does nothing.
func (c *Container) Init(ctx context.Context) error {
	c.mu.RLock()
	if c.user == nil {
		c.mu.RUnlock()
		c.log.Debug().Msg("no user, skipping data initialization")
		return nil
	}
	uid := c.user.ID
	seen := maps.Clone(c.writes)
	c.mu.RUnlock()

	res := c.engine.Reconcile(ctx, uid, store.SyncedFields, validField)
	loaded := c.decode(res)

	return c.update(func(b *batch) error {
		if c.user == nil || c.user.ID != uid {
			// Signed out or switched user while reconciling.
			return nil
		}

		// A field written during reconciliation is newer than what was read.
		fresh := func(field string) bool { return c.writes[field] == seen[field] }
		if fresh(store.FieldTodos) {
			c.todos = loaded.todos
		}
		if fresh(store.FieldEvents) {
			c.events = loaded.events
		}
		if fresh(store.FieldTransactions) {
			c.transactions = loaded.transactions
		}
		if fresh(store.FieldBudget) {
			c.budget = loaded.budget
		}
		if fresh(store.FieldSettings) {
			c.settings = loaded.settings
		}
		if fresh(store.FieldAIMessages) {
			c.aiMessages = loaded.aiMessages
			c.bumpAllVersionsLocked()
		}
		if fresh(store.FieldChatSessions) {
			c.chatSessions = loaded.chatSessions
		}
		if fresh(store.FieldCurrentChatSessionID) {
			c.currentChatID = loaded.currentChatID
		}
		if c.sessionIndexLocked(c.currentChatID) < 0 {
			c.currentChatID = ""
			if len(c.chatSessions) > 0 {
				c.currentChatID = c.chatSessions[0].ID
			}
		}
		if fresh(store.FieldAIProvider) {
			c.aiProvider = loaded.aiProvider
		}
		if fresh(store.FieldAIResponseStyle) {
			c.aiResponseStyle = loaded.aiResponseStyle
		}
		if fresh(store.FieldCustomAIModes) {
			c.customModes = loaded.customModes
		}
		// Read under the lock so notifications added meanwhile are kept.
		c.notifications = store.Read(c.local, store.NotificationsKey(uid), []model.Notification{})

		c.log.Info().Str("user", uid).Msg("user data initialized")
		b.add(StateLoaded, c.snapshotLocked())
		return nil
	})
}

type loadedFields struct {
	todos           []model.Todo
	events          []model.Event
	transactions    []model.Transaction
	budget          model.Budget
	settings        model.Settings
	aiMessages      model.AIMessages
	chatSessions    []model.ChatSession
	currentChatID   string
	aiProvider      string
	aiResponseStyle string
	customModes     []model.CustomAIMode
}

// decode applies field defaults for anything absent or undecodable.
func (c *Container) decode(res reconcile.Result) loadedFields {
	l := loadedFields{
		todos:        orEmpty(decodeField(c, res, store.FieldTodos, []model.Todo{})),
		events:       orEmpty(decodeField(c, res, store.FieldEvents, []model.Event{})),
		transactions: orEmpty(decodeField(c, res, store.FieldTransactions, []model.Transaction{})),
		budget:       decodeField(c, res, store.FieldBudget, model.DefaultBudget()),
		settings:     decodeField(c, res, store.FieldSettings, model.DefaultSettings()),
		aiMessages:   decodeField(c, res, store.FieldAIMessages, model.AIMessages{}),
		chatSessions: orEmpty(decodeField(c, res, store.FieldChatSessions, []model.ChatSession{})),
		customModes:  orEmpty(decodeField(c, res, store.FieldCustomAIModes, []model.CustomAIMode{})),
	}

	if current := decodeField[*string](c, res, store.FieldCurrentChatSessionID, nil); current != nil {
		l.currentChatID = *current
	}

	l.aiProvider = decodeField(c, res, store.FieldAIProvider, model.DefaultProvider)
	if !isProvider(l.aiProvider) {
		l.aiProvider = model.DefaultProvider
	}
	l.aiResponseStyle = decodeField(c, res, store.FieldAIResponseStyle, model.DefaultStyle)
	if l.aiResponseStyle == "" {
		l.aiResponseStyle = model.DefaultStyle
	}
	return l
}

// validField reports whether env decodes into the Go type of field.
func validField(field string, env store.Envelope) bool {
	switch field {
	case store.FieldTodos:
		return decodes[[]model.Todo](env)
	case store.FieldEvents:
		return decodes[[]model.Event](env)
	case store.FieldTransactions:
		return decodes[[]model.Transaction](env)
	case store.FieldBudget:
		return decodes[model.Budget](env)
	case store.FieldSettings:
		return decodes[model.Settings](env)
	case store.FieldAIMessages:
		return decodes[model.AIMessages](env)
	case store.FieldChatSessions:
		return decodes[[]model.ChatSession](env)
	case store.FieldCurrentChatSessionID:
		return decodes[*string](env)
	case store.FieldAIProvider, store.FieldAIResponseStyle:
		return decodes[string](env)
	case store.FieldCustomAIModes:
		return decodes[[]model.CustomAIMode](env)
	}
	return reconcile.ValidJSON(field, env)
}

func decodes[T any](env store.Envelope) bool {
	var v T
	return env.Decode(&v) == nil
}

func decodeField[T any](c *Container, res reconcile.Result, field string, def T) T {
	if _, ok := res.Fields[field]; !ok {
		return def
	}
	var v T
	if !res.Decode(field, &v) {
		c.log.Warn().Str("field", field).Msg("undecodable field, using default")
		return def
	}
	return v
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func isProvider(name string) bool {
	for _, p := range model.Providers {
		if p == name {
			return true
		}
	}
	return false
}

// User returns a copy of the signed-in identity, or nil.
func (c *Container) User() *model.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// UserName returns the display name of the signed-in user.
func (c *Container) UserName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userName
}
