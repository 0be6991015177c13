// Package app builds the object graph of the client from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/ai"
	"github.com/nhle/theora/internal/auth"
	"github.com/nhle/theora/internal/credential"
	"github.com/nhle/theora/internal/events"
	"github.com/nhle/theora/internal/logging"
	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/notify"
	"github.com/nhle/theora/internal/remote"
	"github.com/nhle/theora/internal/state"
	"github.com/nhle/theora/internal/store"
	"github.com/nhle/theora/internal/ui/dashboard"
)

// renderWidth is the word-wrap width of rendered AI messages.
const renderWidth = 72

// Options override how the graph is built. Zero values use the defaults.
type Options struct {
	// ConfigPath is the YAML config file; empty uses THEORA_CONFIG or the
	// default location.
	ConfigPath string

	// Config skips loading from disk when set.
	Config *model.AppConfig

	// Env supplies secrets; nil reads THEORA_* variables.
	Env *model.Env

	// Credentials replaces the OS keyring.
	Credentials *credential.Store

	// LogWriter receives log output; nil means stderr.
	LogWriter io.Writer
}

// App holds every long-lived component.
type App struct {
	Config      *model.AppConfig
	Log         zerolog.Logger
	Bus         *events.Bus
	Local       *store.SQLiteStore
	Writer      *remote.Writer
	Credentials *credential.Store
	Auth        *auth.LocalProvider
	Profiles    *auth.ProfileStore
	State       *state.Container
	Router      *ai.Router

	// Insights, Chat and Notifier are nil when no AI provider is configured.
	Insights *ai.Insights
	Chat     *ai.Chat
	Notifier *notify.Service

	unbind func()
}

// New builds the graph and signs in whoever the identity provider reports.
func New(ctx context.Context, opts Options) (*App, error) {
	env := opts.Env
	if env == nil {
		var err error
		if env, err = model.LoadEnv(); err != nil {
			return nil, err
		}
	}

	cfg := opts.Config
	if cfg == nil {
		path := opts.ConfigPath
		if path == "" {
			path = env.ConfigPath
		}
		if path == "" {
			path = model.DefaultConfigPath()
		}
		var err error
		if cfg, err = model.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	env.Override(cfg)

	a := &App{
		Config: cfg,
		Log:    logging.New(opts.LogWriter, cfg.Log.Level, cfg.Log.Pretty),
	}
	a.Bus = events.NewBus(a.Log)

	local, err := store.NewSQLiteStore(cfg.Storage.Path, a.Log)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	a.Local = local

	a.Credentials = opts.Credentials
	if a.Credentials == nil {
		dir := filepath.Join(filepath.Dir(model.DefaultConfigPath()), "credentials")
		if a.Credentials, err = credential.Open(dir); err != nil {
			local.Close()
			return nil, err
		}
	}

	adapter := remote.NewAdapter(a.documentStore(env), a.Log)
	var writerOpts []remote.WriterOption
	if t := cfg.Remote.Timeout(); t > 0 {
		writerOpts = append(writerOpts, remote.WithJobTimeout(t*time.Duration(cfg.Remote.MaxRetries+1)))
	}
	a.Writer = remote.NewWriter(adapter, a.Log, writerOpts...)
	a.Profiles = auth.NewProfileStore(local, adapter, a.Log)

	stateOpts := []state.Option{
		state.WithRemote(a.Writer),
		state.WithProfiles(a.Profiles),
		state.WithLogger(a.Log),
		state.WithCurrency(cfg.Display.CurrencySymbol),
	}
	if r, err := state.NewTerminalRenderer(renderWidth); err == nil {
		stateOpts = append(stateOpts, state.WithRenderer(r))
	} else {
		a.Log.Warn().Err(err).Msg("markdown renderer unavailable, storing plain text")
	}
	a.State = state.New(a.Bus, local, stateOpts...)

	a.buildAI(env)

	a.Auth = auth.NewLocalProvider(a.Credentials, a.Log)
	if a.unbind, err = auth.Bind(ctx, a.Auth, a.State, a.Log); err != nil {
		a.Close()
		return nil, fmt.Errorf("restoring session: %w", err)
	}

	a.Log.Debug().
		Str("storage", cfg.Storage.Path).
		Bool("remote", adapter.Available()).
		Strs("providers", a.Router.Providers()).
		Msg("application ready")
	return a, nil
}

// documentStore returns the configured remote store, or nil for
// local-only operation.
func (a *App) documentStore(env *model.Env) remote.DocumentStore {
	if a.Config.Remote.BaseURL == "" {
		return nil
	}
	token := env.RemoteToken
	if token == "" {
		token = a.Credentials.Lookup(credential.KeyRemoteToken)
	}

	opts := []remote.HTTPOption{
		remote.WithRetries(a.Config.Remote.MaxRetries, 250*time.Millisecond),
	}
	if t := a.Config.Remote.Timeout(); t > 0 {
		opts = append(opts, remote.WithTimeout(t))
	}
	if token != "" {
		opts = append(opts, remote.WithToken(token))
	}
	return remote.NewHTTPDocumentStore(a.Config.Remote.BaseURL, opts...)
}

// buildAI registers every provider with a key and, if there is at least
// one, the services that consume them.
func (a *App) buildAI(env *model.Env) {
	a.Router = ai.NewRouter(a.State.AIProvider, a.Log)

	claudeKey := env.AnthropicAPIKey
	if claudeKey == "" {
		claudeKey = a.Credentials.Lookup(credential.KeyAnthropicAPIKey)
	}
	if claudeKey != "" {
		a.Router.Register(model.ProviderClaude, ai.NewClaude(claudeKey, ai.WithClaudeModel(a.Config.AI.ClaudeModel)))
	}

	geminiKey := env.GeminiAPIKey
	if geminiKey == "" {
		geminiKey = a.Credentials.Lookup(credential.KeyGeminiAPIKey)
	}
	if geminiKey != "" {
		a.Router.Register(model.ProviderGemini, ai.NewGemini(geminiKey, ai.WithGeminiModel(a.Config.AI.GeminiModel)))
	}

	if len(a.Router.Providers()) == 0 {
		a.Log.Info().Msg("no AI provider key found, AI features disabled")
		return
	}

	a.Insights = ai.NewInsights(a.State, a.Router, a.Log)
	a.Chat = ai.NewChat(a.State, a.Router, a.Log).WithMaxTokens(a.Config.AI.MaxTokens)
	composer := ai.NewComposer(a.Router, a.State.Currency(), a.Log)
	a.Notifier = notify.New(a.State, composer, a.Config.Notifications.Interval(), a.Log)
}

// RunDashboard starts background notifications and blocks in the
// terminal dashboard until the user quits.
func (a *App) RunDashboard(ctx context.Context) error {
	if a.Notifier != nil {
		a.Notifier.Start(ctx)
		defer a.Notifier.Stop()
	}

	deps := dashboard.Deps{
		State:    a.State,
		Bus:      a.Bus,
		Insights: a.Insights,
		Chat:     a.Chat,
	}
	if a.Notifier != nil {
		deps.Notifier = a.Notifier
	}
	m := dashboard.New(deps)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close flushes pending remote writes and releases resources. It is safe
// to call on a partially built App.
func (a *App) Close() error {
	if a.unbind != nil {
		a.unbind()
	}
	if a.Notifier != nil {
		a.Notifier.Stop()
	}
	if a.Writer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.Writer.Flush(ctx); err != nil {
			a.Log.Warn().Err(err).Msg("flushing remote writes")
		}
		cancel()
		a.Writer.Close()
	}
	if a.Local != nil {
		return a.Local.Close()
	}
	return nil
}
