package app_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/app"
	"github.com/nhle/theora/internal/credential"
	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/store"
)

func testConfig() *model.AppConfig {
	cfg := model.DefaultAppConfig()
	cfg.Storage.Path = store.MemoryPath
	cfg.Remote.MaxRetries = 0
	return cfg
}

func build(t *testing.T, cfg *model.AppConfig, env *model.Env, creds *credential.Store) *app.App {
	t.Helper()
	if creds == nil {
		creds = credential.NewStore(keyring.NewArrayKeyring(nil))
	}
	a, err := app.New(context.Background(), app.Options{
		Config:      cfg,
		Env:         env,
		Credentials: creds,
		LogWriter:   io.Discard,
	})
	require.NoError(t, err)
	return a
}

func TestNew_LocalOnlyWithoutAI(t *testing.T) {
	a := build(t, testConfig(), &model.Env{}, nil)
	defer a.Close()

	assert.Nil(t, a.State.User())
	assert.Empty(t, a.Router.Providers())
	assert.Nil(t, a.Insights)
	assert.Nil(t, a.Chat)
	assert.Nil(t, a.Notifier)

	require.NoError(t, a.Auth.SignIn(model.Identity{ID: "u1", DisplayName: "Ada"}))
	require.NotNil(t, a.State.User())
	assert.Equal(t, "Ada", a.State.UserName())
}

func TestNew_ProvidersFromEnvAndKeyring(t *testing.T) {
	creds := credential.NewStore(keyring.NewArrayKeyring(nil))
	require.NoError(t, creds.Set(credential.KeyGeminiAPIKey, "g-key"))

	a := build(t, testConfig(), &model.Env{AnthropicAPIKey: "c-key"}, creds)
	defer a.Close()

	assert.Equal(t, []string{model.ProviderClaude, model.ProviderGemini}, a.Router.Providers())
	assert.NotNil(t, a.Insights)
	assert.NotNil(t, a.Chat)
	assert.NotNil(t, a.Notifier)
}

func TestNew_RestoresSessionFromKeyring(t *testing.T) {
	creds := credential.NewStore(keyring.NewArrayKeyring(nil))
	first := build(t, testConfig(), &model.Env{}, creds)
	require.NoError(t, first.Auth.SignIn(model.Identity{ID: "u7"}))
	require.NoError(t, first.Close())

	second := build(t, testConfig(), &model.Env{}, creds)
	defer second.Close()
	require.NotNil(t, second.State.User())
	assert.Equal(t, "u7", second.State.User().ID)
}

func TestNew_MirrorsToRemote(t *testing.T) {
	var (
		mu      sync.Mutex
		patched []string
		auth    []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		if r.Method == http.MethodPatch {
			patched = append(patched, r.URL.Path)
		}
		mu.Unlock()

		if r.Method == http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Remote.BaseURL = srv.URL
	a := build(t, cfg, &model.Env{RemoteToken: "tok"}, nil)

	require.NoError(t, a.Auth.SignIn(model.Identity{ID: "u1"}))
	_, err := a.State.AddTodo(model.Todo{Title: "Pay rent"})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, patched, "/documents/userdata/u1")
	assert.Contains(t, auth, "Bearer tok")
}
