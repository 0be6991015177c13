package remote_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/remote"
)

func newHTTPStore(url string) *remote.HTTPDocumentStore {
	return remote.NewHTTPDocumentStore(url,
		remote.WithToken("secret"),
		remote.WithTimeout(2*time.Second),
		remote.WithRetries(2, time.Millisecond),
	)
}

func TestHTTPGetDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/documents/userdata/u1", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"todos":{"lastUpdated":"2024-01-01T00:00:00Z","data":[]}}`)
	}))
	defer srv.Close()

	doc, err := newHTTPStore(srv.URL).GetDocument(context.Background(), remote.UserDataID("u1"))
	require.NoError(t, err)
	assert.Contains(t, doc, "todos")
}

func TestHTTPGetMissingDocumentIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	doc, err := newHTTPStore(srv.URL).GetDocument(context.Background(), "userdata/none")
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestHTTPRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	_, err := newHTTPStore(srv.URL).GetDocument(context.Background(), "userdata/u1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newHTTPStore(srv.URL).GetDocument(context.Background(), "userdata/u1")
	require.Error(t, err)

	var se *remote.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newHTTPStore(srv.URL).SetDocument(context.Background(), "userdata/u1", nil, true)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSetDocumentMerge(t *testing.T) {
	var (
		method string
		merge  string
		body   map[string]json.RawMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		merge = r.URL.Query().Get("merge")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := newHTTPStore(srv.URL)
	fields := map[string]json.RawMessage{"budget": json.RawMessage(`{"lastUpdated":"x","data":1}`)}

	require.NoError(t, s.SetDocument(context.Background(), "userdata/u1", fields, true))
	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "true", merge)
	assert.JSONEq(t, `{"lastUpdated":"x","data":1}`, string(body["budget"]))

	require.NoError(t, s.SetDocument(context.Background(), "userdata/u1", fields, false))
	assert.Equal(t, http.MethodPut, method)
	assert.Empty(t, merge)
}
