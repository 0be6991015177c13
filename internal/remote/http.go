package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

// HTTPDocumentStore talks to a JSON document service:
//
//	GET   /documents/{id}             -> {"field": value, ...} or 404
//	PATCH /documents/{id}?merge=true  <- {"field": value, ...}
//	PUT   /documents/{id}             <- {"field": value, ...}
//
// Transport failures and 5xx/429 responses are retried with exponential
// backoff; any other non-2xx status fails immediately.
type HTTPDocumentStore struct {
	client     *resty.Client
	maxRetries int
	baseDelay  time.Duration
}

// HTTPOption configures an HTTPDocumentStore.
type HTTPOption func(*HTTPDocumentStore)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) HTTPOption {
	return func(h *HTTPDocumentStore) {
		if token != "" {
			h.client.SetAuthToken(token)
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPDocumentStore) {
		if d > 0 {
			h.client.SetTimeout(d)
		}
	}
}

// WithRetries bounds how many times a recoverable failure is retried and
// the delay before the first retry.
func WithRetries(max int, baseDelay time.Duration) HTTPOption {
	return func(h *HTTPDocumentStore) {
		if max >= 0 {
			h.maxRetries = max
		}
		if baseDelay > 0 {
			h.baseDelay = baseDelay
		}
	}
}

// NewHTTPDocumentStore creates a client for the service at baseURL.
func NewHTTPDocumentStore(baseURL string, opts ...HTTPOption) *HTTPDocumentStore {
	h := &HTTPDocumentStore{
		client: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetTimeout(15 * time.Second),
		maxRetries: 3,
		baseDelay:  250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetDocument implements DocumentStore.
func (h *HTTPDocumentStore) GetDocument(ctx context.Context, id string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage

	err := h.retry(ctx, func() error {
		resp, err := h.client.R().
			SetContext(ctx).
			SetPathParam("id", id).
			Get("/documents/{id}")
		if err != nil {
			return err
		}

		if resp.StatusCode() == http.StatusNotFound {
			fields = map[string]json.RawMessage{}
			return nil
		}
		if err := classify(resp); err != nil {
			return err
		}

		fields = map[string]json.RawMessage{}
		if len(resp.Body()) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Body(), &fields); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding document: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// SetDocument implements DocumentStore.
func (h *HTTPDocumentStore) SetDocument(ctx context.Context, id string, fields map[string]json.RawMessage, merge bool) error {
	return h.retry(ctx, func() error {
		req := h.client.R().
			SetContext(ctx).
			SetPathParam("id", id).
			SetBody(fields)

		var (
			resp *resty.Response
			err  error
		)
		if merge {
			resp, err = req.SetQueryParam("merge", strconv.FormatBool(true)).Patch("/documents/{id}")
		} else {
			resp, err = req.Put("/documents/{id}")
		}
		if err != nil {
			return err
		}
		return classify(resp)
	})
}

func (h *HTTPDocumentStore) retry(ctx context.Context, op backoff.Operation) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = h.baseDelay
	exp.Multiplier = 2
	exp.MaxInterval = 8 * h.baseDelay
	exp.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(h.maxRetries)), ctx)
	return backoff.Retry(op, policy)
}

// StatusError is a non-2xx response from the document service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Recoverable reports whether the request may succeed if repeated.
func (e *StatusError) Recoverable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

func classify(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	se := &StatusError{Code: resp.StatusCode(), Body: resp.String()}
	if se.Recoverable() {
		return se
	}
	return backoff.Permanent(se)
}
