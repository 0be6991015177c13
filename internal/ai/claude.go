package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultClaudeModel = "claude-sonnet-4-5-20250929"
	defaultMaxTokens   = 1024
	claudeBaseURL      = "https://api.anthropic.com"
	claudeAPIVersion   = "2023-06-01"
)

// Claude generates text with the Anthropic Messages API.
type Claude struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	retry   retryPolicy
}

// ClaudeOption configures a Claude client.
type ClaudeOption func(*Claude)

// WithClaudeModel selects the model.
func WithClaudeModel(model string) ClaudeOption {
	return func(c *Claude) {
		if model != "" {
			c.model = model
		}
	}
}

// WithClaudeBaseURL points the client at another endpoint.
func WithClaudeBaseURL(url string) ClaudeOption {
	return func(c *Claude) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithClaudeRetry sets how often recoverable failures are retried.
func WithClaudeRetry(maxRetries int, baseDelay time.Duration) ClaudeOption {
	return func(c *Claude) {
		c.retry = retryPolicy{maxRetries: maxRetries, baseDelay: baseDelay}
	}
}

// NewClaude creates a client authenticated with apiKey.
func NewClaude(apiKey string, opts ...ClaudeOption) *Claude {
	c := &Claude{
		apiKey:  apiKey,
		model:   defaultClaudeModel,
		baseURL: claudeBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		retry:   defaultRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate implements TextGenerator.
func (c *Claude) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	var text string
	err := c.retry.do(ctx, func() error {
		resp, err := c.callAPI(ctx, prompt, opts)
		if err != nil {
			return err
		}

		var parts []string
		for _, block := range resp.Content {
			if block.Type == "text" {
				parts = append(parts, block.Text)
			}
		}
		text = strings.TrimSpace(strings.Join(parts, ""))
		if text == "" {
			return &ProviderError{Provider: "claude", Err: fmt.Errorf("response contained no text")}
		}
		return nil
	})
	return text, err
}

// callAPI makes a single request to the Messages API.
func (c *Claude) callAPI(ctx context.Context, prompt string, opts Options) (*claudeResponse, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	reqBody := claudeRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      opts.System,
		Temperature: opts.Temperature,
		Messages:    buildClaudeMessages(opts.History, prompt),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ProviderError{Provider: "claude", Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, &ProviderError{Provider: "claude", Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", claudeAPIVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "claude", Err: fmt.Errorf("calling Claude API: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "claude", Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr claudeErrorResponse
		msg := string(respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &ProviderError{Provider: "claude", Status: resp.StatusCode, Err: fmt.Errorf("%s", msg)}
	}

	var result claudeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ProviderError{Provider: "claude", Err: fmt.Errorf("decoding response: %w", err)}
	}
	return &result, nil
}

// buildClaudeMessages converts history plus the new prompt into API
// messages. The API requires the first message to come from the user.
func buildClaudeMessages(history []Message, prompt string) []claudeMessage {
	messages := make([]claudeMessage, 0, len(history)+1)
	for _, msg := range history {
		if len(messages) == 0 && msg.Role != RoleUser {
			continue
		}
		messages = append(messages, claudeMessage{
			Role:    string(msg.Role),
			Content: []claudeContentBlock{{Type: "text", Text: msg.Content}},
		})
	}
	return append(messages, claudeMessage{
		Role:    string(RoleUser),
		Content: []claudeContentBlock{{Type: "text", Text: prompt}},
	})
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string               `json:"role"`
	Content []claudeContentBlock `json:"content"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type claudeResponse struct {
	ID         string               `json:"id"`
	Content    []claudeContentBlock `json:"content"`
	StopReason string               `json:"stop_reason"`
}

type claudeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
