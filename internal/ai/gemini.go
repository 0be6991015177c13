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
	defaultGeminiModel = "gemini-2.5-flash"
	geminiBaseURL      = "https://generativelanguage.googleapis.com"
)

// Gemini generates text with the Gemini generateContent API.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	retry   retryPolicy
}

// GeminiOption configures a Gemini client.
type GeminiOption func(*Gemini)

// WithGeminiModel selects the model.
func WithGeminiModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithGeminiBaseURL points the client at another endpoint.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(g *Gemini) {
		if url != "" {
			g.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithGeminiRetry sets how often recoverable failures are retried.
func WithGeminiRetry(maxRetries int, baseDelay time.Duration) GeminiOption {
	return func(g *Gemini) {
		g.retry = retryPolicy{maxRetries: maxRetries, baseDelay: baseDelay}
	}
}

// NewGemini creates a client authenticated with apiKey.
func NewGemini(apiKey string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		apiKey:  apiKey,
		model:   defaultGeminiModel,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   defaultRetry,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate implements TextGenerator.
func (g *Gemini) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	payload := geminiRequest{
		Contents: buildGeminiContents(opts.History, prompt),
		GenerationConfig: &geminiGenerationConfig{
			MaxOutputTokens: opts.MaxTokens,
			Temperature:     opts.Temperature,
		},
	}
	if opts.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: opts.System}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &ProviderError{Provider: "gemini", Err: fmt.Errorf("marshaling request: %w", err)}
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)

	var text string
	err = g.retry.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return &ProviderError{Provider: "gemini", Err: fmt.Errorf("creating request: %w", err)}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.apiKey)

		resp, err := g.client.Do(req)
		if err != nil {
			return &ProviderError{Provider: "gemini", Err: fmt.Errorf("calling Gemini API: %w", err)}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return &ProviderError{Provider: "gemini", Err: fmt.Errorf("reading response: %w", err)}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &ProviderError{Provider: "gemini", Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(respBody)))}
		}

		var apiResp geminiResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return &ProviderError{Provider: "gemini", Err: fmt.Errorf("decoding response: %w", err)}
		}

		var sb strings.Builder
		for _, c := range apiResp.Candidates {
			for _, p := range c.Content.Parts {
				sb.WriteString(p.Text)
			}
			if sb.Len() > 0 {
				break
			}
		}
		text = strings.TrimSpace(sb.String())
		if text == "" {
			return &ProviderError{Provider: "gemini", Err: fmt.Errorf("response contained no text")}
		}
		return nil
	})
	return text, err
}

func buildGeminiContents(history []Message, prompt string) []geminiContent {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, msg := range history {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}
	return append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: prompt}}})
}
