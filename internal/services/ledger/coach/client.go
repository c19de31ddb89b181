// Package coach asks a Gemini model for a short motivational message about a
// day's energy balance.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultBaseURL is the Generative Language API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.0-flash"

	defaultMaxOutputTokens = 96
	maxMessageRunes        = 400
	maxResponseBytes       = 1 << 20
	maxErrorBodyBytes      = 4096
)

// Generator turns a prompt into one short message.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config configures the Gemini client.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	MaxOutputTokens int
	Timeout         time.Duration
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	endpoint        string
	apiKey          string
	maxOutputTokens int
	client          *http.Client
}

// NewClient creates a client. A nil httpClient uses one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxOutputTokens := cfg.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = defaultMaxOutputTokens
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		endpoint:        baseURL + "/models/" + url.PathEscape(model) + ":generateContent",
		apiKey:          strings.TrimSpace(cfg.APIKey),
		maxOutputTokens: maxOutputTokens,
		client:          httpClient,
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt as one user turn and returns the first candidate's
// text, trimmed and capped.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("api key is required")
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{MaxOutputTokens: c.maxOutputTokens},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The key travels only in this header and is never echoed in errors.
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if err != nil {
			return "", fmt.Errorf("read generate error body: %w", err)
		}
		return "", fmt.Errorf("generate request status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	for _, candidate := range decoded.Candidates {
		var text strings.Builder
		for _, p := range candidate.Content.Parts {
			text.WriteString(p.Text)
		}
		if message := strings.TrimSpace(text.String()); message != "" {
			return truncate(message, maxMessageRunes), nil
		}
	}
	return "", fmt.Errorf("generate response has no text")
}

func truncate(message string, limit int) string {
	if utf8.RuneCountInString(message) <= limit {
		return message
	}
	return strings.TrimSpace(string([]rune(message)[:limit])) + "…"
}
