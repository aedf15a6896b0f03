// Package llmclient implements orchestrator.LlmClient over the Anthropic
// Messages API: one call per scenario or script-batch generation, with the
// caller-supplied prompt sent as the system prompt and the JSON input
// marshaled into the single user turn.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/codeready-toolchain/eroom/pkg/orchestrator"
)

const defaultBaseURL = "https://api.anthropic.com/v1/messages"

const defaultModel = "claude-sonnet-4-5"

const anthropicVersion = "2023-06-01"

// Client implements orchestrator.LlmClient over the Anthropic Messages API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *slog.Logger
}

var _ orchestrator.LlmClient = (*Client)(nil)

// New builds a Client reading ANTHROPIC_API_KEY from the environment.
// apiKey may be empty during local development against a stub server.
func New() *Client {
	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     os.Getenv("ANTHROPIC_API_KEY"),
		model:      model,
		logger:     slog.Default(),
	}
}

// NewWithBaseURL builds a Client pointed at an arbitrary endpoint, for tests.
func NewWithBaseURL(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      defaultModel,
		logger:     slog.Default(),
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// GenerateScenario sends the scenario prompt and input, returning the raw
// JSON text of the model's response for the orchestrator to unmarshal.
func (c *Client) GenerateScenario(ctx context.Context, prompt string, input orchestrator.ScenarioRequest) (json.RawMessage, error) {
	return c.invoke(ctx, prompt, input)
}

// GenerateScripts sends the scripts prompt and input, decoding the model's
// response as a flat map of script file name (sans extension) to content.
func (c *Client) GenerateScripts(ctx context.Context, prompt string, input any) (map[string]string, error) {
	raw, err := c.invoke(ctx, prompt, input)
	if err != nil {
		return nil, err
	}
	var scripts map[string]string
	if err := json.Unmarshal(raw, &scripts); err != nil {
		return nil, fmt.Errorf("llmclient: malformed scripts response: %w", err)
	}
	return scripts, nil
}

func (c *Client) invoke(ctx context.Context, systemPrompt string, input any) (json.RawMessage, error) {
	userTurn, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("llmclient: encoding request input: %w", err)
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: 8192,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: string(userTurn)}},
	})
	if err != nil {
		return nil, fmt.Errorf("llmclient: encoding messages request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmclient: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", anthropicVersion)
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llmclient: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("LLM API returned non-200", "status", resp.StatusCode, "body", string(data))
		return nil, fmt.Errorf("llmclient: API returned HTTP %d", resp.StatusCode)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("llmclient: decoding response envelope: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("llmclient: API error: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return nil, nil
	}

	return json.RawMessage(parsed.Content[0].Text), nil
}
