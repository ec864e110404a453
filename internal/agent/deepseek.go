package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Defaults for the DeepSeek engine. The endpoint and model can be
// overridden via DEEPSEEK_API_ENDPOINT and DEEPSEEK_MODEL.
const (
	DefaultDeepSeekModel    = "deepseek-chat"
	DefaultDeepSeekEndpoint = "https://api.deepseek.com/v1/chat/completions"
	DefaultDeepSeekTimeout  = 60 * time.Second
	DefaultDeepSeekMaxTok   = 512
)

// DeepSeekConfig holds configuration for the DeepSeek engine.
type DeepSeekConfig struct {
	APIKey    string
	Model     string        // Default: deepseek-chat
	Endpoint  string        // Default: https://api.deepseek.com/v1/chat/completions
	Timeout   time.Duration // Default: 60s
	MaxTokens int           // Default: 512
}

// DeepSeekEngine asks a DeepSeek model (OpenAI-compatible chat completions
// API) for the next negotiation move.
type DeepSeekEngine struct {
	apiKey     string
	model      string
	endpoint   string
	maxTokens  int
	httpClient *http.Client
}

func NewDeepSeekEngine(config DeepSeekConfig) *DeepSeekEngine {
	if config.Model == "" {
		if env := os.Getenv("DEEPSEEK_MODEL"); env != "" {
			config.Model = env
		} else {
			config.Model = DefaultDeepSeekModel
		}
	}
	if config.Endpoint == "" {
		if env := os.Getenv("DEEPSEEK_API_ENDPOINT"); env != "" {
			config.Endpoint = env
		} else {
			config.Endpoint = DefaultDeepSeekEndpoint
		}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultDeepSeekTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultDeepSeekMaxTok
	}

	return &DeepSeekEngine{
		apiKey:    config.APIKey,
		model:     config.Model,
		endpoint:  config.Endpoint,
		maxTokens: config.MaxTokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate sends the prompts to DeepSeek and parses the JSON decision out
// of the completion. Model output is untrusted, so the result always goes
// through sanitize.
func (e *DeepSeekEngine) Generate(ctx context.Context, system, user string) (*Decision, error) {
	req := &chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:      e.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("api error: %s (type %s)", resp.Error.Message, resp.Error.Type)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d)", httpResp.StatusCode)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	return parseDecision(resp.Choices[0].Message.Content)
}

// parseDecision extracts a Decision from model output. Some models wrap
// JSON in markdown fences even when asked not to, so those are stripped.
func parseDecision(content string) (*Decision, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var d Decision
	if err := json.Unmarshal([]byte(content), &d); err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}
	return sanitize(&d), nil
}
