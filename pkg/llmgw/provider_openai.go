package llmgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIProvider implements Provider against any OpenAI-chat-completions
// compatible HTTP endpoint, grounded on the teacher's plain net/http client
// construction style seen in internal/perception/client_gemini.go (a raw
// http.Client with an explicit Timeout, no generated SDK).
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider constructs a provider against baseURL (e.g.
// "https://api.openai.com/v1" or a self-hosted gateway implementing the
// same wire format).
func NewOpenAIProvider(baseURL, apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: CallBudget,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate issues a single strict-JSON-mode chat completion request.
func (p *OpenAIProvider) Generate(ctx context.Context, req ProviderRequest) (ProviderResponse, error) {
	body := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	body.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(body)
	if err != nil {
		return ProviderResponse{}, &PermanentError{Err: fmt.Errorf("openai: marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return ProviderResponse{}, &PermanentError{Err: fmt.Errorf("openai: build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("openai: request failed after %v: %w", time.Since(start), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("openai: read response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return ProviderResponse{}, &PermanentError{Err: fmt.Errorf("openai: client error %d: %s", resp.StatusCode, respBody)}
	}
	if resp.StatusCode >= 500 {
		return ProviderResponse{}, fmt.Errorf("openai: server error %d: %s", resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return ProviderResponse{}, &PermanentError{Err: fmt.Errorf("openai: malformed envelope: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return ProviderResponse{}, &PermanentError{Err: fmt.Errorf("openai: no choices returned")}
	}

	return ProviderResponse{
		JSONText: parsed.Choices[0].Message.Content,
		Usage: TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}
