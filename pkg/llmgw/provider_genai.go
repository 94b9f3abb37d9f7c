package llmgw

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIProvider implements Provider against Google's Gemini API, grounded on
// theRebelliousNerd-codenerd's internal/embedding/genai.go client construction
// (genai.NewClient + ClientConfig{APIKey}) and client_gemini.go's JSON-mode
// request shape.
type GenAIProvider struct {
	client *genai.Client
	model  string
}

// NewGenAIProvider constructs a provider bound to the given model, e.g.
// "gemini-2.0-flash" (the builtin config default, see pkg/config/builtin.go).
func NewGenAIProvider(ctx context.Context, apiKey, model string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai: failed to create client: %w", err)
	}
	return &GenAIProvider{client: client, model: model}, nil
}

// Generate issues a single JSON-mode generation call.
func (p *GenAIProvider) Generate(ctx context.Context, req ProviderRequest) (ProviderResponse, error) {
	temp := float32(req.Temperature)
	maxTokens := int32(req.MaxTokens)

	contents := []*genai.Content{
		genai.NewContentFromText(req.UserPrompt, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      &temp,
		MaxOutputTokens:  maxTokens,
		ResponseMIMEType: "application/json",
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("genai: generate failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return ProviderResponse{}, fmt.Errorf("genai: empty response")
	}

	text := result.Candidates[0].Content.Parts[0].Text

	usage := TokenUsage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}

	return ProviderResponse{JSONText: text, Usage: usage}, nil
}
