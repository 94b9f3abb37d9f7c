// Package llmgw implements the LLM Gateway (§4.E): a single structured-JSON
// call contract in front of swappable provider clients, with schema
// validation, one-retry repair-prompt on parse failure, and jittered
// exponential backoff on transient network errors.
package llmgw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// ErrInvalidOutput is returned when the provider's JSON still fails to parse
// or validate after the single repair-prompt retry (§4.E, §7 taxonomy).
var ErrInvalidOutput = errors.New("llmgw: llm_invalid_output")

// ErrTimeout is returned when the call's time budget is exhausted (§4.E).
var ErrTimeout = errors.New("llmgw: llm_timeout")

// TokenUsage reports input/output token counts for one completed call
// (§9 Open Questions: both directions are counted and charged together).
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total is the combined token count charged to the Quota Gate (§4.M step 4).
func (t TokenUsage) Total() int { return t.InputTokens + t.OutputTokens }

// Provider is a single concrete LLM backend (Gemini via google.golang.org/genai,
// or a plain OpenAI-compatible HTTP endpoint). It returns raw JSON text plus
// token usage; the Gateway owns retry/backoff/validation on top of it.
type Provider interface {
	Generate(ctx context.Context, req ProviderRequest) (ProviderResponse, error)
}

// ProviderRequest is what the Gateway hands to a Provider for one attempt.
type ProviderRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// ProviderResponse is a single provider attempt's raw result.
type ProviderResponse struct {
	JSONText string
	Usage    TokenUsage
}

// CallBudget is the total wall-clock budget for one Call, including all
// retries (§4.E "30s total budget/call").
const CallBudget = 30 * time.Second

// MaxAttempts bounds the number of transient-error retries (§4.E "up to 3 attempts").
const MaxAttempts = 3

const (
	backoffBase = 200 * time.Millisecond
	backoffMax  = 4 * time.Second
)

// Gateway wraps a Provider with the shared retry/validation contract.
type Gateway struct {
	provider Provider
	logger   *slog.Logger
}

// New constructs a Gateway over the given provider.
func New(provider Provider, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{provider: provider, logger: logger}
}

// Call issues a structured JSON-mode request and unmarshals the result into
// out (a pointer to the caller's schema type). On a JSON parse failure it
// retries exactly once with a repair prompt that echoes the parse error
// (§4.E); on a transient transport error it retries with jittered
// exponential backoff up to MaxAttempts, bounded by CallBudget overall.
func (g *Gateway) Call(ctx context.Context, systemPrompt, userPrompt string, out any, temperature float64, maxTokens int) (TokenUsage, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, CallBudget)
	defer cancel()

	req := ProviderRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
	}

	resp, usage, err := g.callWithBackoff(ctx, req)
	if err != nil {
		return TokenUsage{}, 0, err
	}

	if parseErr := json.Unmarshal([]byte(resp.JSONText), out); parseErr != nil {
		g.logger.Warn("llm output failed to parse, retrying once with repair prompt", "error", parseErr)
		repaired := req
		repaired.UserPrompt = repairPrompt(userPrompt, resp.JSONText, parseErr)

		resp2, usage2, err2 := g.callWithBackoff(ctx, repaired)
		if err2 != nil {
			return usage, 0, err2
		}
		if parseErr2 := json.Unmarshal([]byte(resp2.JSONText), out); parseErr2 != nil {
			return TokenUsage{
				InputTokens:  usage.InputTokens + usage2.InputTokens,
				OutputTokens: usage.OutputTokens + usage2.OutputTokens,
			}, 0, fmt.Errorf("%w: %v", ErrInvalidOutput, parseErr2)
		}
		usage.InputTokens += usage2.InputTokens
		usage.OutputTokens += usage2.OutputTokens
	}

	return usage, estimateCost(usage), nil
}

// callWithBackoff retries transient provider errors with jittered
// exponential backoff, bounded by ctx's remaining CallBudget.
func (g *Gateway) callWithBackoff(ctx context.Context, req ProviderRequest) (ProviderResponse, TokenUsage, error) {
	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ProviderResponse{}, TokenUsage{}, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}

		resp, err := g.provider.Generate(ctx, req)
		if err == nil {
			return resp, resp.Usage, nil
		}
		lastErr = err

		if !isTransient(err) {
			return ProviderResponse{}, TokenUsage{}, err
		}

		backoff := jitteredBackoff(attempt)
		g.logger.Warn("llm call failed, retrying", "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ProviderResponse{}, TokenUsage{}, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
	}
	return ProviderResponse{}, TokenUsage{}, fmt.Errorf("llm call failed after %d attempts: %w", MaxAttempts, lastErr)
}

func jitteredBackoff(attempt int) time.Duration {
	d := backoffBase * time.Duration(1<<attempt)
	if d > backoffMax {
		d = backoffMax
	}
	return d/2 + time.Duration(rand.Int64N(int64(d/2)+1))
}

// isTransient classifies a provider error as retryable. Providers are
// expected to wrap context deadline/cancel and permanent 4xx-style errors
// distinctly; anything else (network errors, 5xx, timeouts) is transient.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm *PermanentError
	return !errors.As(err, &perm)
}

// PermanentError marks a provider failure that must not be retried (e.g. an
// authentication failure or a 4xx client error).
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func repairPrompt(originalPrompt, badOutput string, parseErr error) string {
	return fmt.Sprintf(
		"%s\n\nYour previous response could not be parsed as valid JSON matching the required schema.\nParse error: %v\nYour previous response was:\n%s\n\nRespond again with ONLY valid JSON matching the schema.",
		originalPrompt, parseErr, badOutput,
	)
}

// estimateCost is a placeholder linear cost model; real pricing is a
// provider-specific, frequently-changing constant table that belongs in
// configuration, not in Gateway logic.
func estimateCost(usage TokenUsage) float64 {
	const inputPerMillion = 0.15
	const outputPerMillion = 0.60
	return float64(usage.InputTokens)/1e6*inputPerMillion + float64(usage.OutputTokens)/1e6*outputPerMillion
}
