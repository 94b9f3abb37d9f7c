package config

import (
	"fmt"
	"sync"
)

// LLMProviderKind selects which concrete client the LLM Gateway constructs
// for a provider entry (§4.E, §11 of SPEC_FULL.md).
type LLMProviderKind string

const (
	LLMProviderGenAI  LLMProviderKind = "genai"  // google.golang.org/genai
	LLMProviderOpenAI LLMProviderKind = "openai" // plain net/http, OpenAI-compatible JSON-mode endpoint
)

// LLMProviderConfig is one entry of llm-providers.yaml.
type LLMProviderConfig struct {
	Type       LLMProviderKind `yaml:"type" validate:"required"`
	Model      string          `yaml:"model" validate:"required"`
	APIKeyEnv  string          `yaml:"api_key_env,omitempty"`
	BaseURLEnv string          `yaml:"base_url_env,omitempty"`
	MaxOutputTokens int        `yaml:"max_output_tokens" validate:"required,min=256"`
}

// LLMProviderRegistry stores LLM provider configurations in memory with
// thread-safe access, ported from the teacher's pkg/config/llm.go.
type LLMProviderRegistry struct {
	providers map[string]*LLMProviderConfig
	mu        sync.RWMutex
}

// NewLLMProviderRegistry builds a registry from a defensive copy of providers.
func NewLLMProviderRegistry(providers map[string]*LLMProviderConfig) *LLMProviderRegistry {
	copied := make(map[string]*LLMProviderConfig, len(providers))
	for k, v := range providers {
		copied[k] = v
	}
	return &LLMProviderRegistry{providers: copied}
}

// Get retrieves a provider configuration by name (thread-safe).
func (r *LLMProviderRegistry) Get(name string) (*LLMProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, name)
	}
	return p, nil
}

// GetAll returns a copy of all provider configurations (thread-safe).
func (r *LLMProviderRegistry) GetAll() map[string]*LLMProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]*LLMProviderConfig, len(r.providers))
	for k, v := range r.providers {
		result[k] = v
	}
	return result
}

// Len returns the number of configured providers (thread-safe).
func (r *LLMProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
