package config

import (
	"fmt"
	"sync"

	"github.com/modforge/assembly/pkg/models"
)

// TierConfig is one subscription tier's policy, as loaded from modforge.yaml.
type TierConfig struct {
	Limits models.Limits `yaml:",inline"`
}

// TierRegistry stores per-tier limits in memory with thread-safe access,
// mirroring the teacher's LLMProviderRegistry (pkg/config/llm.go).
type TierRegistry struct {
	tiers map[models.Tier]models.Limits
	mu    sync.RWMutex
}

// NewTierRegistry builds a registry from a defensive copy of tiers.
func NewTierRegistry(tiers map[models.Tier]models.Limits) *TierRegistry {
	copied := make(map[models.Tier]models.Limits, len(tiers))
	for k, v := range tiers {
		copied[k] = v
	}
	return &TierRegistry{tiers: copied}
}

// Get retrieves the Limits for a tier (thread-safe).
func (r *TierRegistry) Get(tier models.Tier) (models.Limits, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	limits, ok := r.tiers[tier]
	if !ok {
		return models.Limits{}, fmt.Errorf("%w: %s", ErrTierNotFound, tier)
	}
	return limits, nil
}

// GetAll returns a copy of all tier limits (thread-safe).
func (r *TierRegistry) GetAll() map[models.Tier]models.Limits {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[models.Tier]models.Limits, len(r.tiers))
	for k, v := range r.tiers {
		result[k] = v
	}
	return result
}

// Len returns the number of configured tiers (thread-safe).
func (r *TierRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tiers)
}
