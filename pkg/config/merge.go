package config

import "github.com/modforge/assembly/pkg/models"

// mergeTiers merges built-in and user-defined tier configurations.
// User-defined tiers override built-in tiers with the same name.
func mergeTiers(builtinTiers map[models.Tier]TierConfig, userTiers map[models.Tier]TierConfig) map[models.Tier]models.Limits {
	result := make(map[models.Tier]models.Limits, len(builtinTiers))
	for tier, cfg := range builtinTiers {
		result[tier] = cfg.Limits
	}
	for tier, cfg := range userTiers {
		result[tier] = cfg.Limits
	}
	return result
}

// mergeLLMProviders merges built-in and user-defined LLM provider
// configurations. User-defined providers override built-in providers with
// the same name.
func mergeLLMProviders(builtinProviders map[string]LLMProviderConfig, userProviders map[string]LLMProviderConfig) map[string]*LLMProviderConfig {
	result := make(map[string]*LLMProviderConfig, len(builtinProviders))
	for name, provider := range builtinProviders {
		p := provider
		result[name] = &p
	}
	for name, provider := range userProviders {
		p := provider
		result[name] = &p
	}
	return result
}
