package config

import "github.com/modforge/assembly/pkg/models"

// BuiltinConfig is the compiled-in configuration merged underneath whatever
// modforge.yaml / llm-providers.yaml supply, mirroring the teacher's
// pkg/config/builtin.go GetBuiltinConfig() pattern.
type BuiltinConfig struct {
	Tiers        map[models.Tier]TierConfig
	LLMProviders map[string]LLMProviderConfig
}

// GetBuiltinConfig returns the built-in tier table and default LLM provider.
// Free tier carries all-zero limits per §3 ("free has all limits = 0").
func GetBuiltinConfig() BuiltinConfig {
	return BuiltinConfig{
		Tiers: map[models.Tier]TierConfig{
			models.TierFree: {Limits: models.Limits{
				DailyRequests: 0, MonthlyRequests: 0, MaxModsPerRequest: 0, AITokenLimit: 0,
			}},
			models.TierTest: {Limits: models.Limits{
				DailyRequests: 10, MonthlyRequests: 100, MaxModsPerRequest: 30, AITokenLimit: 200_000,
			}},
			models.TierPremium: {Limits: models.Limits{
				DailyRequests: 50, MonthlyRequests: 1000, MaxModsPerRequest: 150, AITokenLimit: 2_000_000,
			}},
			models.TierPro: {Limits: models.Limits{
				DailyRequests: models.Unlimited, MonthlyRequests: models.Unlimited,
				MaxModsPerRequest: 300, AITokenLimit: models.Unlimited,
			}},
		},
		LLMProviders: map[string]LLMProviderConfig{
			"gemini": {
				Type:            LLMProviderGenAI,
				Model:           "gemini-2.0-flash",
				APIKeyEnv:       "LLM_API_KEY",
				MaxOutputTokens: 8192,
			},
		},
	}
}
