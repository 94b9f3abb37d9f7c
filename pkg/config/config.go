package config

import "github.com/modforge/assembly/pkg/models"

// Config is the umbrella configuration object encapsulating all registries
// and defaults. It is the primary object returned by Initialize and used
// throughout the application, mirroring the teacher's pkg/config/config.go.
type Config struct {
	configDir string

	Defaults *Defaults
	Env      *Env

	TierRegistry        *TierRegistry
	LLMProviderRegistry *LLMProviderRegistry
}

// Initialize is defined in loader.go.

// Stats contains statistics about loaded configuration, for logging.
type Stats struct {
	Tiers        int
	LLMProviders int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	return Stats{
		Tiers:        c.TierRegistry.Len(),
		LLMProviders: c.LLMProviderRegistry.Len(),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetTierLimits is a convenience wrapper around TierRegistry.Get.
func (c *Config) GetTierLimits(tier models.Tier) (models.Limits, error) {
	return c.TierRegistry.Get(tier)
}

// GetLLMProvider is a convenience wrapper around LLMProviderRegistry.Get.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}
